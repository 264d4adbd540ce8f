package merchant_test

import (
	"errors"
	"math"
	"testing"

	"auroraguard/enricher/internal/merchant"
	"auroraguard/enricher/internal/sampling"
)

func mustCatalog(t *testing.T, seed int64) *merchant.Catalog {
	t.Helper()
	c, err := merchant.Build(merchant.DefaultSize, merchant.DefaultHighRisk, seed)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return c
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

func TestBuild_Shape(t *testing.T) {
	c := mustCatalog(t, 42)
	if c.Len() != merchant.DefaultSize {
		t.Fatalf("expected %d merchants, got %d", merchant.DefaultSize, c.Len())
	}
	if math.Abs(sum(c.Popularity())-1) > 1e-9 {
		t.Errorf("popularity does not sum to 1: %v", sum(c.Popularity()))
	}
	if math.Abs(sum(c.RiskWeights())-1) > 1e-9 {
		t.Errorf("risk weights do not sum to 1: %v", sum(c.RiskWeights()))
	}

	ms := c.Merchants()
	if ms[0].ID != "m_0001" || ms[len(ms)-1].ID != "m_0200" {
		t.Errorf("unexpected id range %s..%s", ms[0].ID, ms[len(ms)-1].ID)
	}
	high := 0
	for i, m := range ms {
		if i > 0 && m.Popularity > ms[i-1].Popularity {
			t.Fatalf("popularity not decreasing with rank at %s", m.ID)
		}
		if m.HighRisk {
			high++
			if m.Risk < 0.08 || m.Risk > 0.40 {
				t.Errorf("%s: high-risk merchant with risk %v", m.ID, m.Risk)
			}
		} else if m.Risk < 0.01 || m.Risk > 0.05 {
			t.Errorf("%s: regular merchant with risk %v", m.ID, m.Risk)
		}
	}
	if high != merchant.DefaultHighRisk {
		t.Errorf("expected %d high-risk merchants, got %d", merchant.DefaultHighRisk, high)
	}
}

func TestBuild_RiskDecoupledFromRank(t *testing.T) {
	ms := mustCatalog(t, 42).Merchants()
	topRanked := 0
	for _, m := range ms[:merchant.DefaultHighRisk] {
		if m.HighRisk {
			topRanked++
		}
	}
	if topRanked == merchant.DefaultHighRisk {
		t.Error("all high-risk merchants occupy the top popularity ranks; risk was not shuffled")
	}
}

func TestBuild_DeterministicForSeed(t *testing.T) {
	a := mustCatalog(t, 7).Merchants()
	b := mustCatalog(t, 7).Merchants()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("merchant %d differs between builds: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestBuild_InvalidShape(t *testing.T) {
	for _, tc := range []struct{ size, high int }{{0, 0}, {10, 11}, {10, -1}} {
		if _, err := merchant.Build(tc.size, tc.high, 1); !errors.Is(err, merchant.ErrCatalog) {
			t.Errorf("size=%d high=%d: expected ErrCatalog, got %v", tc.size, tc.high, err)
		}
	}
}

func labels(nFraud, nClean int) []int8 {
	out := make([]int8, 0, nFraud+nClean)
	for i := 0; i < nFraud; i++ {
		out = append(out, 1)
	}
	for i := 0; i < nClean; i++ {
		out = append(out, 0)
	}
	return out
}

func TestAssign_HighRiskMerchantsCarryFraudLift(t *testing.T) {
	c := mustCatalog(t, 42)
	isFraud := labels(20_000, 80_000)
	ids, err := c.Assign(isFraud, sampling.New(42, sampling.StreamMerchantFraud), sampling.New(42, sampling.StreamMerchantClean))
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	var highTotal, highFraud, lowTotal, lowFraud int
	for i, id := range ids {
		m, ok := c.Lookup(id)
		if !ok {
			t.Fatalf("row %d: merchant %q not in catalog", i, id)
		}
		if m.HighRisk {
			highTotal++
			highFraud += int(isFraud[i])
		} else {
			lowTotal++
			lowFraud += int(isFraud[i])
		}
	}
	highRate := float64(highFraud) / float64(highTotal)
	lowRate := float64(lowFraud) / float64(lowTotal)
	if highRate <= lowRate {
		t.Errorf("expected high-risk fraud rate above others: high=%.4f low=%.4f", highRate, lowRate)
	}
}

func TestAssign_PartitionStreamsIndependent(t *testing.T) {
	c := mustCatalog(t, 42)
	small := labels(100, 1000)
	large := labels(5000, 1000)

	a, _ := c.Assign(small, sampling.New(1, sampling.StreamMerchantFraud), sampling.New(1, sampling.StreamMerchantClean))
	b, _ := c.Assign(large, sampling.New(1, sampling.StreamMerchantFraud), sampling.New(1, sampling.StreamMerchantClean))

	// Clean rows sit after the fraud rows; their sequence must not depend on
	// how many fraud rows precede them.
	for i := 0; i < 1000; i++ {
		if a[100+i] != b[5000+i] {
			t.Fatalf("clean assignment %d changed when fraud partition grew: %s vs %s", i, a[100+i], b[5000+i])
		}
	}
}
