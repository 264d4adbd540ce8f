// Package frame is a small columnar table: ordered, named, typed columns of
// equal length. It is the working dataset of the pipeline and the runtime
// representation the schema validator inspects.
package frame

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the runtime representation of a column.
type Kind uint8

const (
	Invalid Kind = iota
	Int8
	Int64
	Float64
	String
	Bytes
	Timestamp
)

func (k Kind) String() string {
	switch k {
	case Int8:
		return "int8"
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case String:
		return "string"
	case Bytes:
		return "bytes"
	case Timestamp:
		return "timestamp"
	default:
		return "invalid"
	}
}

// ErrLength is returned when a column does not match the frame length.
var ErrLength = errors.New("frame: column length mismatch")

// Column is one typed column.
type Column interface {
	Kind() Kind
	Len() int
	// Take returns a new column holding the values at idx, in idx order.
	Take(idx []int) Column
}

// Typed columns.
type (
	Int8s      []int8
	Int64s     []int64
	Float64s   []float64
	Strings    []string
	ByteSlices [][]byte
	Timestamps []time.Time
)

func (Int8s) Kind() Kind      { return Int8 }
func (Int64s) Kind() Kind     { return Int64 }
func (Float64s) Kind() Kind   { return Float64 }
func (Strings) Kind() Kind    { return String }
func (ByteSlices) Kind() Kind { return Bytes }
func (Timestamps) Kind() Kind { return Timestamp }

func (c Int8s) Len() int      { return len(c) }
func (c Int64s) Len() int     { return len(c) }
func (c Float64s) Len() int   { return len(c) }
func (c Strings) Len() int    { return len(c) }
func (c ByteSlices) Len() int { return len(c) }
func (c Timestamps) Len() int { return len(c) }

func (c Int8s) Take(idx []int) Column      { return Int8s(take(c, idx)) }
func (c Int64s) Take(idx []int) Column     { return Int64s(take(c, idx)) }
func (c Float64s) Take(idx []int) Column   { return Float64s(take(c, idx)) }
func (c Strings) Take(idx []int) Column    { return Strings(take(c, idx)) }
func (c ByteSlices) Take(idx []int) Column { return ByteSlices(take(c, idx)) }
func (c Timestamps) Take(idx []int) Column { return Timestamps(take(c, idx)) }

func take[T any](src []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}

// Frame holds columns in insertion order.
type Frame struct {
	names []string
	cols  map[string]Column
	rows  int
}

// New returns an empty frame.
func New() *Frame {
	return &Frame{cols: make(map[string]Column)}
}

// Len is the number of rows.
func (f *Frame) Len() int { return f.rows }

// Names returns the column names in order.
func (f *Frame) Names() []string { return append([]string(nil), f.names...) }

// Set adds a column at the end, or replaces an existing one in place.
func (f *Frame) Set(name string, c Column) error {
	_, exists := f.cols[name]
	others := len(f.names)
	if exists {
		others--
	}
	if others > 0 && c.Len() != f.rows {
		return fmt.Errorf("%w: %s has %d rows, frame has %d", ErrLength, name, c.Len(), f.rows)
	}
	if !exists {
		f.names = append(f.names, name)
	}
	f.cols[name] = c
	f.rows = c.Len()
	return nil
}

// Drop removes a column; unknown names are ignored.
func (f *Frame) Drop(name string) {
	if _, ok := f.cols[name]; !ok {
		return
	}
	delete(f.cols, name)
	for i, n := range f.names {
		if n == name {
			f.names = append(f.names[:i:i], f.names[i+1:]...)
			break
		}
	}
	if len(f.names) == 0 {
		f.rows = 0
	}
}

// Column returns a column by name.
func (f *Frame) Column(name string) (Column, bool) {
	c, ok := f.cols[name]
	return c, ok
}

// Select returns a frame with only the named columns, in the given order.
// Names missing from f are skipped.
func (f *Frame) Select(names ...string) *Frame {
	out := New()
	for _, n := range names {
		if c, ok := f.cols[n]; ok {
			out.names = append(out.names, n)
			out.cols[n] = c
			out.rows = c.Len()
		}
	}
	return out
}

// Take returns a frame of the rows at idx, in idx order.
func (f *Frame) Take(idx []int) *Frame {
	out := New()
	for _, n := range f.names {
		out.names = append(out.names, n)
		out.cols[n] = f.cols[n].Take(idx)
	}
	out.rows = len(idx)
	return out
}

// Get returns a column by name as its concrete type.
func Get[T Column](f *Frame, name string) (T, bool) {
	c, ok := f.cols[name]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := c.(T)
	return t, ok
}
