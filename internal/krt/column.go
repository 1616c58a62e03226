package krt

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"golang.org/x/exp/mmap"
)

// ColumnData is a single fixed-width column file memory-mapped for
// read-only sequential/random access, generalizing
// original_source/compile/proxy/column_data.h's ColumnData<T> template
// parameter over Go's comparable numeric/fixed-size types via the
// elemSize/decode pair instead of a C++ template instantiation per type.
type ColumnData[T any] struct {
	path     string
	reader   *mmap.ReaderAt
	elemSize int
	decode   func([]byte) T
	count    int
}

// OpenColumnData memory-maps path and prepares a typed view over it.
// elemSize and decode must agree (decode must read exactly elemSize
// bytes starting at offset 0 of the slice it's given).
func OpenColumnData[T any](path string, elemSize int, decode func([]byte) T) (*ColumnData[T], error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("krt: opening column file %s: %w", path, err)
	}
	if r.Len()%elemSize != 0 {
		r.Close()
		return nil, fmt.Errorf("krt: column file %s length %d not a multiple of element size %d", path, r.Len(), elemSize)
	}
	return &ColumnData[T]{
		path:     path,
		reader:   r,
		elemSize: elemSize,
		decode:   decode,
		count:    r.Len() / elemSize,
	}, nil
}

// Size returns the element count (testable property 11's round-trip
// count check operates against this).
func (c *ColumnData[T]) Size() int { return c.count }

// Get decodes the idx-th element.
func (c *ColumnData[T]) Get(idx int) T {
	buf := make([]byte, c.elemSize)
	if _, err := c.reader.ReadAt(buf, int64(idx)*int64(c.elemSize)); err != nil {
		panic(fmt.Sprintf("krt: reading column %s element %d: %v", c.path, idx, err))
	}
	return c.decode(buf)
}

// Close releases the mapping.
func (c *ColumnData[T]) Close() error { return c.reader.Close() }

// OpenInt32Column/OpenInt64Column/OpenFloat64Column open the concrete
// instantiations kushql's catalog actually uses; OpenColumnData is
// generic but these constructors pin down the little-endian decode the
// colfile writer produces.
func OpenInt32Column(path string) (*ColumnData[int32], error) {
	return OpenColumnData(path, 4, func(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) })
}

func OpenInt64Column(path string) (*ColumnData[int64], error) {
	return OpenColumnData(path, 8, func(b []byte) int64 { return int64(binary.LittleEndian.Uint64(b)) })
}

func OpenFloat64Column(path string) (*ColumnData[float64], error) {
	return OpenColumnData(path, 8, func(b []byte) float64 {
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	})
}

// NullColumn reads the sibling null-bitmap file a nullable column keeps
// alongside its data file, one bit per row.
type NullColumn struct {
	bits []byte
}

func OpenNullColumn(path string) (*NullColumn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("krt: opening null column %s: %w", path, err)
	}
	return &NullColumn{bits: data}, nil
}

func (n *NullColumn) IsNull(idx int) bool {
	byteIdx, bitIdx := idx/8, idx%8
	if byteIdx >= len(n.bits) {
		return false
	}
	return n.bits[byteIdx]&(1<<uint(bitIdx)) != 0
}
