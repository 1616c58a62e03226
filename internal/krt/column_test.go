package krt

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// TestColumnRoundTrip checks testable property 11: writing a column file
// and reading it back through ColumnData yields the original values.
func TestColumnRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "col.i32")

	values := []int32{7, -3, 0, 1 << 20, -(1 << 20)}
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}

	col, err := OpenInt32Column(path)
	if err != nil {
		t.Fatal(err)
	}
	defer col.Close()

	if col.Size() != len(values) {
		t.Fatalf("Size() = %d, want %d", col.Size(), len(values))
	}
	for i, want := range values {
		if got := col.Get(i); got != want {
			t.Fatalf("Get(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestHashTableMultiMap(t *testing.T) {
	ht := NewHashTable[int32, string]()
	ht.Insert(1, "a")
	ht.Insert(1, "b")
	ht.Insert(2, "c")

	got := ht.Get(1)
	if len(got) != 2 {
		t.Fatalf("expected 2 values for key 1, got %v", got)
	}
	if len(ht.Get(2)) != 1 {
		t.Fatalf("expected 1 value for key 2")
	}
	if ht.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", ht.Len())
	}
}

func TestTupleIdxTable(t *testing.T) {
	tbl := NewTupleIdxTable()
	tbl.Insert([]int32{1, 2, 3})
	tbl.Insert([]int32{1, 2, 4})

	if !tbl.Contains([]int32{1, 2, 3}) {
		t.Fatalf("expected [1,2,3] to be present")
	}
	if tbl.Contains([]int32{1, 2, 5}) {
		t.Fatalf("did not expect [1,2,5] to be present")
	}
	if tbl.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", tbl.Size())
	}
}
