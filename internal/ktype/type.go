// Package ktype implements the type manager for the khir IR: an opaque
// handle space over primitive and composite types, deduplicated on
// construction so that type equality is handle equality for everything
// except opaque/named structs (identified by name instead).
package ktype

import "fmt"

// Kind tags a Type's primitive or composite shape.
type Kind uint8

const (
	KindVoid Kind = iota
	KindI1
	KindI8
	KindI16
	KindI32
	KindI64
	KindF64
	KindI32x4
	KindI32x8
	KindI1x8

	KindPointer
	KindArray
	KindStruct
	KindOpaqueStruct
	KindFunction
)

// Type is an opaque handle into a Manager. The zero Type is invalid; always
// obtain Types from Manager constructors.
type Type struct {
	id int
}

func (t Type) Valid() bool { return t.id != 0 }

// typeDesc is the side-table entry a Type handle indexes into.
type typeDesc struct {
	kind Kind

	// Pointer
	pointeeTo Type

	// Array
	elem   Type
	length int // 0 means unsized

	// Struct (named or anonymous)
	fields []Type
	name   string // non-empty for named/opaque structs
	opaque bool

	// Function
	ret    Type
	params []Type
}

// Manager owns every Type ever constructed for a program's lifetime.
type Manager struct {
	descs []typeDesc

	// dedup tables
	ptrOf     map[Type]Type
	arrOf     map[arrKey]Type
	structOf  map[string]Type // anon struct dedup keyed by field-type signature
	named     map[string]Type
	funcOf    map[string]Type

	voidT, i1T, i8T, i16T, i32T, i64T, f64T, v4T, v8T, m8T Type
}

type arrKey struct {
	elem Type
	n    int
}

// NewManager creates a Manager pre-populated with the primitive kinds.
func NewManager() *Manager {
	m := &Manager{
		descs:    []typeDesc{{}}, // id 0 reserved as invalid
		ptrOf:    make(map[Type]Type),
		arrOf:    make(map[arrKey]Type),
		structOf: make(map[string]Type),
		named:    make(map[string]Type),
		funcOf:   make(map[string]Type),
	}
	m.voidT = m.prim(KindVoid)
	m.i1T = m.prim(KindI1)
	m.i8T = m.prim(KindI8)
	m.i16T = m.prim(KindI16)
	m.i32T = m.prim(KindI32)
	m.i64T = m.prim(KindI64)
	m.f64T = m.prim(KindF64)
	m.v4T = m.prim(KindI32x4)
	m.v8T = m.prim(KindI32x8)
	m.m8T = m.prim(KindI1x8)
	return m
}

func (m *Manager) prim(k Kind) Type {
	m.descs = append(m.descs, typeDesc{kind: k})
	return Type{id: len(m.descs) - 1}
}

func (m *Manager) Void() Type  { return m.voidT }
func (m *Manager) I1() Type    { return m.i1T }
func (m *Manager) I8() Type    { return m.i8T }
func (m *Manager) I16() Type   { return m.i16T }
func (m *Manager) I32() Type   { return m.i32T }
func (m *Manager) I64() Type   { return m.i64T }
func (m *Manager) F64() Type   { return m.f64T }
func (m *Manager) I32x4() Type { return m.v4T }
func (m *Manager) I32x8() Type { return m.v8T }
func (m *Manager) I1x8() Type  { return m.m8T }

func (m *Manager) desc(t Type) *typeDesc {
	return &m.descs[t.id]
}

// Pointer returns (and dedups) the pointer-to-T type.
func (m *Manager) Pointer(to Type) Type {
	if existing, ok := m.ptrOf[to]; ok {
		return existing
	}
	m.descs = append(m.descs, typeDesc{kind: KindPointer, pointeeTo: to})
	t := Type{id: len(m.descs) - 1}
	m.ptrOf[to] = t
	return t
}

// Array returns (and dedups) the fixed-size array-of-T type. Length 0 means
// an unsized array (used for "pointer to first element" GEP bases).
func (m *Manager) Array(elem Type, length int) Type {
	k := arrKey{elem, length}
	if existing, ok := m.arrOf[k]; ok {
		return existing
	}
	m.descs = append(m.descs, typeDesc{kind: KindArray, elem: elem, length: length})
	t := Type{id: len(m.descs) - 1}
	m.arrOf[k] = t
	return t
}

// Struct constructs (or, for anonymous structs, dedups) a struct type with
// the given ordered field types. If name is non-empty the struct is
// registered under that name; registering the same name twice is an error
// unless the first registration was Opaque.
func (m *Manager) Struct(fields []Type, name string) (Type, error) {
	if name == "" {
		sig := structSig(fields)
		if existing, ok := m.structOf[sig]; ok {
			return existing, nil
		}
		m.descs = append(m.descs, typeDesc{kind: KindStruct, fields: append([]Type(nil), fields...)})
		t := Type{id: len(m.descs) - 1}
		m.structOf[sig] = t
		return t, nil
	}

	if existing, ok := m.named[name]; ok {
		d := m.desc(existing)
		if !d.opaque {
			return Type{}, fmt.Errorf("ktype: named struct %q redefined", name)
		}
		d.kind = KindStruct
		d.fields = append([]Type(nil), fields...)
		d.opaque = false
		return existing, nil
	}

	m.descs = append(m.descs, typeDesc{kind: KindStruct, fields: append([]Type(nil), fields...), name: name})
	t := Type{id: len(m.descs) - 1}
	m.named[name] = t
	return t, nil
}

// Opaque forward-declares a named struct with no fields yet.
func (m *Manager) Opaque(name string) (Type, error) {
	if existing, ok := m.named[name]; ok {
		return existing, nil
	}
	m.descs = append(m.descs, typeDesc{kind: KindOpaqueStruct, name: name, opaque: true})
	t := Type{id: len(m.descs) - 1}
	m.named[name] = t
	return t, nil
}

// GetNamed looks up a previously registered named/opaque struct.
func (m *Manager) GetNamed(name string) (Type, bool) {
	t, ok := m.named[name]
	return t, ok
}

// Function returns (and dedups) a function type.
func (m *Manager) Function(ret Type, params []Type) Type {
	sig := fmt.Sprintf("%d(%v)", ret.id, paramIDs(params))
	if existing, ok := m.funcOf[sig]; ok {
		return existing
	}
	m.descs = append(m.descs, typeDesc{kind: KindFunction, ret: ret, params: append([]Type(nil), params...)})
	t := Type{id: len(m.descs) - 1}
	m.funcOf[sig] = t
	return t
}

func structSig(fields []Type) string { return fmt.Sprintf("%v", paramIDs(fields)) }

func paramIDs(ts []Type) []int {
	ids := make([]int, len(ts))
	for i, t := range ts {
		ids[i] = t.id
	}
	return ids
}

// Kind returns t's kind tag.
func (m *Manager) Kind(t Type) Kind { return m.desc(t).kind }

func (m *Manager) IsI1(t Type) bool     { return m.Kind(t) == KindI1 }
func (m *Manager) IsPointer(t Type) bool { return m.Kind(t) == KindPointer }
func (m *Manager) IsFunc(t Type) bool   { return m.Kind(t) == KindFunction }
func (m *Manager) IsStruct(t Type) bool {
	k := m.Kind(t)
	return k == KindStruct || k == KindOpaqueStruct
}
func (m *Manager) IsArray(t Type) bool { return m.Kind(t) == KindArray }
func (m *Manager) IsFloat(t Type) bool { return m.Kind(t) == KindF64 }
func (m *Manager) IsInt(t Type) bool {
	switch m.Kind(t) {
	case KindI8, KindI16, KindI32, KindI64:
		return true
	}
	return false
}

// PointeeType returns the type a pointer points to.
func (m *Manager) PointeeType(t Type) Type { return m.desc(t).pointeeTo }

// ElementType returns an array's element type.
func (m *Manager) ElementType(t Type) Type { return m.desc(t).elem }

// ArrayLength returns an array's declared length (0 = unsized).
func (m *Manager) ArrayLength(t Type) int { return m.desc(t).length }

// FieldTypes returns a struct's ordered field types.
func (m *Manager) FieldTypes(t Type) []Type { return m.desc(t).fields }

// FunctionReturnType and FunctionParamTypes decompose a function type.
func (m *Manager) FunctionReturnType(t Type) Type    { return m.desc(t).ret }
func (m *Manager) FunctionParamTypes(t Type) []Type { return m.desc(t).params }

// Name returns a named/opaque struct's name, or "" for anonymous types.
func (m *Manager) Name(t Type) string { return m.desc(t).name }

// Size returns t's size in bytes, using natural alignment derived from
// primitive sizes (8-byte pointers, no packing beyond that).
func (m *Manager) Size(t Type) int {
	switch m.Kind(t) {
	case KindVoid:
		return 0
	case KindI1, KindI8:
		return 1
	case KindI16:
		return 2
	case KindI32:
		return 4
	case KindI64, KindF64, KindPointer, KindFunction:
		return 8
	case KindI32x4:
		return 16
	case KindI32x8, KindI1x8:
		return 32
	case KindArray:
		d := m.desc(t)
		n := d.length
		return n * m.Size(d.elem)
	case KindStruct, KindOpaqueStruct:
		off, _ := m.structLayout(t)
		if len(off) == 0 {
			return 0
		}
		d := m.desc(t)
		last := len(d.fields) - 1
		return align(off[last]+m.Size(d.fields[last]), m.Align(t))
	}
	return 0
}

// Align returns t's natural alignment: the maximum alignment of its
// transitively-contained primitives, capped at 8 (pointer width).
func (m *Manager) Align(t Type) int {
	switch m.Kind(t) {
	case KindStruct, KindOpaqueStruct:
		best := 1
		for _, f := range m.desc(t).fields {
			if a := m.Align(f); a > best {
				best = a
			}
		}
		return best
	case KindArray:
		return m.Align(m.desc(t).elem)
	default:
		s := m.Size(t)
		if s == 0 {
			return 1
		}
		if s > 8 {
			return 8
		}
		return s
	}
}

func align(offset, alignment int) int {
	if alignment <= 1 {
		return offset
	}
	rem := offset % alignment
	if rem == 0 {
		return offset
	}
	return offset + (alignment - rem)
}

// structLayout returns each field's byte offset under natural alignment.
func (m *Manager) structLayout(t Type) ([]int, error) {
	d := m.desc(t)
	offs := make([]int, len(d.fields))
	cur := 0
	for i, f := range d.fields {
		cur = align(cur, m.Align(f))
		offs[i] = cur
		cur += m.Size(f)
	}
	return offs, nil
}

// PointerOffset walks a GEP index list element-by-element from base type t
// (which must be a pointer), returning the cumulative byte offset and the
// type reached. Struct indices must be constant field indices; array/pointer
// indices are multiplied by element size at each step (callers pass the
// per-index *value* separately for dynamic indices — PointerOffset handles
// the constant-index / struct-field-index case used by const_gep).
func (m *Manager) PointerOffset(t Type, indices []int) (int32, Type, error) {
	if !m.IsPointer(t) {
		return 0, Type{}, fmt.Errorf("ktype: PointerOffset base is not a pointer")
	}
	cur := m.PointeeType(t)
	offset := int32(0)
	for _, idx := range indices {
		switch m.Kind(cur) {
		case KindStruct, KindOpaqueStruct:
			offs, err := m.structLayout(cur)
			if err != nil {
				return 0, Type{}, err
			}
			if idx < 0 || idx >= len(offs) {
				return 0, Type{}, fmt.Errorf("ktype: struct field index %d out of range", idx)
			}
			offset += int32(offs[idx])
			cur = m.desc(cur).fields[idx]
		case KindArray:
			elem := m.desc(cur).elem
			offset += int32(idx * m.Size(elem))
			cur = elem
		default:
			// pointer-to-T base case (first GEP index strides whole elements)
			offset += int32(idx * m.Size(cur))
		}
	}
	return offset, cur, nil
}

func (t Type) String() string { return fmt.Sprintf("type#%d", t.id) }
