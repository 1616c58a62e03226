// Package proxy implements the typed wrapper layer over khir.Value that
// translators build queries against, following
// original_source/compile/proxy/{int,double,bool,ptr}.h. Since Go has no
// operator overloading, each arithmetic/comparison "operator" is a method
// that emits the matching khir instruction and returns a new wrapper
// around the result.
package proxy

import (
	"fmt"

	"kushql/internal/khir"
	"kushql/internal/ktype"
)

// Int wraps an integer-typed khir.Value at a fixed bit width and emits IR
// for arithmetic/comparisons through b.
type Int struct {
	b     *khir.ProgramBuilder
	width int // 8, 16, 32, 64
	v     khir.Value
}

func (i Int) Get() khir.Value { return i.v }
func (i Int) Width() int      { return i.width }

func newInt(b *khir.ProgramBuilder, width int, v khir.Value) Int {
	return Int{b: b, width: width, v: v}
}

// I8/I16/I32/I64 lift a constant into a proxy Int of the matching width.
func I8(b *khir.ProgramBuilder, v int8) Int   { return newInt(b, 8, b.ConstI8(v)) }
func I16(b *khir.ProgramBuilder, v int16) Int { return newInt(b, 16, b.ConstI16(v)) }
func I32(b *khir.ProgramBuilder, v int32) Int { return newInt(b, 32, b.ConstI32(v)) }
func I64(b *khir.ProgramBuilder, v int64) Int { return newInt(b, 64, b.ConstI64(v)) }

// WrapInt wraps an already-built khir.Value of the given width, e.g. the
// result of a Load from a column.
func WrapInt(b *khir.ProgramBuilder, width int, v khir.Value) Int { return newInt(b, width, v) }

func (i Int) binOp(rhs Int, op8, op16, op32, op64 func(a, x khir.Value) (khir.Value, error)) Int {
	if i.width != rhs.width {
		panic(fmt.Sprintf("proxy: Int width mismatch %d vs %d", i.width, rhs.width))
	}
	var fn func(a, x khir.Value) (khir.Value, error)
	switch i.width {
	case 8:
		fn = op8
	case 16:
		fn = op16
	case 32:
		fn = op32
	case 64:
		fn = op64
	default:
		panic(fmt.Sprintf("proxy: unsupported int width %d", i.width))
	}
	v, err := fn(i.v, rhs.v)
	if err != nil {
		panic(err) // construction-time errors indicate a translator bug, not a query-time failure
	}
	return newInt(i.b, i.width, v)
}

func (i Int) Add(rhs Int) Int {
	return i.binOp(rhs, i.b.I8Add, i.b.I16Add, i.b.I32Add, i.b.I64Add)
}
func (i Int) Sub(rhs Int) Int {
	return i.binOp(rhs, i.b.I8Sub, i.b.I16Sub, i.b.I32Sub, i.b.I64Sub)
}
func (i Int) Mul(rhs Int) Int {
	return i.binOp(rhs, i.b.I8Mul, i.b.I16Mul, i.b.I32Mul, i.b.I64Mul)
}

// Div is only supported at i32/i64 widths.
func (i Int) Div(rhs Int) Int {
	if i.width != rhs.width || (i.width != 32 && i.width != 64) {
		panic(fmt.Sprintf("proxy: Div undefined for width %d", i.width))
	}
	var v khir.Value
	var err error
	if i.width == 32 {
		v, err = i.b.I32Div(i.v, rhs.v)
	} else {
		v, err = i.b.I64Div(i.v, rhs.v)
	}
	if err != nil {
		panic(err)
	}
	return newInt(i.b, i.width, v)
}

func (i Int) cmp(rhs Int, which string) Bool {
	if i.width != rhs.width {
		panic(fmt.Sprintf("proxy: Int width mismatch %d vs %d", i.width, rhs.width))
	}
	var v khir.Value
	var err error
	switch {
	case i.width == 32:
		v, err = cmp32(i.b, which, i.v, rhs.v)
	case i.width == 64:
		v, err = cmp64(i.b, which, i.v, rhs.v)
	default:
		// This wrapper only emits integer comparisons at i32/i64; narrower
		// columns are widened by the translator before comparing.
		panic(fmt.Sprintf("proxy: comparisons at width %d not supported, widen to i32/i64 first", i.width))
	}
	if err != nil {
		panic(err)
	}
	return Bool{b: i.b, v: v}
}

func cmp32(b *khir.ProgramBuilder, which string, a, x khir.Value) (khir.Value, error) {
	switch which {
	case "eq":
		return b.I32CmpEq(a, x)
	case "ne":
		return b.I32CmpNe(a, x)
	case "lt":
		return b.I32CmpLt(a, x)
	case "le":
		return b.I32CmpLe(a, x)
	case "gt":
		return b.I32CmpGt(a, x)
	case "ge":
		return b.I32CmpGe(a, x)
	}
	panic("proxy: unknown comparison " + which)
}

func cmp64(b *khir.ProgramBuilder, which string, a, x khir.Value) (khir.Value, error) {
	switch which {
	case "eq":
		return b.I64CmpEq(a, x)
	case "ne":
		return b.I64CmpNe(a, x)
	case "lt":
		return b.I64CmpLt(a, x)
	case "le":
		return b.I64CmpLe(a, x)
	case "gt":
		return b.I64CmpGt(a, x)
	case "ge":
		return b.I64CmpGe(a, x)
	}
	panic("proxy: unknown comparison " + which)
}

func (i Int) Eq(rhs Int) Bool { return i.cmp(rhs, "eq") }
func (i Int) Ne(rhs Int) Bool { return i.cmp(rhs, "ne") }
func (i Int) Lt(rhs Int) Bool { return i.cmp(rhs, "lt") }
func (i Int) Le(rhs Int) Bool { return i.cmp(rhs, "le") }
func (i Int) Gt(rhs Int) Bool { return i.cmp(rhs, "gt") }
func (i Int) Ge(rhs Int) Bool { return i.cmp(rhs, "ge") }

// Float64 wraps an F64-typed khir.Value.
type Float64 struct {
	b *khir.ProgramBuilder
	v khir.Value
}

func F64(b *khir.ProgramBuilder, v float64) Float64 { return Float64{b: b, v: b.ConstF64(v)} }
func WrapFloat64(b *khir.ProgramBuilder, v khir.Value) Float64 { return Float64{b: b, v: v} }
func (f Float64) Get() khir.Value                              { return f.v }

func (f Float64) binOp(rhs Float64, fn func(a, x khir.Value) (khir.Value, error)) Float64 {
	v, err := fn(f.v, rhs.v)
	if err != nil {
		panic(err)
	}
	return Float64{b: f.b, v: v}
}

func (f Float64) Add(rhs Float64) Float64 { return f.binOp(rhs, f.b.F64Add) }
func (f Float64) Sub(rhs Float64) Float64 { return f.binOp(rhs, f.b.F64Sub) }
func (f Float64) Mul(rhs Float64) Float64 { return f.binOp(rhs, f.b.F64Mul) }
func (f Float64) Div(rhs Float64) Float64 { return f.binOp(rhs, f.b.F64Div) }

func (f Float64) cmp(rhs Float64, fn func(a, x khir.Value) (khir.Value, error)) Bool {
	v, err := fn(f.v, rhs.v)
	if err != nil {
		panic(err)
	}
	return Bool{b: f.b, v: v}
}

func (f Float64) Eq(rhs Float64) Bool { return f.cmp(rhs, f.b.F64CmpEq) }
func (f Float64) Ne(rhs Float64) Bool { return f.cmp(rhs, f.b.F64CmpNe) }
func (f Float64) Lt(rhs Float64) Bool { return f.cmp(rhs, f.b.F64CmpLt) }
func (f Float64) Le(rhs Float64) Bool { return f.cmp(rhs, f.b.F64CmpLe) }
func (f Float64) Gt(rhs Float64) Bool { return f.cmp(rhs, f.b.F64CmpGt) }
func (f Float64) Ge(rhs Float64) Bool { return f.cmp(rhs, f.b.F64CmpGe) }

func (f Float64) ToInt64() Int {
	v, err := f.b.I64ConvF64(f.v)
	if err != nil {
		panic(err)
	}
	return newInt(f.b, 64, v)
}

func (i Int) ToFloat64() Float64 {
	if i.width != 64 {
		panic("proxy: ToFloat64 only defined for Int64")
	}
	v, err := i.b.F64ConvI64(i.v)
	if err != nil {
		panic(err)
	}
	return Float64{b: i.b, v: v}
}

// Bool wraps an I1-typed khir.Value.
type Bool struct {
	b *khir.ProgramBuilder
	v khir.Value
}

func True(b *khir.ProgramBuilder) Bool  { return Bool{b: b, v: b.ConstI1(true)} }
func False(b *khir.ProgramBuilder) Bool { return Bool{b: b, v: b.ConstI1(false)} }
func WrapBool(b *khir.ProgramBuilder, v khir.Value) Bool { return Bool{b: b, v: v} }
func (x Bool) Get() khir.Value                           { return x.v }

func (x Bool) Not() Bool {
	v, err := x.b.I1Not(x.v)
	if err != nil {
		panic(err)
	}
	return Bool{b: x.b, v: v}
}

func (x Bool) And(rhs Bool) Bool {
	v, err := x.b.I1And(x.v, rhs.v)
	if err != nil {
		panic(err)
	}
	return Bool{b: x.b, v: v}
}

func (x Bool) Or(rhs Bool) Bool {
	v, err := x.b.I1Or(x.v, rhs.v)
	if err != nil {
		panic(err)
	}
	return Bool{b: x.b, v: v}
}

// Ptr wraps a pointer-typed khir.Value, the base every column/struct
// access in the translators works through.
type Ptr struct {
	b *khir.ProgramBuilder
	v khir.Value
}

func WrapPtr(b *khir.ProgramBuilder, v khir.Value) Ptr { return Ptr{b: b, v: v} }
func (p Ptr) Get() khir.Value                          { return p.v }

func (p Ptr) Field(baseType ktype.Type, index int) Ptr {
	v, err := p.b.ConstGEP(p.v, baseType, []int{index})
	if err != nil {
		panic(err)
	}
	return Ptr{b: p.b, v: v}
}

func (p Ptr) Index(elemType ktype.Type, idx Int) Ptr {
	v, err := p.b.DynamicGEP(p.v, elemType, idx.v)
	if err != nil {
		panic(err)
	}
	return Ptr{b: p.b, v: v}
}

func (p Ptr) LoadInt(width int) Int {
	v, err := p.b.Load(p.v)
	if err != nil {
		panic(err)
	}
	return newInt(p.b, width, v)
}

func (p Ptr) LoadFloat64() Float64 {
	v, err := p.b.Load(p.v)
	if err != nil {
		panic(err)
	}
	return Float64{b: p.b, v: v}
}

func (p Ptr) Store(v khir.Value) {
	if err := p.b.Store(p.v, v); err != nil {
		panic(err)
	}
}

func (p Ptr) IsNull() Bool {
	v, err := p.b.PtrCmpNullptr(p.v)
	if err != nil {
		panic(err)
	}
	return Bool{b: p.b, v: v}
}
