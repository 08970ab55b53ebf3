package ir

import (
	"fmt"
	"strings"
)

// Type is the closed sum of IR types. Concrete is the ABI-completeness
// test: primitives are concrete; a pointer is concrete iff its pointee is;
// a function type is concrete iff all parameter types and the return type
// are.
type Type interface {
	irType()
	Concrete() bool
	String() string
}

// Primitive is a scalar IR type.
type Primitive string

const (
	I32  Primitive = "i32"
	I64  Primitive = "i64"
	F64  Primitive = "f64"
	Bool Primitive = "bool"
	Str  Primitive = "str"
	Void Primitive = "void"
)

func (p Primitive) irType()        {}
func (p Primitive) Concrete() bool { return true }
func (p Primitive) String() string { return string(p) }

// Pointer is a typed address.
type Pointer struct {
	Elem Type
}

func (p Pointer) irType() {}

func (p Pointer) Concrete() bool {
	return p.Elem != nil && p.Elem.Concrete()
}

func (p Pointer) String() string {
	if p.Elem == nil {
		return "ptr<?>"
	}
	return fmt.Sprintf("ptr<%s>", p.Elem)
}

// FuncType is a function signature type.
type FuncType struct {
	Params []Type
	Return Type
}

func (f FuncType) irType() {}

func (f FuncType) Concrete() bool {
	for _, p := range f.Params {
		if p == nil || !p.Concrete() {
			return false
		}
	}
	return f.Return != nil && f.Return.Concrete()
}

func (f FuncType) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		if p == nil {
			parts[i] = "?"
			continue
		}
		parts[i] = p.String()
	}
	ret := "?"
	if f.Return != nil {
		ret = f.Return.String()
	}
	return fmt.Sprintf("fn(%s) -> %s", strings.Join(parts, ", "), ret)
}
