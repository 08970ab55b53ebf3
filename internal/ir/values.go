package ir

import "fmt"

// ValueKind tags the closed Value sum.
type ValueKind int

const (
	ValInstr ValueKind = iota // result of an instruction, by id
	ValParam                  // function parameter, by id
	ValGlobal                 // program global, by name
	ValConst                  // inline constant
)

// Value is a tagged reference to an operand source. Non-constant references
// must resolve to something that exists; the backend invariant validator
// enforces that.
type Value struct {
	Kind   ValueKind
	Instr  InstrID
	Param  ParamID
	Global string
	Const  Constant
}

// Constant is an inline literal operand.
type Constant struct {
	Type Type
	Text string // canonical literal text
}

// InstrValue references the result of an instruction in the same function.
func InstrValue(id InstrID) Value {
	return Value{Kind: ValInstr, Instr: id}
}

// ParamValue references a declared parameter of the enclosing function.
func ParamValue(id ParamID) Value {
	return Value{Kind: ValParam, Param: id}
}

// GlobalValue references a program global by name.
func GlobalValue(name string) Value {
	return Value{Kind: ValGlobal, Global: name}
}

// ConstValue wraps an inline constant.
func ConstValue(typ Type, text string) Value {
	return Value{Kind: ValConst, Const: Constant{Type: typ, Text: text}}
}

// ConstInt builds an i64 constant.
func ConstInt(v int64) Value {
	return ConstValue(I64, fmt.Sprintf("%d", v))
}

// ConstFloat builds an f64 constant.
func ConstFloat(text string) Value {
	return ConstValue(F64, text)
}

// ConstBool builds a bool constant.
func ConstBool(v bool) Value {
	if v {
		return ConstValue(Bool, "true")
	}
	return ConstValue(Bool, "false")
}

// ConstString builds a str constant.
func ConstString(text string) Value {
	return ConstValue(Str, text)
}

func (v Value) String() string {
	switch v.Kind {
	case ValInstr:
		return fmt.Sprintf("%%t%d", v.Instr)
	case ValParam:
		return fmt.Sprintf("%%p%d", v.Param)
	case ValGlobal:
		return fmt.Sprintf("@%s", v.Global)
	case ValConst:
		if v.Const.Type == nil {
			return fmt.Sprintf("const(? %s)", v.Const.Text)
		}
		return fmt.Sprintf("const(%s %s)", v.Const.Type, v.Const.Text)
	default:
		return "%<invalid>"
	}
}
