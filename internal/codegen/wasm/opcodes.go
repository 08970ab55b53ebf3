package wasm

import (
	"encoding/binary"
	"fmt"
	"math"

	"compiler/internal/ir"
)

const blockTypeVoid = 0x40

const (
	opUnreachable = 0x00
	opBlock       = 0x02
	opLoop        = 0x03
	opIf          = 0x04
	opElse        = 0x05
	opEnd         = 0x0b
	opBr          = 0x0c
	opBrTable     = 0x0e
	opReturn      = 0x0f
	opCall        = 0x10
	opDrop        = 0x1a

	opLocalGet  = 0x20
	opLocalSet  = 0x21
	opGlobalGet = 0x23
	opGlobalSet = 0x24

	opI32Load = 0x28
	opI64Load = 0x29
	opF64Load = 0x2b

	opI32Store = 0x36
	opI64Store = 0x37
	opF64Store = 0x39

	opI32Const = 0x41
	opI64Const = 0x42
	opF64Const = 0x44

	opI32Eqz = 0x45
	opI32Eq  = 0x46
	opI32Ne  = 0x47

	opI64Eqz = 0x50
	opI64Eq  = 0x51
	opI64Ne  = 0x52
	opI64LtS = 0x53
	opI64GtS = 0x55
	opI64LeS = 0x57
	opI64GeS = 0x59

	opF64Eq = 0x61
	opF64Ne = 0x62
	opF64Lt = 0x63
	opF64Gt = 0x64
	opF64Le = 0x65
	opF64Ge = 0x66

	opI32Add = 0x6a
	opI32And = 0x71
	opI32Or  = 0x72

	opI64Add  = 0x7c
	opI64Sub  = 0x7d
	opI64Mul  = 0x7e
	opI64DivS = 0x7f
	opI64RemS = 0x81

	opF64Neg = 0x9a
	opF64Add = 0xa0
	opF64Sub = 0xa1
	opF64Mul = 0xa2
	opF64Div = 0xa3

	opI32WrapI64    = 0xa7
	opI64ExtendI32U = 0xad
	opI64TruncF64S  = 0xb0
	opF64ConvertI64 = 0xb9
)

// arithOpcode selects the numeric opcode for a binary arithmetic
// instruction by result type.
func arithOpcode(op ir.Opcode, t valType) (byte, error) {
	switch t {
	case valI64:
		switch op {
		case ir.OpAdd:
			return opI64Add, nil
		case ir.OpSub:
			return opI64Sub, nil
		case ir.OpMul:
			return opI64Mul, nil
		case ir.OpDiv:
			return opI64DivS, nil
		case ir.OpMod:
			return opI64RemS, nil
		}
	case valF64:
		switch op {
		case ir.OpAdd:
			return opF64Add, nil
		case ir.OpSub:
			return opF64Sub, nil
		case ir.OpMul:
			return opF64Mul, nil
		case ir.OpDiv:
			return opF64Div, nil
		}
	}
	return 0, fmt.Errorf("no %s opcode for value type %#x", op, t)
}

// compareOpcode selects the comparison opcode by operand type. The result
// is always i32.
func compareOpcode(op ir.Opcode, operand valType) (byte, error) {
	switch operand {
	case valI64:
		switch op {
		case ir.OpEq:
			return opI64Eq, nil
		case ir.OpNe:
			return opI64Ne, nil
		case ir.OpLt:
			return opI64LtS, nil
		case ir.OpLe:
			return opI64LeS, nil
		case ir.OpGt:
			return opI64GtS, nil
		case ir.OpGe:
			return opI64GeS, nil
		}
	case valF64:
		switch op {
		case ir.OpEq:
			return opF64Eq, nil
		case ir.OpNe:
			return opF64Ne, nil
		case ir.OpLt:
			return opF64Lt, nil
		case ir.OpLe:
			return opF64Le, nil
		case ir.OpGt:
			return opF64Gt, nil
		case ir.OpGe:
			return opF64Ge, nil
		}
	case valI32:
		switch op {
		case ir.OpEq:
			return opI32Eq, nil
		case ir.OpNe:
			return opI32Ne, nil
		}
	}
	return 0, fmt.Errorf("no %s opcode for value type %#x", op, operand)
}

func loadOpcode(t valType) byte {
	switch t {
	case valI64:
		return opI64Load
	case valF64:
		return opF64Load
	default:
		return opI32Load
	}
}

func storeOpcode(t valType) byte {
	switch t {
	case valI64:
		return opI64Store
	case valF64:
		return opF64Store
	default:
		return opI32Store
	}
}

func encodeF64(v float64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}
