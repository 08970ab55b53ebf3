package ir

import "sort"

// FunctionID identifies a function within a program.
type FunctionID uint32

// BlockID identifies a basic block within a function.
type BlockID uint32

// InstrID identifies an instruction result within a function.
type InstrID uint32

// ParamID identifies a parameter within a function.
type ParamID uint32

// Opcode names one IR instruction kind.
type Opcode string

const (
	// arithmetic
	OpAdd Opcode = "add"
	OpSub Opcode = "sub"
	OpMul Opcode = "mul"
	OpDiv Opcode = "div"
	OpMod Opcode = "mod"

	// comparison
	OpEq Opcode = "eq"
	OpNe Opcode = "ne"
	OpLt Opcode = "lt"
	OpLe Opcode = "le"
	OpGt Opcode = "gt"
	OpGe Opcode = "ge"

	// logical
	OpAnd Opcode = "and"
	OpOr  Opcode = "or"
	OpNot Opcode = "not"
	OpNeg Opcode = "neg"

	// memory
	OpLoad   Opcode = "load"
	OpStore  Opcode = "store"
	OpAlloca Opcode = "alloca"

	// misc
	OpCall      Opcode = "call"
	OpCast      Opcode = "cast"
	OpStrConcat Opcode = "strcat"
	OpPrint     Opcode = "print"
)

// IsBinaryArith reports whether the opcode is a two-operand arithmetic
// operation, the class the constant-folding invariant applies to.
func (op Opcode) IsBinaryArith() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

// IsComparison reports whether the opcode produces a bool from two operands.
func (op Opcode) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// Metadata describes the compilation a program came from.
type Metadata struct {
	SourceFile   string
	Version      string
	TargetTriple string
	OptLevel     int
	Debug        bool
}

// Global is a named module-level value.
type Global struct {
	Name string
	Type Type
	Init string // canonical text of the initial value
}

// Program is the IR root: functions keyed by id, globals keyed by name.
// Entry, when set, must name a key of Functions (validated).
// Insertion order is recorded so serialization can distinguish structural
// order from canonical (sorted) order under the determinism flag.
type Program struct {
	Functions map[FunctionID]*Function
	Globals   map[string]Global
	Meta      Metadata

	Entry    *FunctionID
	funcSeq  []FunctionID
	globSeq  []string
}

// Function is one IR function: parameters, return type, and a block map
// rooted at Entry.
type Function struct {
	ID     FunctionID
	Name   string
	Params []Param
	Return Type
	Blocks map[BlockID]*Block
	Entry  BlockID

	blockSeq  []BlockID
	nextInstr InstrID
	nextBlock BlockID
}

// Param describes a function parameter.
type Param struct {
	ID   ParamID
	Name string
	Type Type
}

// Block is a basic block: ordered instructions plus exactly one terminator.
type Block struct {
	ID     BlockID
	Label  string
	Instrs []*Instruction
	Term   Terminator
}

// Instruction is a single typed operation. Target is only meaningful for
// OpCall, where it names the callee function.
type Instruction struct {
	ID       InstrID
	Op       Opcode
	Operands []Value
	Type     Type
	Target   string
}

// FunctionIDs returns the function ids, sorted when canonical is set,
// otherwise in insertion order.
func (p *Program) FunctionIDs(canonical bool) []FunctionID {
	ids := make([]FunctionID, len(p.funcSeq))
	copy(ids, p.funcSeq)
	if canonical {
		sortIDs(ids)
	}
	return ids
}

// GlobalNames returns global names, sorted when canonical is set, otherwise
// in insertion order.
func (p *Program) GlobalNames(canonical bool) []string {
	names := make([]string, len(p.globSeq))
	copy(names, p.globSeq)
	if canonical {
		sortStrings(names)
	}
	return names
}

// BlockIDs returns block ids, sorted when canonical is set, otherwise in
// insertion order.
func (f *Function) BlockIDs(canonical bool) []BlockID {
	ids := make([]BlockID, len(f.blockSeq))
	copy(ids, f.blockSeq)
	if canonical {
		sortBlockIDs(ids)
	}
	return ids
}

// FunctionByName returns the function with the given name, if any.
func (p *Program) FunctionByName(name string) (*Function, bool) {
	for _, id := range p.funcSeq {
		if fn := p.Functions[id]; fn != nil && fn.Name == name {
			return fn, true
		}
	}
	return nil, false
}

func sortIDs(ids []FunctionID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortBlockIDs(ids []BlockID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortStrings(names []string) {
	sort.Strings(names)
}
