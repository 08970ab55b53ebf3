package ir

// Terminator is the closed sum of control-transfer instructions ending a
// basic block.
type Terminator interface {
	irTerm()
}

// Return exits the current function; Value is nil for void returns.
type Return struct {
	Value *Value
}

func (r *Return) irTerm() {}

// Br jumps unconditionally to another block.
type Br struct {
	Target BlockID
}

func (b *Br) irTerm() {}

// CondBr jumps based on a boolean condition.
type CondBr struct {
	Cond Value
	Then BlockID
	Else BlockID
}

func (c *CondBr) irTerm() {}

// Unreachable marks an invalid control-flow path.
type Unreachable struct{}

func (u *Unreachable) irTerm() {}

// Successors returns the branch targets of a terminator.
func Successors(term Terminator) []BlockID {
	switch t := term.(type) {
	case *Br:
		return []BlockID{t.Target}
	case *CondBr:
		return []BlockID{t.Then, t.Else}
	default:
		return nil
	}
}
