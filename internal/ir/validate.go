package ir

import "fmt"

// IrError reports a structural defect found while validating a program.
type IrError struct {
	Function string
	Message  string
}

func (e *IrError) Error() string {
	if e.Function == "" {
		return e.Message
	}
	return fmt.Sprintf("function %q: %s", e.Function, e.Message)
}

// Validate checks the structural well-formedness of the program: map keys
// agree with the ids stored in the mapped values, every function has an
// existing entry block, every block has a terminator whose targets exist,
// and the program entry point (if set) names a defined function.
func Validate(p *Program) []*IrError {
	var errs []*IrError

	if p.Entry != nil {
		if _, ok := p.Functions[*p.Entry]; !ok {
			errs = append(errs, &IrError{
				Message: fmt.Sprintf("entry point id %d does not name a defined function", *p.Entry),
			})
		}
	}

	for name, g := range p.Globals {
		if g.Name != name {
			errs = append(errs, &IrError{
				Message: fmt.Sprintf("global keyed %q carries name %q", name, g.Name),
			})
		}
	}

	for _, id := range p.FunctionIDs(true) {
		fn := p.Functions[id]
		if fn.ID != id {
			errs = append(errs, &IrError{
				Function: fn.Name,
				Message:  fmt.Sprintf("keyed %d but carries id %d", id, fn.ID),
			})
		}
		errs = append(errs, validateFunction(fn)...)
	}
	return errs
}

func validateFunction(fn *Function) []*IrError {
	var errs []*IrError

	if _, ok := fn.Blocks[fn.Entry]; !ok {
		errs = append(errs, &IrError{
			Function: fn.Name,
			Message:  fmt.Sprintf("entry block b%d does not exist", fn.Entry),
		})
	}

	for _, bid := range fn.BlockIDs(true) {
		blk := fn.Blocks[bid]
		if blk.ID != bid {
			errs = append(errs, &IrError{
				Function: fn.Name,
				Message:  fmt.Sprintf("block keyed %d but carries id %d", bid, blk.ID),
			})
		}
		if blk.Term == nil {
			errs = append(errs, &IrError{
				Function: fn.Name,
				Message:  fmt.Sprintf("block b%d has no terminator", bid),
			})
			continue
		}
		for _, succ := range Successors(blk.Term) {
			if _, ok := fn.Blocks[succ]; !ok {
				errs = append(errs, &IrError{
					Function: fn.Name,
					Message:  fmt.Sprintf("block b%d branches to missing block b%d", bid, succ),
				})
			}
		}
	}
	return errs
}
