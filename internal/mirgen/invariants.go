package mirgen

import (
	"compiler/internal/diagnostics"
	"compiler/internal/invariants"
	"compiler/internal/ir"
)

// CheckInvariants verifies the lowered CFG is structurally sound: every
// block a terminator branches to exists and every block ends in a
// terminator. Structural checking is delegated to the ir validator; this
// routine restates its findings as stage violations.
func CheckInvariants(p *ir.Program) []invariants.Violation {
	var out []invariants.Violation
	for _, err := range ir.Validate(p) {
		out = append(out, invariants.Violation{
			Stage:   "mir",
			Code:    diagnostics.ErrMalformedIR,
			Message: err.Error(),
		})
	}
	return out
}
