package diagnostics

// Diagnostic codes, grouped by the stage that raises them.
const (
	// Parser errors (P prefix)
	ErrUnexpectedToken   = "P0001"
	ErrExpectedToken     = "P0002"
	ErrInvalidStatement  = "P0003"
	ErrMissingIdentifier = "P0004"

	// HIR errors (H prefix)
	ErrUndefinedSymbol     = "H0001"
	ErrRedeclaredSymbol    = "H0002"
	ErrUnknownVariant      = "H0003"
	ErrWrongArgumentCount  = "H0004"
	ErrUnknownField        = "H0005"
	ErrNotCallable         = "H0006"
	ErrFieldLayoutConflict = "H0007"

	// IR errors (I prefix)
	ErrMalformedIR      = "I0001"
	ErrUnresolvedRef    = "I0002"
	ErrUnreachableBlock = "I0003"

	// Backend errors (B prefix)
	ErrCodegenFailed    = "B0001"
	ErrTargetNotFound   = "B0002"
	ErrNonDeterministic = "B0003"
)
