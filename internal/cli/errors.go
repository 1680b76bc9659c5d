package cli

import "errors"

// Sentinel errors for CLI-level argument validation, distinct from the
// structured errs.Error taxonomy returned by the core packages.
var (
	errVariantRequired = errors.New("--variant is required")
	errFilesRequired   = errors.New("--files is required")
)
