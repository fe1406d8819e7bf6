package mix

import "errors"

// Error kinds. Every failure returned by the builder wraps exactly one of
// these, so callers can branch with errors.Is and metrics can label by
// kind.
var (
	// ErrMissingTool means a required external binary is absent from PATH.
	ErrMissingTool = errors.New("required tool not found")
	// ErrUnresolvedSource means a declared remote or local source could not
	// be fetched or validated.
	ErrUnresolvedSource = errors.New("source could not be resolved")
	// ErrInvalidParameter means a processing parameter is out of range.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNoInputs means no slot carries a usable audio source.
	ErrNoInputs = errors.New("no usable inputs")
	// ErrProcessingFailure means an external tool invocation exited non-zero.
	ErrProcessingFailure = errors.New("processing failed")
)

// Kind returns a stable label for the error's kind, for metrics and
// machine-readable status.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrMissingTool):
		return "missing_tool"
	case errors.Is(err, ErrUnresolvedSource):
		return "unresolved_source"
	case errors.Is(err, ErrInvalidParameter):
		return "invalid_parameter"
	case errors.Is(err, ErrNoInputs):
		return "no_inputs"
	case errors.Is(err, ErrProcessingFailure):
		return "processing_failure"
	}
	return "internal"
}
