package agent

import "errors"

// ErrNotFound marks a targeted operation on an unknown game id. Validation
// failures reuse belief.ErrValidation.
var ErrNotFound = errors.New("game not found")
