package synth

import "errors"

// ErrOverrideMerge is returned when a user-supplied override document is
// not valid JSON, or does not decode to a JSON object at its root.
var ErrOverrideMerge = errors.New("synth: invalid schema override")
