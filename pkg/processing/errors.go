package processing

import "errors"

// ErrUnknownSessionType marks a session label outside the known set.
// This is a logic bug, not a runtime condition: the pipeline terminates
// instead of guessing.
var ErrUnknownSessionType = errors.New("unknown session type")
