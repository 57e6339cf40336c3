package booking

import "errors"

// ErrIntentTimeout indicates the intent parser did not answer within the
// configured deadline. The orchestrator converts it into a needs_human
// outcome; it is exported so parser implementations can return it directly.
var ErrIntentTimeout = errors.New("booking: intent parsing timed out")
