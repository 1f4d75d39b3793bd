package intent

import "context"

// Classifier turns one raw inbound message into a structured intent.
//
// Implementations must be deterministic for identical text (retried calls
// yield the same tag) and must fall back to TagUnknown instead of returning
// an error when they cannot make sense of the input.
type Classifier interface {
	Classify(ctx context.Context, rawText string) Parsed
}
