package attendance

import "context"

// NoteSuggester produces a short suggested note for a student given their
// attendance status. Best effort: callers treat any error as "no
// suggestion" and never let it disturb the editing session.
type NoteSuggester interface {
	SuggestNote(ctx context.Context, studentName string, status Status) (string, error)
}
