package suggestsvc

import (
	"context"
	"fmt"

	"github.com/presencaapp/presenca/core/attendance"
)

// dummySuggester returns canned notes. Used in DEV/TEST where no
// text-generation service is configured.
type dummySuggester struct{}

var _ attendance.NoteSuggester = (*dummySuggester)(nil)

func NewDummySuggester() attendance.NoteSuggester {
	return dummySuggester{}
}

func (dummySuggester) SuggestNote(_ context.Context, studentName string, status attendance.Status) (string, error) {
	switch status {
	case attendance.StatusAbsent:
		return fmt.Sprintf("%s missed class; guardian not yet contacted.", studentName), nil
	case attendance.StatusJustified:
		return fmt.Sprintf("%s was absent with a justification on file.", studentName), nil
	default:
		return "", nil
	}
}
