// Package suggestsvc talks to an external text-generation service to
// produce short attendance note suggestions. The whole service is best
// effort; callers swallow its errors.
package suggestsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/presencaapp/presenca/core"
	"github.com/presencaapp/presenca/core/attendance"
)

type httpSuggester struct {
	url    string
	token  string
	client *http.Client
}

var _ attendance.NoteSuggester = (*httpSuggester)(nil)

func NewHTTPSuggester(conf *core.Config) attendance.NoteSuggester {
	return &httpSuggester{
		url:    conf.Suggest.URL,
		token:  conf.Suggest.Token,
		client: &http.Client{Timeout: conf.Suggest.Timeout},
	}
}

type (
	suggestRequest struct {
		StudentName string `json:"student_name"`
		Status      string `json:"status"`
	}
	suggestResponse struct {
		Note string `json:"note"`
	}
)

func (svc *httpSuggester) SuggestNote(ctx context.Context, studentName string, status attendance.Status) (string, error) {
	payload, err := json.Marshal(suggestRequest{StudentName: studentName, Status: string(status)})
	if err != nil {
		return "", errors.Wrap(err, "encoding suggestion request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "building suggestion request")
	}
	req.Header.Set("Content-Type", "application/json")
	if svc.token != "" {
		req.Header.Set("Authorization", "Bearer "+svc.token)
	}

	res, err := svc.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "requesting note suggestion")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("note suggestion: unexpected status %d", res.StatusCode)
	}

	var body suggestResponse
	if err = json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "decoding suggestion response")
	}
	return core.CleanString(body.Note), nil
}
