package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// WebhookSink POSTs notes as JSON to a remote endpoint. Deadlines come
// from the caller's context, so the client itself carries no timeout.
type WebhookSink struct {
	name string
	url  string
	http *http.Client
}

func NewWebhook(name, url string) *WebhookSink {
	return &WebhookSink{name: name, url: url, http: &http.Client{}}
}

func (s *WebhookSink) Name() string { return s.name }

func (s *WebhookSink) WriteNote(ctx context.Context, note Note) error {
	body, err := json.Marshal(note)
	if err != nil {
		return goerr.Wrap(err, "marshal note", goerr.T(memory.TagSinkSync))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return goerr.Wrap(err, "build webhook request", goerr.T(memory.TagSinkSync))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return goerr.Wrap(err, "post note", goerr.T(memory.TagSinkSync), goerr.V("url", s.url))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return goerr.New("webhook rejected note",
			goerr.T(memory.TagSinkSync),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(data)))
	}
	return nil
}
