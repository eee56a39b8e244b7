package sink

import (
	"testing"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

func TestNewSink(t *testing.T) {
	s, err := New(Config{Name: "notes", Type: "vault", Path: "/tmp/vault"})
	if err != nil {
		t.Fatalf("New vault: %v", err)
	}
	if s.Name() != "notes" {
		t.Errorf("name = %q, want notes", s.Name())
	}

	s, err = New(Config{Name: "hook", Type: "webhook", URL: "http://127.0.0.1:9/notes"})
	if err != nil {
		t.Fatalf("New webhook: %v", err)
	}
	if _, ok := s.(*WebhookSink); !ok {
		t.Errorf("got %T, want *WebhookSink", s)
	}
}

func TestNewSinkInvalid(t *testing.T) {
	// Missing path, missing url, unknown type.
	cases := []Config{
		{Name: "v", Type: "vault"},
		{Name: "w", Type: "webhook"},
		{Name: "x", Type: "carrier-pigeon"},
	}
	for _, cfg := range cases {
		_, err := New(cfg)
		if err == nil {
			t.Errorf("New(%+v): expected error", cfg)
			continue
		}
		if !goerr.HasTag(err, memory.TagValidation) {
			t.Errorf("New(%+v): error %v missing validation tag", cfg, err)
		}
	}
}
