// Package sink replicates stored entries to external note systems.
// Replication is best effort: the local store is always the source of
// truth and a sink failure never fails a store operation.
package sink

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// Note is the normalized payload every sink receives.
type Note struct {
	Title   string   `json:"title"`
	Folder  string   `json:"folder"`
	Tags    []string `json:"tags,omitempty"`
	Content string   `json:"content"`
}

// Sink writes notes to one external destination.
type Sink interface {
	Name() string
	WriteNote(ctx context.Context, note Note) error
}

// Config describes one sink in the configuration file.
type Config struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	URL  string `yaml:"url,omitempty" json:"url,omitempty"`
}

// New builds a sink from its configuration.
func New(cfg Config) (Sink, error) {
	switch cfg.Type {
	case "vault":
		if cfg.Path == "" {
			return nil, goerr.New("vault sink requires a path",
				goerr.T(memory.TagValidation), goerr.V("sink", cfg.Name))
		}
		return NewVault(cfg.Name, cfg.Path), nil
	case "webhook":
		if cfg.URL == "" {
			return nil, goerr.New("webhook sink requires a url",
				goerr.T(memory.TagValidation), goerr.V("sink", cfg.Name))
		}
		return NewWebhook(cfg.Name, cfg.URL), nil
	default:
		return nil, goerr.New("unknown sink type",
			goerr.T(memory.TagValidation), goerr.V("type", cfg.Type))
	}
}

const maxTitleLen = 80

// NoteFor derives the sink payload from an entry. The title is the
// first content line, the folder is the entry's first dimension.
func NoteFor(e *memory.Entry) Note {
	title := e.Content
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(title)
	if len(title) > maxTitleLen {
		cut := title[:maxTitleLen]
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
		title = cut
	}

	folder := memory.DimGeneral
	if len(e.Dimensions) > 0 {
		folder = e.Dimensions[0]
	}

	return Note{
		Title:   title,
		Folder:  folder,
		Tags:    append([]string(nil), e.Tags...),
		Content: e.Content,
	}
}
