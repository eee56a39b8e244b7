package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// VaultSink writes notes as markdown files with YAML frontmatter into
// a local vault directory, one subdirectory per folder. Writing the
// same note twice overwrites the file, which keeps retries idempotent.
type VaultSink struct {
	name string
	root string
}

func NewVault(name, root string) *VaultSink {
	return &VaultSink{name: name, root: root}
}

func (s *VaultSink) Name() string { return s.name }

type frontmatter struct {
	Title   string   `yaml:"title"`
	Tags    []string `yaml:"tags,omitempty"`
	Created string   `yaml:"created"`
}

func (s *VaultSink) WriteNote(ctx context.Context, note Note) error {
	if err := ctx.Err(); err != nil {
		return goerr.Wrap(err, "vault write canceled", goerr.T(memory.TagSinkSync))
	}

	dir := filepath.Join(s.root, slug(note.Folder))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return goerr.Wrap(err, "create vault folder", goerr.T(memory.TagSinkSync), goerr.V("dir", dir))
	}

	fm, err := yaml.Marshal(frontmatter{
		Title:   note.Title,
		Tags:    note.Tags,
		Created: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return goerr.Wrap(err, "marshal frontmatter", goerr.T(memory.TagSinkSync))
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	b.WriteString(note.Content)
	b.WriteString("\n")

	path := filepath.Join(dir, slug(note.Title)+".md")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return goerr.Wrap(err, "write note", goerr.T(memory.TagSinkSync), goerr.V("path", path))
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return goerr.Wrap(err, "finalize note", goerr.T(memory.TagSinkSync), goerr.V("path", path))
	}
	return nil
}

// slug converts a title or folder name to a safe filename component.
func slug(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "untitled"
	}
	return out
}
