package importer

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// JSONLSource reads one JSON record per line. Blank lines are ignored;
// malformed lines surface as RecordErrors with their line number.
type JSONLSource struct {
	name    string
	file    *os.File
	scanner *bufio.Scanner
	line    int
	err     error
}

type jsonlRecord struct {
	Content        string          `json:"content"`
	Tags           []string        `json:"tags"`
	Dimensions     []string        `json:"dimensions"`
	Importance     *float64        `json:"importance"`
	ProjectContext string          `json:"project_context"`
	SourceSystem   string          `json:"source_system"`
	CreatedAt      json.RawMessage `json:"created_at"`
	Metadata       memory.Metadata `json:"metadata"`
}

func NewJSONLSource(name, path string) (*JSONLSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "open jsonl source", goerr.T(memory.TagStorage), goerr.V("path", path))
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB line buffer
	return &JSONLSource{name: name, file: f, scanner: scanner}, nil
}

func (s *JSONLSource) Name() string { return s.name }

func (s *JSONLSource) Next() (*Record, error) {
	if s.err != nil {
		return nil, s.err
	}

	for s.scanner.Scan() {
		s.line++
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw jsonlRecord
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, &RecordError{Index: s.line, Reason: err.Error()}
		}

		ts, err := parseTimestamp(raw.CreatedAt)
		if err != nil {
			return nil, &RecordError{Index: s.line, Reason: err.Error()}
		}

		return &Record{
			Index:          s.line,
			Content:        raw.Content,
			Tags:           raw.Tags,
			Dimensions:     raw.Dimensions,
			Importance:     raw.Importance,
			ProjectContext: raw.ProjectContext,
			SourceSystem:   raw.SourceSystem,
			Timestamp:      ts,
			Metadata:       raw.Metadata,
		}, nil
	}

	if err := s.scanner.Err(); err != nil {
		s.err = goerr.Wrap(err, "scan jsonl source", goerr.T(memory.TagStorage))
		return nil, s.err
	}
	s.err = io.EOF
	return nil, io.EOF
}

func (s *JSONLSource) Close() error {
	return s.file.Close()
}

// parseTimestamp accepts RFC3339 strings and epoch numbers (seconds or
// milliseconds). Absent timestamps come back as the zero time.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return time.Time{}, nil
		}
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, goerr.Wrap(err, "parse created_at")
		}
		return ts.UTC(), nil
	}

	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, goerr.New("created_at is neither RFC3339 nor epoch", goerr.V("raw", string(raw)))
	}
	return epochToTime(n), nil
}

// epochToTime treats values above 1e12 as milliseconds, else seconds.
func epochToTime(n int64) time.Time {
	if n > 1_000_000_000_000 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
