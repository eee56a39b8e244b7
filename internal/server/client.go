package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/engine"
	"github.com/Tar-ive/brain-system-sub000/internal/importer"
	"github.com/Tar-ive/brain-system-sub000/internal/memory"
	"github.com/Tar-ive/brain-system-sub000/internal/store"
)

const (
	defaultServerURL = "http://127.0.0.1:7171"
	httpTimeout      = 10 * time.Second
)

// Client talks to a running brain server. The CLI prefers it over
// opening the store directly, so working memory stays in one process.
type Client struct {
	http      *http.Client
	serverURL string
}

// NewClient creates an API client. Respects the BRAIN_URL env var,
// falls back to http://127.0.0.1:7171.
func NewClient() *Client {
	u := os.Getenv("BRAIN_URL")
	if u == "" {
		u = defaultServerURL
	}
	return NewClientWithURL(u)
}

// NewClientWithURL creates an API client for an explicit base URL.
func NewClientWithURL(u string) *Client {
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: u,
	}
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy() bool {
	resp, err := c.http.Get(c.serverURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) get(path string, out any) error {
	resp, err := c.http.Get(c.serverURL + path)
	if err != nil {
		return goerr.Wrap(err, "GET failed", goerr.V("path", path))
	}
	defer resp.Body.Close()
	return decodeResponse(path, resp, out)
}

func (c *Client) post(path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return goerr.Wrap(err, "marshal request", goerr.V("path", path))
	}
	resp, err := c.http.Post(c.serverURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return goerr.Wrap(err, "POST failed", goerr.V("path", path))
	}
	defer resp.Body.Close()
	return decodeResponse(path, resp, out)
}

func (c *Client) delete(path string) error {
	req, err := http.NewRequest(http.MethodDelete, c.serverURL+path, nil)
	if err != nil {
		return goerr.Wrap(err, "build request", goerr.V("path", path))
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return goerr.Wrap(err, "DELETE failed", goerr.V("path", path))
	}
	defer resp.Body.Close()
	return decodeResponse(path, resp, nil)
}

// decodeResponse surfaces the server's error message on >=400 and
// unmarshals the body into out otherwise.
func decodeResponse(path string, resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return goerr.Wrap(err, "read response", goerr.V("path", path))
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return goerr.New(apiErr.Error,
				goerr.V("path", path), goerr.V("status", resp.StatusCode))
		}
		return goerr.New("request failed",
			goerr.V("path", path), goerr.V("status", resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return goerr.Wrap(err, "decode response", goerr.V("path", path))
	}
	return nil
}

// StoreEntry stores one entry through the API.
func (c *Client) StoreEntry(req StoreEntryRequest) (*engine.StoreOutcome, error) {
	var out engine.StoreOutcome
	if err := c.post("/api/entries", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEntry fetches one entry by ID.
func (c *Client) GetEntry(id string) (*memory.Entry, error) {
	var out memory.Entry
	if err := c.get("/api/entries/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchParams mirror the /api/search query parameters.
type SearchParams struct {
	Limit         int
	Dimension     string
	Tag           string
	Project       string
	Source        string
	MinImportance float64
	Threshold     *float64
}

// Search runs a ranked search through the API.
func (c *Client) Search(query string, p SearchParams) ([]engine.SearchResult, error) {
	v := url.Values{}
	v.Set("q", query)
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Dimension != "" {
		v.Set("dimension", p.Dimension)
	}
	if p.Tag != "" {
		v.Set("tag", p.Tag)
	}
	if p.Project != "" {
		v.Set("project", p.Project)
	}
	if p.Source != "" {
		v.Set("source", p.Source)
	}
	if p.MinImportance > 0 {
		v.Set("min_importance", strconv.FormatFloat(p.MinImportance, 'f', -1, 64))
	}
	if p.Threshold != nil {
		v.Set("threshold", strconv.FormatFloat(*p.Threshold, 'f', -1, 64))
	}

	var out struct {
		Results []engine.SearchResult `json:"results"`
	}
	if err := c.get("/api/search?"+v.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Admit places an entry into a session's working memory.
func (c *Client) Admit(sessionID, entryID string) ([]memory.EntryID, error) {
	var out struct {
		Evicted []memory.EntryID `json:"evicted"`
	}
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/admit"
	if err := c.post(path, map[string]string{"entry_id": entryID}, &out); err != nil {
		return nil, err
	}
	return out.Evicted, nil
}

// WorkingMemory fetches a session's working set.
func (c *Client) WorkingMemory(sessionID string) ([]memory.Entry, error) {
	var out struct {
		Entries []memory.Entry `json:"entries"`
	}
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/working-memory"
	if err := c.get(path, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// DropSession clears a session's working memory.
func (c *Client) DropSession(sessionID string) error {
	return c.delete("/api/sessions/" + url.PathEscape(sessionID))
}

// Context fetches the injectable markdown context.
func (c *Client) Context(sessionID string) (string, error) {
	path := "/api/context"
	if sessionID != "" {
		path += "?session_id=" + url.QueryEscape(sessionID)
	}
	var out struct {
		Context string `json:"context"`
	}
	if err := c.get(path, &out); err != nil {
		return "", err
	}
	return out.Context, nil
}

// Migrate runs a legacy import on the server.
func (c *Client) Migrate(source, path string) (*importer.Result, error) {
	var out importer.Result
	req := map[string]string{"source": source, "path": path}
	if err := c.post("/api/migrate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cleanup triggers a retention pass.
func (c *Client) Cleanup() (int, error) {
	var out struct {
		Removed int `json:"removed"`
	}
	if err := c.post("/api/cleanup", struct{}{}, &out); err != nil {
		return 0, err
	}
	return out.Removed, nil
}

// RetrySync re-enqueues failed replications.
func (c *Client) RetrySync(limit int) (int, error) {
	var out struct {
		Retried int `json:"retried"`
	}
	if err := c.post("/api/sync/retry", map[string]int{"limit": limit}, &out); err != nil {
		return 0, err
	}
	return out.Retried, nil
}

// SyncStatus fetches per-sink replication state for an entry.
func (c *Client) SyncStatus(entryID string) ([]store.SyncStatus, error) {
	var out struct {
		Sinks []store.SyncStatus `json:"sinks"`
	}
	if err := c.get("/api/entries/"+url.PathEscape(entryID)+"/sync", &out); err != nil {
		return nil, err
	}
	return out.Sinks, nil
}

// Stats fetches engine statistics.
func (c *Client) Stats() (*engine.Stats, error) {
	var out engine.Stats
	if err := c.get("/api/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
