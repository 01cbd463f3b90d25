// Package testutil provides testing utilities for the moneyclip API.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// TestServer wraps httptest.Server with convenience methods
type TestServer struct {
	Server  *httptest.Server
	BaseURL string
	// Token is sent as a bearer token when set
	Token string
	t     *testing.T
}

// ProjectRoot returns the root directory of the project.
// It works by finding the go.mod file.
func ProjectRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("could not get caller info")
	}

	// Start from this file's directory and walk up
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// TestConfig returns environment settings for a file-backed test server
// storing its data under dataDir
func TestConfig(dataDir string) map[string]string {
	return map[string]string{
		"CLIP_DATA_DIR":          dataDir,
		"CLIP_BACKEND":           "file",
		"CLIP_DEFAULT_USER":      "tester",
		"CLIP_DEBUG":             "true",
		"CLIP_LISTEN_ADDR":       ":0", // Random port
		"CLIP_SNAPSHOT_SCHEDULE": "",
		"CLIP_JWT_SECRET":        "",
		"CLIP_PASSWORD":          "",
	}
}

// SetTestEnv points the CLIP_* environment at a fresh temporary data
// directory. The previous values are restored when the test ends.
func SetTestEnv(t *testing.T) string {
	t.Helper()

	dataDir := t.TempDir()
	for k, v := range TestConfig(dataDir) {
		t.Setenv(k, v)
	}
	return dataDir
}

// NewTestServer creates a new test server using the application's router
func NewTestServer(t *testing.T, router http.Handler) *TestServer {
	t.Helper()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server:  server,
		BaseURL: server.URL,
		t:       t,
	}
}

// Do sends a request with an optional JSON body
func (ts *TestServer) Do(method, path string, body any) *http.Response {
	ts.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			ts.t.Fatalf("encode %s %s body: %v", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.BaseURL+path, reader)
	if err != nil {
		ts.t.Fatalf("build %s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// GET performs a GET request to the given path
func (ts *TestServer) GET(path string) *http.Response {
	ts.t.Helper()
	return ts.Do(http.MethodGet, path, nil)
}

// GETWithQuery performs a GET request with query parameters
func (ts *TestServer) GETWithQuery(path string, query map[string]string) *http.Response {
	ts.t.Helper()

	if len(query) > 0 {
		values := url.Values{}
		for k, v := range query {
			values.Set(k, v)
		}
		path += "?" + values.Encode()
	}
	return ts.Do(http.MethodGet, path, nil)
}

// POST sends body as JSON
func (ts *TestServer) POST(path string, body any) *http.Response {
	ts.t.Helper()
	return ts.Do(http.MethodPost, path, body)
}

// PUT sends body as JSON
func (ts *TestServer) PUT(path string, body any) *http.Response {
	ts.t.Helper()
	return ts.Do(http.MethodPut, path, body)
}

// DELETE performs a DELETE request
func (ts *TestServer) DELETE(path string) *http.Response {
	ts.t.Helper()
	return ts.Do(http.MethodDelete, path, nil)
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// ReadBody reads and returns the response body as a string
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(body)
}
