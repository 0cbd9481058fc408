// Package e2e drives black-box scenarios against a running veridoc server.
// Point VERIDOC_BASE_URL at the server and VERIDOC_TOKEN at a valid
// issuing-office token before running the suite. Scenarios that expect a
// "valid" verdict also need a reachable population registry (cmd/registry-sim
// works) configured in the server's registry endpoints.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// TestContext carries HTTP state shared between scenario steps.
type TestContext struct {
	baseURL string
	token   string
	client  *http.Client

	lastStatus int
	lastBody   map[string]any

	reference string
	payload   string
}

func NewTestContext() *TestContext {
	baseURL := os.Getenv("VERIDOC_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &TestContext{
		baseURL: baseURL,
		token:   os.Getenv("VERIDOC_TOKEN"),
		client:  &http.Client{},
	}
}

// POST sends a JSON body; authed requests carry the issuing-office token.
func (tc *TestContext) POST(path string, body any, authed bool) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, tc.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	return tc.do(req)
}

func (tc *TestContext) GET(path string, authed bool) error {
	req, err := http.NewRequest(http.MethodGet, tc.baseURL+path, nil)
	if err != nil {
		return err
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody = map[string]any{}
	return json.NewDecoder(resp.Body).Decode(&tc.lastBody)
}

func (tc *TestContext) LastStatus() int { return tc.lastStatus }

// ResponseField resolves a dotted path into the last JSON response body.
func (tc *TestContext) ResponseField(path string) (any, error) {
	var current any = tc.lastBody
	for _, key := range splitPath(path) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %v is not an object", path, current)
		}
		current, ok = m[key]
		if !ok {
			return nil, fmt.Errorf("field %q missing from response", path)
		}
	}
	return current, nil
}

func (tc *TestContext) SetReference(ref string) { tc.reference = ref }
func (tc *TestContext) Reference() string       { return tc.reference }
func (tc *TestContext) SetPayload(p string)     { tc.payload = p }
func (tc *TestContext) Payload() string         { return tc.payload }

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := range len(path) {
		if path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	return append(parts, path[start:])
}
