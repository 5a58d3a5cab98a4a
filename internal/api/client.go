package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/banshee-data/gait.report/internal/httputil"
)

// Client talks to a running gait server.
type Client struct {
	base string
	http httputil.HTTPClient
}

// NewClient returns a client for the server at baseURL. A nil hc uses
// http.DefaultClient.
func NewClient(baseURL string, hc httputil.HTTPClient) *Client {
	if hc == nil {
		hc = httputil.NewStandardClient(nil)
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

// Analyze submits one analysis.
func (c *Client) Analyze(req AnalysisRequest) (*AnalysisResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Post(c.base+"/api/analyses", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("submit analysis: %w", err)
	}
	var out AnalysisResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Catalog lists the server's parameters.
func (c *Client) Catalog() ([]CatalogEntry, error) {
	resp, err := c.http.Get(c.base + "/api/catalog")
	if err != nil {
		return nil, fmt.Errorf("get catalog: %w", err)
	}
	var out []CatalogEntry
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Analysis fetches a stored run.
func (c *Client) Analysis(id string) (*AnalysisResponse, error) {
	resp, err := c.http.Get(c.base + "/api/analyses/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	var out AnalysisResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func decode(resp *http.Response, v any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
