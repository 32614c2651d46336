package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// ProbeResult is the outcome of a smoke-test call. Failures are data, not
// errors, so they can be rendered inline.
type ProbeResult struct {
	URL      string          `json:"url"`
	OK       bool            `json:"ok"`
	Status   int             `json:"status,omitempty"`
	Body     json.RawMessage `json:"body,omitempty"`
	Error    string          `json:"error,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// Probe performs a GET on an absolute URL bounded by the probe timeout.
func (c *Client) Probe(ctx context.Context, rawURL string) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	res := ProbeResult{URL: rawURL}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		res.Error = err.Error()
		res.Duration = time.Since(start)
		return res
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		res.Error = transportMessage(err)
		res.Duration = time.Since(start)
		return res
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	res.Status = resp.StatusCode
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Body = asJSON(data)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if msg := envelopeMessage(data); msg != "" {
			res.Error = msg
		} else {
			res.Error = http.StatusText(resp.StatusCode)
		}
		return res
	}
	res.OK = true
	return res
}

// ProbePath probes a path relative to the client's base URL, used for the
// backend proxy route.
func (c *Client) ProbePath(ctx context.Context, path string) ProbeResult {
	return c.Probe(ctx, c.baseURL+path)
}

// asJSON keeps valid JSON bodies verbatim and wraps anything else as a JSON
// string.
func asJSON(data []byte) json.RawMessage {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if json.Valid(data) {
		return json.RawMessage(data)
	}
	b, _ := json.Marshal(string(data))
	return b
}
