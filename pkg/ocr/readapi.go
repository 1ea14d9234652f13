package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ReadAPIProvider talks to an asynchronous cloud Read API: an analyze request
// returns an Operation-Location URL that is polled for the line results.
type ReadAPIProvider struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

// NewReadAPIProvider returns a provider for the given endpoint and subscription key.
func NewReadAPIProvider(endpoint, key string) *ReadAPIProvider {
	return &ReadAPIProvider{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Key:      key,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *ReadAPIProvider) Name() string { return "readapi" }

// Submit starts an analyze operation. Remote images are passed by URL, local
// files are uploaded as the request body.
func (p *ReadAPIProvider) Submit(ctx context.Context, imageURL string) (string, error) {
	var body io.Reader
	contentType := "application/json"
	if IsRemote(imageURL) {
		b, _ := json.Marshal(map[string]string{"url": imageURL})
		body = bytes.NewReader(b)
	} else {
		img, _, err := FetchImage(ctx, p.Client, imageURL)
		if err != nil {
			return "", err
		}
		body = bytes.NewReader(img)
		contentType = "application/octet-stream"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint+"/vision/v3.2/read/analyze", body)
	if err != nil {
		return "", fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Ocp-Apim-Subscription-Key", p.Key)
	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("analyze request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("analyze status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	loc := resp.Header.Get("Operation-Location")
	if loc == "" {
		return "", fmt.Errorf("analyze response without Operation-Location")
	}
	return loc, nil
}

type readOperation struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		ReadResults []struct {
			Lines []Line `json:"lines"`
		} `json:"readResults"`
	} `json:"analyzeResult"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Poll fetches the state of an operation. jobID is the Operation-Location URL.
func (p *ReadAPIProvider) Poll(ctx context.Context, jobID string) (JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobID, nil)
	if err != nil {
		return JobStatus{}, fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", p.Key)
	resp, err := p.Client.Do(req)
	if err != nil {
		return JobStatus{}, fmt.Errorf("poll request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return JobStatus{}, fmt.Errorf("poll status %d", resp.StatusCode)
	}
	var op readOperation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return JobStatus{}, fmt.Errorf("decode operation: %w", err)
	}
	switch strings.ToLower(op.Status) {
	case "notstarted":
		return JobStatus{State: JobSubmitted}, nil
	case "running":
		return JobStatus{State: JobRunning}, nil
	case "succeeded":
		var lines []Line
		for _, page := range op.AnalyzeResult.ReadResults {
			lines = append(lines, page.Lines...)
		}
		return JobStatus{State: JobSucceeded, Lines: lines}, nil
	case "failed":
		st := JobStatus{State: JobFailed}
		if op.Error != nil {
			st.Message = op.Error.Code + ": " + op.Error.Message
		}
		return st, nil
	}
	return JobStatus{}, fmt.Errorf("unknown operation status %q", op.Status)
}
