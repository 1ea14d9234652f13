package ocr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// maxImageBytes caps downloaded screenshots.
const maxImageBytes = 10 << 20

// IsRemote reports whether ref is an http(s) URL rather than a local file.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// LocalPath strips a file:// prefix from ref.
func LocalPath(ref string) string {
	return strings.TrimPrefix(ref, "file://")
}

// FetchImage loads a screenshot from an http(s) URL or a local path and returns
// its bytes and content type.
func FetchImage(ctx context.Context, client *http.Client, ref string) ([]byte, string, error) {
	if !IsRemote(ref) {
		b, err := os.ReadFile(LocalPath(ref))
		if err != nil {
			return nil, "", fmt.Errorf("read image: %w", err)
		}
		return b, http.DetectContentType(b), nil
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build image request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download image: status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %w", err)
	}
	if len(b) > maxImageBytes {
		return nil, "", fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(b)
	}
	return b, ct, nil
}
