package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Uploader is the content-host collaborator: it takes raw bytes and
// returns the address the core stores. Binary storage itself lives
// outside this service.
type Uploader interface {
	Store(ctx context.Context, data []byte, mimeType string) (string, error)
}

// HTTPUploader posts bytes to a content host that answers with the
// stored object's URL in the response body.
type HTTPUploader struct {
	endpoint string
	client   *http.Client
}

func NewHTTPUploader(endpoint string) *HTTPUploader {
	return &HTTPUploader{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (u *HTTPUploader) Store(ctx context.Context, data []byte, mimeType string) (string, error) {
	if u.endpoint == "" {
		return "", fmt.Errorf("no upload endpoint configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mimeType)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload failed: content host returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(body)), nil
}
