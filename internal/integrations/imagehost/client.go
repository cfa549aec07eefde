// Package imagehost wraps the third-party image hosting API that stores
// asset and profile pictures. Uploads go straight from the service to the
// host; only the returned URL is persisted.
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/assetverse/assetverse/internal/platform/gateway"
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, image io.Reader) (string, error)
}

// Client implements Uploader against an ImgBB-style host.
type Client struct {
	gw     *gateway.Client
	apiKey string
}

// NewClient constructs a Client. The API key rides as a form field, so the
// gateway runs with an empty token source.
func NewClient(gw *gateway.Client, apiKey string) *Client {
	return &Client{gw: gw, apiKey: apiKey}
}

type uploadResponse struct {
	Data struct {
		DisplayURL string `json:"display_url"`
		URL        string `json:"url"`
	} `json:"data"`
	Success bool `json:"success"`
}

// Upload posts one multipart file field and returns the nested display URL.
// Any failure aborts the enclosing flow; there is no retry here beyond the
// gateway's transport-level policy.
func (c *Client) Upload(ctx context.Context, filename string, image io.Reader) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("key", c.apiKey); err != nil {
		return "", fmt.Errorf("imagehost: write key field: %w", err)
	}
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("imagehost: create form file: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return "", fmt.Errorf("imagehost: copy image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("imagehost: close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gw.BaseURL()+"/1/upload", body)
	if err != nil {
		return "", fmt.Errorf("imagehost: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.gw.HTTPClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", gateway.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &gateway.StatusError{Status: resp.StatusCode}
	}

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("imagehost: decode response: %w", err)
	}
	url := decoded.Data.DisplayURL
	if url == "" {
		url = decoded.Data.URL
	}
	if !decoded.Success || url == "" {
		return "", fmt.Errorf("imagehost: upload rejected")
	}
	return url, nil
}
