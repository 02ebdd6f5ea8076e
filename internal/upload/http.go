package upload

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/invoice-management/internal/core/datamodel/attachment"
	"github.com/go-resty/resty/v2"
)

// HTTPStorage talks to an object storage API exposing
// POST {base}/object/{bucket}/{path} and public reads under
// {base}/object/public/{bucket}/{path}.
type HTTPStorage struct {
	client  *resty.Client
	baseURL string
	bucket  string
}

func NewHTTPStorage(baseURL, bucket, apiKey string, timeout time.Duration) *HTTPStorage {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL = strings.TrimRight(baseURL, "/")

	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	if apiKey != "" {
		c.SetAuthToken(apiKey)
		c.SetHeader("apikey", apiKey)
	}

	return &HTTPStorage{client: c, baseURL: baseURL, bucket: bucket}
}

func (s *HTTPStorage) Save(ctx context.Context, path string, file attachment.File, opts Options) (*Result, error) {
	path = strings.TrimLeft(path, "/")
	if path == "" || strings.Contains(path, "..") {
		return nil, ErrInvalidPath
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", strconv.FormatBool(opts.Upsert)).
		SetBody(file.Content).
		Post(s.objectPath(path))
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusConflict:
		return nil, ErrAlreadyExists
	case resp.StatusCode() < 200 || resp.StatusCode() >= 300:
		return nil, fmt.Errorf("upload status %d: %s", resp.StatusCode(), resp.String())
	}

	return &Result{
		Path:      path,
		PublicURL: s.baseURL + "/object/public/" + s.bucket + "/" + escapePath(path),
	}, nil
}

func (s *HTTPStorage) objectPath(path string) string {
	return "/object/" + s.bucket + "/" + escapePath(path)
}

func escapePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
