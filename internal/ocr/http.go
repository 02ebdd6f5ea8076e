package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/invoice-management/internal/core/datamodel/attachment"
	"github.com/go-resty/resty/v2"
)

// HTTPExtractor posts documents to an external content-extraction endpoint.
type HTTPExtractor struct {
	client *resty.Client
}

type extractRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content"`
}

type extractResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func NewHTTPExtractor(endpoint, apiKey string, timeout time.Duration) *HTTPExtractor {
	if timeout <= 0 {
		timeout = time.Minute
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(endpoint, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}

	return &HTTPExtractor{client: c}
}

func (h *HTTPExtractor) ExtractText(ctx context.Context, file attachment.File) (string, error) {
	const op = "ExtractText"

	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(&extractRequest{
			FileName:    file.Name,
			ContentType: file.ContentType,
			Content:     file.Content,
		}).
		Post("/extract")
	if err != nil {
		return "", Wrap(op, ErrServiceFailed, err.Error())
	}

	var er extractResponse
	if resp.StatusCode() != http.StatusOK {
		_ = json.Unmarshal(resp.Body(), &er)
		details := fmt.Sprintf("status %d", resp.StatusCode())
		if er.Error != "" {
			details = fmt.Sprintf("%s: %s", details, er.Error)
		}
		return "", Wrap(op, ErrServiceFailed, details)
	}

	if err := json.Unmarshal(resp.Body(), &er); err != nil {
		return "", Wrap(op, err, "decode response")
	}
	return er.Text, nil
}
