package ocr

import (
	"context"
	"fmt"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/attachment"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
	Close() error
}

// DocumentAIExtractor sends raw documents to a Document AI processor and keeps its text.
type DocumentAIExtractor struct {
	client        DocumentProcessor
	processorName string
}

func NewDocumentAIExtractor(ctx context.Context, cfg internal.ExtractionConfig) (*DocumentAIExtractor, error) {
	const op = "NewDocumentAIExtractor"

	location := cfg.Location
	if location == "" {
		location = "us"
	}

	opts := credentialOptions(cfg)
	if location != "us" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", location)))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, Wrap(op, err, fmt.Sprintf("failed to create Document AI client for location %s", location))
	}

	return NewDocumentAIExtractorWithClient(client, ProcessorName(cfg.ProjectID, location, cfg.ProcessorID)), nil
}

func NewDocumentAIExtractorWithClient(client DocumentProcessor, processorName string) *DocumentAIExtractor {
	return &DocumentAIExtractor{client: client, processorName: processorName}
}

func ProcessorName(projectID, location, processorID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", projectID, location, processorID)
}

func (d *DocumentAIExtractor) ExtractText(ctx context.Context, file attachment.File) (string, error) {
	const op = "ProcessDocument"

	mimeType := file.ContentType
	if file.IsPDF() {
		mimeType = "application/pdf"
	}
	if mimeType == "" {
		return "", Wrap(op, ErrUnsupportedDocument, file.Name)
	}

	req := &documentaipb.ProcessRequest{
		Name: d.processorName,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  file.Content,
				MimeType: mimeType,
			},
		},
	}

	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		return "", Wrap(op, ErrServiceFailed, err.Error())
	}

	text := resp.GetDocument().GetText()
	if strings.TrimSpace(text) == "" {
		return "", Wrap(op, ErrEmptyDocument, file.Name)
	}
	return text, nil
}

func (d *DocumentAIExtractor) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
