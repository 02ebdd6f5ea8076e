package ocr

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/attachment"
	"github.com/googleapis/gax-go/v2"
)

// ImageAnnotator is the subset of the Vision client used here.
type ImageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	BatchAnnotateFiles(ctx context.Context, req *visionpb.BatchAnnotateFilesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateFilesResponse, error)
	Close() error
}

// VisionExtractor runs document text detection on PDFs and images.
type VisionExtractor struct {
	client ImageAnnotator
}

func NewVisionExtractor(ctx context.Context, cfg internal.ExtractionConfig) (*VisionExtractor, error) {
	const op = "NewVisionExtractor"

	opts := credentialOptions(cfg)
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, Wrap(op, ErrMissingCredentials, err.Error())
		}
		return nil, Wrap(op, err, "failed to create vision client")
	}
	return &VisionExtractor{client: client}, nil
}

func NewVisionExtractorWithClient(client ImageAnnotator) *VisionExtractor {
	return &VisionExtractor{client: client}
}

func (v *VisionExtractor) ExtractText(ctx context.Context, file attachment.File) (string, error) {
	if file.IsPDF() {
		return v.extractPDF(ctx, file)
	}
	return v.extractImage(ctx, file)
}

func (v *VisionExtractor) extractPDF(ctx context.Context, file attachment.File) (string, error) {
	const op = "ExtractPDF"

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  file.Content,
					MimeType: "application/pdf",
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return "", Wrap(op, ErrServiceFailed, err.Error())
	}
	if len(resp.GetResponses()) == 0 {
		return "", Wrap(op, ErrServiceFailed, "no response from vision")
	}

	fileResp := resp.GetResponses()[0]
	if fileResp.GetError() != nil {
		return "", Wrap(op, ErrServiceFailed, fileResp.GetError().GetMessage())
	}

	var text strings.Builder
	for i, page := range fileResp.GetResponses() {
		if page.GetError() != nil {
			return "", Wrap(op, ErrServiceFailed, fmt.Sprintf("page %d: %s", i+1, page.GetError().GetMessage()))
		}
		pageText := page.GetFullTextAnnotation().GetText()
		if pageText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n")
		}
		text.WriteString(pageText)
	}

	if strings.TrimSpace(text.String()) == "" {
		return "", Wrap(op, ErrEmptyDocument, file.Name)
	}
	return text.String(), nil
}

func (v *VisionExtractor) extractImage(ctx context.Context, file attachment.File) (string, error) {
	const op = "ExtractImage"

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: file.Content},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", Wrap(op, ErrServiceFailed, err.Error())
	}
	if len(resp.GetResponses()) == 0 {
		return "", Wrap(op, ErrServiceFailed, "no response from vision")
	}

	imageResp := resp.GetResponses()[0]
	if imageResp.GetError() != nil {
		return "", Wrap(op, ErrServiceFailed, imageResp.GetError().GetMessage())
	}

	text := imageResp.GetFullTextAnnotation().GetText()
	if strings.TrimSpace(text) == "" {
		return "", Wrap(op, ErrEmptyDocument, file.Name)
	}
	return text, nil
}

func (v *VisionExtractor) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
