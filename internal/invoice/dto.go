package invoice

import (
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/attachment"
	"github.com/frahmantamala/invoice-management/internal/extraction"
	"github.com/shopspring/decimal"
)

// CreateInvoiceDTO represents the request payload for creating an invoice.
// File is set by multipart requests and uploaded before the invoice is stored.
type CreateInvoiceDTO struct {
	VendorName    string           `json:"vendor_name"`
	InvoiceNumber string           `json:"invoice_number,omitempty"`
	Amount        *decimal.Decimal `json:"amount"`
	Currency      string           `json:"currency,omitempty"`
	Category      string           `json:"category"`
	Description   string           `json:"description,omitempty"`
	InvoiceDate   string           `json:"invoice_date"`
	DueDate       string           `json:"due_date,omitempty"`

	// Attachment fields from an earlier upload; ignored when File is set.
	FileURL       string `json:"file_url,omitempty"`
	FileName      string `json:"file_name,omitempty"`
	FileSize      int64  `json:"file_size,omitempty"`
	ExtractedText string `json:"extracted_text,omitempty"`

	File *attachment.File `json:"-"`
}

// UpdateInvoiceDTO carries a partial update: nil fields are left unchanged.
type UpdateInvoiceDTO struct {
	VendorName    *string          `json:"vendor_name,omitempty"`
	InvoiceNumber *string          `json:"invoice_number,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	Status        *Status          `json:"status,omitempty"`
	Category      *string          `json:"category,omitempty"`
	Description   *string          `json:"description,omitempty"`
	InvoiceDate   *string          `json:"invoice_date,omitempty"`
	DueDate       *string          `json:"due_date,omitempty"`
	FileURL       *string          `json:"file_url,omitempty"`
	FileName      *string          `json:"file_name,omitempty"`
	FileSize      *int64           `json:"file_size,omitempty"`
	ExtractedText *string          `json:"extracted_text,omitempty"`
}

func StatusUpdate(status Status) UpdateInvoiceDTO {
	return UpdateInvoiceDTO{Status: &status}
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	Status   Status
	Category string
	Search   string
}

type UploadResult struct {
	FileURL       string `json:"file_url"`
	FileName      string `json:"file_name"`
	FileSize      int64  `json:"file_size"`
	ExtractedText string `json:"extracted_text"`
}

// UploadResponse adds heuristic suggestions for the creation form.
type UploadResponse struct {
	UploadResult
	Suggestions extraction.Fields `json:"suggestions"`
}

type ExtractRequest struct {
	Text          string `json:"text"`
	VendorName    string `json:"vendor_name,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
}

type InvoicesResponse struct {
	Invoices []*Invoice `json:"invoices"`
	Count    int        `json:"count"`
}
