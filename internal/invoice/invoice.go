package invoice

import (
	"time"

	invoiceDatamodel "github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusPaid     Status = "paid"
	StatusOverdue  Status = "overdue"
	StatusRejected Status = "rejected"
)

const DefaultCurrency = "USD"

var Statuses = []Status{StatusPending, StatusApproved, StatusPaid, StatusOverdue, StatusRejected}

func (s Status) IsValid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether an explicit status change from s to next is
// allowed. Assigning the current status is always allowed and changes nothing.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	switch next {
	case StatusApproved:
		return s == StatusPending
	case StatusPaid:
		return s == StatusPending || s == StatusApproved || s == StatusOverdue
	case StatusOverdue:
		return s == StatusPending || s == StatusApproved
	case StatusRejected:
		return s != StatusRejected
	default:
		return false
	}
}

type Invoice struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	VendorName    string          `json:"vendor_name"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        Status          `json:"status"`
	Category      string          `json:"category"`
	Description   string          `json:"description,omitempty"`
	InvoiceDate   string          `json:"invoice_date"`
	DueDate       string          `json:"due_date,omitempty"`
	PaymentDate   *time.Time      `json:"payment_date,omitempty"`
	FileURL       string          `json:"file_url,omitempty"`
	FileName      string          `json:"file_name,omitempty"`
	FileSize      int64           `json:"file_size,omitempty"`
	ExtractedText string          `json:"extracted_text,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func NewID() string {
	return "inv_" + uuid.NewString()
}

// Clone returns a deep copy; the manager never hands out its own records.
func (i *Invoice) Clone() *Invoice {
	c := *i
	if i.PaymentDate != nil {
		pd := *i.PaymentDate
		c.PaymentDate = &pd
	}
	return &c
}

func (i *Invoice) HasAttachment() bool {
	return i.FileURL != ""
}

func ToDataModel(i *Invoice) *invoiceDatamodel.Invoice {
	return &invoiceDatamodel.Invoice{
		ID:            i.ID,
		UserID:        i.UserID,
		VendorName:    i.VendorName,
		InvoiceNumber: i.InvoiceNumber,
		Amount:        i.Amount,
		Currency:      i.Currency,
		Status:        string(i.Status),
		Category:      i.Category,
		Description:   i.Description,
		InvoiceDate:   i.InvoiceDate,
		DueDate:       i.DueDate,
		PaymentDate:   i.PaymentDate,
		FileURL:       i.FileURL,
		FileName:      i.FileName,
		FileSize:      i.FileSize,
		ExtractedText: i.ExtractedText,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

func FromDataModel(i *invoiceDatamodel.Invoice) *Invoice {
	return &Invoice{
		ID:            i.ID,
		UserID:        i.UserID,
		VendorName:    i.VendorName,
		InvoiceNumber: i.InvoiceNumber,
		Amount:        i.Amount,
		Currency:      i.Currency,
		Status:        Status(i.Status),
		Category:      i.Category,
		Description:   i.Description,
		InvoiceDate:   i.InvoiceDate,
		DueDate:       i.DueDate,
		PaymentDate:   i.PaymentDate,
		FileURL:       i.FileURL,
		FileName:      i.FileName,
		FileSize:      i.FileSize,
		ExtractedText: i.ExtractedText,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

func ToDataModelSlice(invoices []*Invoice) []*invoiceDatamodel.Invoice {
	result := make([]*invoiceDatamodel.Invoice, len(invoices))
	for i, inv := range invoices {
		result[i] = ToDataModel(inv)
	}
	return result
}

func FromDataModelSlice(invoices []*invoiceDatamodel.Invoice) []*Invoice {
	result := make([]*Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv == nil {
			continue
		}
		result = append(result, FromDataModel(inv))
	}
	return result
}
