package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the persisted form of an invoice. The full collection of a user is
// stored as one JSON array of these records, so the JSON keys are the storage
// format and must stay stable. Amounts are written as JSON numbers once the
// binary enables decimal.MarshalJSONWithoutQuotes; quoted amounts still load.
type Invoice struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	VendorName    string          `json:"vendorName"`
	InvoiceNumber string          `json:"invoiceNumber,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	Category      string          `json:"category"`
	Description   string          `json:"description,omitempty"`
	InvoiceDate   string          `json:"invoiceDate"`
	DueDate       string          `json:"dueDate,omitempty"`
	PaymentDate   *time.Time      `json:"paymentDate,omitempty"`
	FileURL       string          `json:"fileUrl,omitempty"`
	FileName      string          `json:"fileName,omitempty"`
	FileSize      int64           `json:"fileSize,omitempty"`
	ExtractedText string          `json:"extractedText,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Blob is a row of the SQL blob backend: one serialized collection per key.
type Blob struct {
	Key       string    `gorm:"column:blob_key;primaryKey;size:255"`
	Data      []byte    `gorm:"column:data;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Blob) TableName() string {
	return "invoice_blobs"
}
