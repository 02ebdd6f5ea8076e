package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeInvoiceCreated       = "invoice.created"
	EventTypeInvoiceUpdated       = "invoice.updated"
	EventTypeInvoiceStatusChanged = "invoice.status_changed"
	EventTypeInvoiceDeleted       = "invoice.deleted"
	EventTypeInvoiceFileUploaded  = "invoice.file_uploaded"
)

// EventTypes lists every invoice event type, in lifecycle order.
var EventTypes = []string{
	EventTypeInvoiceCreated,
	EventTypeInvoiceUpdated,
	EventTypeInvoiceStatusChanged,
	EventTypeInvoiceDeleted,
	EventTypeInvoiceFileUploaded,
}

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type InvoiceCreatedEvent struct {
	BaseEvent
	InvoiceID string `json:"invoice_id"`
	UserID    string `json:"user_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Category  string `json:"category"`
}

func NewInvoiceCreatedEvent(invoiceID, userID, amount, currency, category string) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseEvent: newBase(EventTypeInvoiceCreated, map[string]interface{}{
			"invoice_id": invoiceID,
			"user_id":    userID,
			"amount":     amount,
			"currency":   currency,
			"category":   category,
		}),
		InvoiceID: invoiceID,
		UserID:    userID,
		Amount:    amount,
		Currency:  currency,
		Category:  category,
	}
}

type InvoiceUpdatedEvent struct {
	BaseEvent
	InvoiceID string `json:"invoice_id"`
	UserID    string `json:"user_id"`
}

func NewInvoiceUpdatedEvent(invoiceID, userID string) *InvoiceUpdatedEvent {
	return &InvoiceUpdatedEvent{
		BaseEvent: newBase(EventTypeInvoiceUpdated, map[string]interface{}{
			"invoice_id": invoiceID,
			"user_id":    userID,
		}),
		InvoiceID: invoiceID,
		UserID:    userID,
	}
}

type InvoiceStatusChangedEvent struct {
	BaseEvent
	InvoiceID  string `json:"invoice_id"`
	UserID     string `json:"user_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

func NewInvoiceStatusChangedEvent(invoiceID, userID, from, to string) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		BaseEvent: newBase(EventTypeInvoiceStatusChanged, map[string]interface{}{
			"invoice_id":  invoiceID,
			"user_id":     userID,
			"from_status": from,
			"to_status":   to,
		}),
		InvoiceID:  invoiceID,
		UserID:     userID,
		FromStatus: from,
		ToStatus:   to,
	}
}

type InvoiceDeletedEvent struct {
	BaseEvent
	InvoiceID string `json:"invoice_id"`
	UserID    string `json:"user_id"`
}

func NewInvoiceDeletedEvent(invoiceID, userID string) *InvoiceDeletedEvent {
	return &InvoiceDeletedEvent{
		BaseEvent: newBase(EventTypeInvoiceDeleted, map[string]interface{}{
			"invoice_id": invoiceID,
			"user_id":    userID,
		}),
		InvoiceID: invoiceID,
		UserID:    userID,
	}
}

type FileUploadedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

func NewFileUploadedEvent(userID, fileURL, fileName string, fileSize int64) *FileUploadedEvent {
	return &FileUploadedEvent{
		BaseEvent: newBase(EventTypeInvoiceFileUploaded, map[string]interface{}{
			"user_id":   userID,
			"file_url":  fileURL,
			"file_name": fileName,
			"file_size": fileSize,
		}),
		UserID:   userID,
		FileURL:  fileURL,
		FileName: fileName,
		FileSize: fileSize,
	}
}
