package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/auth"
	"github.com/frahmantamala/invoice-management/internal/core/common/validation"
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/attachment"
	invoiceDatamodel "github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
	"github.com/frahmantamala/invoice-management/internal/core/events"
	"github.com/frahmantamala/invoice-management/internal/metrics"
	"github.com/frahmantamala/invoice-management/internal/ocr"
	"github.com/frahmantamala/invoice-management/internal/upload"
)

const (
	maxVendorNameLength  = 200
	maxDescriptionLength = 2000
	defaultRecentLimit   = 5
)

// Store persists a user's whole invoice collection as one snapshot.
type Store interface {
	Load(ctx context.Context) ([]*invoiceDatamodel.Invoice, error)
	Save(ctx context.Context, invoices []*invoiceDatamodel.Invoice) error
}

// StoreFactory returns the store holding the collection of userID.
type StoreFactory func(userID string) Store

type CategoryValidator interface {
	CanonicalName(name string) (string, bool)
}

type Dependencies struct {
	Stores      StoreFactory
	Uploads     upload.Storage
	Extractor   ocr.Extractor
	Categories  CategoryValidator
	Events      events.Publisher
	MaxFileSize int64
}

// Manager owns one user's in-memory invoice collection. Mutations are
// serialized and written through the store before they become visible.
type Manager struct {
	deps   Dependencies
	logger *slog.Logger
	now    func() time.Time

	mu          sync.RWMutex
	baseCtx     context.Context
	user        *auth.User
	store       Store
	invoices    []*Invoice
	loadErr     error
	unsubscribe func()
}

func NewManager(deps Dependencies, logger *slog.Logger) *Manager {
	return &Manager{
		deps:    deps,
		logger:  logger,
		now:     time.Now,
		baseCtx: context.Background(),
	}
}

// WithClock replaces the time source, for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Init subscribes to auth state. The collection is loaded whenever a user
// becomes present and dropped when the user signs out.
func (m *Manager) Init(ctx context.Context, source auth.StateSource) {
	m.mu.Lock()
	if m.unsubscribe != nil {
		m.mu.Unlock()
		return
	}
	m.baseCtx = context.WithoutCancel(ctx)
	m.mu.Unlock()

	unsubscribe := source.OnAuthStateChanged(m.onAuthStateChanged)

	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
}

// Dispose unsubscribes from auth state and drops the collection.
func (m *Manager) Dispose() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.user = nil
	m.store = nil
	m.invoices = nil
	m.loadErr = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (m *Manager) onAuthStateChanged(state auth.State) {
	if state.IsLoading {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if state.User == nil {
		if m.user != nil {
			m.logger.Info("user signed out, dropping invoices", "user_id", m.user.ID)
		}
		m.user = nil
		m.store = nil
		m.invoices = nil
		m.loadErr = nil
		return
	}

	if m.user != nil && m.user.ID == state.User.ID {
		return
	}

	user := *state.User
	m.user = &user
	m.store = m.deps.Stores(user.ID)
	m.invoices = m.loadLocked(user.ID)
}

// loadLocked leaves the collection empty and read-only when the store cannot
// be read, so a later save never replaces data it has not seen.
func (m *Manager) loadLocked(userID string) []*Invoice {
	records, err := m.store.Load(m.baseCtx)
	metrics.ObserveOperation("load", err)
	m.loadErr = err
	if err != nil {
		m.logger.Error("failed to load invoices", "error", err, "user_id", userID)
		return nil
	}

	invoices := FromDataModelSlice(records)
	m.logger.Info("invoices loaded", "user_id", userID, "count", len(invoices))
	return invoices
}

// LoadErr reports why the current user's collection could not be loaded.
func (m *Manager) LoadErr() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadErr
}

func (m *Manager) currentUser() (*auth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil, internal.ErrNotAuthenticated
	}
	u := *m.user
	return &u, nil
}

// Create validates dto, uploads its file if any, then appends and persists
// the new invoice. Nothing is committed in memory when the save fails.
func (m *Manager) Create(ctx context.Context, dto CreateInvoiceDTO) (result *Invoice, err error) {
	defer func() { metrics.ObserveOperation("create", err) }()

	user, err := m.currentUser()
	if err != nil {
		return nil, err
	}

	inv, verr := m.newInvoice(user.ID, dto)
	if verr != nil {
		m.logger.Warn("invoice validation failed", "error", verr, "user_id", user.ID)
		return nil, verr
	}

	if dto.File != nil {
		uploaded, err := m.upload(ctx, user.ID, *dto.File)
		if err != nil {
			return nil, err
		}
		inv.FileURL = uploaded.FileURL
		inv.FileName = uploaded.FileName
		inv.FileSize = uploaded.FileSize
		inv.ExtractedText = uploaded.ExtractedText
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil || m.user.ID != user.ID {
		return nil, internal.ErrNotAuthenticated
	}

	now := m.now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	next := make([]*Invoice, len(m.invoices), len(m.invoices)+1)
	copy(next, m.invoices)
	next = append(next, inv)

	if err := m.persistLocked(ctx, next); err != nil {
		return nil, err
	}
	m.invoices = next

	m.logger.Info("invoice created",
		"invoice_id", inv.ID,
		"user_id", user.ID,
		"amount", inv.Amount.String(),
		"category", inv.Category)
	m.publish(ctx, events.NewInvoiceCreatedEvent(inv.ID, user.ID, inv.Amount.String(), inv.Currency, inv.Category))

	return inv.Clone(), nil
}

func (m *Manager) newInvoice(userID string, dto CreateInvoiceDTO) (*Invoice, *internal.AppError) {
	inv := &Invoice{
		ID:            NewID(),
		UserID:        userID,
		VendorName:    strings.TrimSpace(dto.VendorName),
		InvoiceNumber: strings.TrimSpace(dto.InvoiceNumber),
		Currency:      normalizeCurrency(dto.Currency),
		Status:        StatusPending,
		Category:      dto.Category,
		Description:   strings.TrimSpace(dto.Description),
		InvoiceDate:   strings.TrimSpace(dto.InvoiceDate),
		DueDate:       strings.TrimSpace(dto.DueDate),
	}
	if dto.Amount != nil {
		inv.Amount = *dto.Amount
	}
	if dto.File == nil {
		inv.FileURL = dto.FileURL
		inv.FileName = dto.FileName
		inv.FileSize = dto.FileSize
		inv.ExtractedText = dto.ExtractedText
	}

	v := validation.NewValidator()
	v.Field("amount", dto.Amount).Required().NonNegative(internal.ErrCodeInvalidAmount)
	m.addInvoiceRules(v, inv)
	if dto.File != nil {
		v.Field("file", *dto.File).Custom(m.fileRule)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	inv.Category, _ = m.deps.Categories.CanonicalName(inv.Category)
	return inv, nil
}

func (m *Manager) addInvoiceRules(v *validation.ValidationBuilder, inv *Invoice) {
	v.Field("vendor_name", inv.VendorName).Required().MaxLength(maxVendorNameLength)
	v.Field("currency", inv.Currency).Currency()
	v.Field("category", inv.Category).Required().Custom(m.categoryRule)
	v.Field("description", inv.Description).MaxLength(maxDescriptionLength)
	v.Field("invoice_date", inv.InvoiceDate).Required().Date()
	v.Field("due_date", inv.DueDate).Date().NotBefore(inv.InvoiceDate, "invoice_date")
}

func (m *Manager) categoryRule(value interface{}) *internal.AppError {
	name, _ := value.(string)
	if _, ok := m.deps.Categories.CanonicalName(name); !ok {
		return internal.NewValidationFieldError("category",
			fmt.Sprintf("unknown category %q", name), internal.ErrCodeInvalidCategory)
	}
	return nil
}

func (m *Manager) fileRule(value interface{}) *internal.AppError {
	file, _ := value.(attachment.File)
	return validation.ValidateFile(file, m.deps.MaxFileSize)
}

// Update merges the non-nil fields of dto into the invoice, checks the
// status transition and persists the collection.
func (m *Manager) Update(ctx context.Context, id string, dto UpdateInvoiceDTO) (result *Invoice, err error) {
	defer func() { metrics.ObserveOperation("update", err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		return nil, internal.ErrNotAuthenticated
	}

	idx := m.indexLocked(id)
	if idx < 0 {
		return nil, notFound(id)
	}
	current := m.invoices[idx]

	updated := current.Clone()
	applyUpdate(updated, dto)

	if dto.Status != nil {
		if !dto.Status.IsValid() {
			return nil, internal.NewValidationFieldError("status",
				fmt.Sprintf("unknown status %q", *dto.Status), internal.ErrCodeInvalidStatus)
		}
		if !current.Status.CanTransitionTo(*dto.Status) {
			return nil, internal.NewValidationError(
				fmt.Sprintf("cannot change status from %s to %s", current.Status, *dto.Status),
				internal.ErrCodeInvalidStatusTransition)
		}
	}

	v := validation.NewValidator()
	v.Field("amount", updated.Amount).NonNegative(internal.ErrCodeInvalidAmount)
	m.addInvoiceRules(v, updated)
	if verr := v.Validate(); verr != nil {
		return nil, verr
	}
	updated.Category, _ = m.deps.Categories.CanonicalName(updated.Category)

	now := m.nextTimestamp(current.UpdatedAt)
	updated.UpdatedAt = now
	if updated.Status == StatusPaid && current.Status != StatusPaid {
		paidAt := now
		updated.PaymentDate = &paidAt
	}

	next := make([]*Invoice, len(m.invoices))
	copy(next, m.invoices)
	next[idx] = updated

	if err := m.persistLocked(ctx, next); err != nil {
		return nil, err
	}
	m.invoices = next

	m.logger.Info("invoice updated", "invoice_id", id, "user_id", m.user.ID, "status", updated.Status)
	m.publish(ctx, events.NewInvoiceUpdatedEvent(id, m.user.ID))
	if updated.Status != current.Status {
		m.publish(ctx, events.NewInvoiceStatusChangedEvent(id, m.user.ID, string(current.Status), string(updated.Status)))
	}

	return updated.Clone(), nil
}

func applyUpdate(inv *Invoice, dto UpdateInvoiceDTO) {
	if dto.VendorName != nil {
		inv.VendorName = strings.TrimSpace(*dto.VendorName)
	}
	if dto.InvoiceNumber != nil {
		inv.InvoiceNumber = strings.TrimSpace(*dto.InvoiceNumber)
	}
	if dto.Amount != nil {
		inv.Amount = *dto.Amount
	}
	if dto.Currency != nil {
		inv.Currency = normalizeCurrency(*dto.Currency)
	}
	if dto.Status != nil {
		inv.Status = *dto.Status
	}
	if dto.Category != nil {
		inv.Category = *dto.Category
	}
	if dto.Description != nil {
		inv.Description = strings.TrimSpace(*dto.Description)
	}
	if dto.InvoiceDate != nil {
		inv.InvoiceDate = strings.TrimSpace(*dto.InvoiceDate)
	}
	if dto.DueDate != nil {
		inv.DueDate = strings.TrimSpace(*dto.DueDate)
	}
	if dto.FileURL != nil {
		inv.FileURL = *dto.FileURL
	}
	if dto.FileName != nil {
		inv.FileName = *dto.FileName
	}
	if dto.FileSize != nil {
		inv.FileSize = *dto.FileSize
	}
	if dto.ExtractedText != nil {
		inv.ExtractedText = *dto.ExtractedText
	}
}

// Delete removes the invoice. Unknown ids fail with a not-found error.
func (m *Manager) Delete(ctx context.Context, id string) (err error) {
	defer func() { metrics.ObserveOperation("delete", err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		return internal.ErrNotAuthenticated
	}

	idx := m.indexLocked(id)
	if idx < 0 {
		return notFound(id)
	}

	next := make([]*Invoice, 0, len(m.invoices)-1)
	next = append(next, m.invoices[:idx]...)
	next = append(next, m.invoices[idx+1:]...)

	if err := m.persistLocked(ctx, next); err != nil {
		return err
	}
	m.invoices = next

	m.logger.Info("invoice deleted", "invoice_id", id, "user_id", m.user.ID)
	m.publish(ctx, events.NewInvoiceDeletedEvent(id, m.user.ID))
	return nil
}

// UploadFile stores the file and extracts its text. Only the upload can fail;
// a failed extraction yields empty text.
func (m *Manager) UploadFile(ctx context.Context, file attachment.File) (result *UploadResult, err error) {
	defer func() { metrics.ObserveOperation("upload", err) }()

	user, err := m.currentUser()
	if err != nil {
		return nil, err
	}

	if verr := validation.ValidateFile(file, m.deps.MaxFileSize); verr != nil {
		return nil, verr
	}

	result, err = m.upload(ctx, user.ID, file)
	if err != nil {
		return nil, err
	}

	m.publish(ctx, events.NewFileUploadedEvent(user.ID, result.FileURL, result.FileName, result.FileSize))
	return result, nil
}

func (m *Manager) upload(ctx context.Context, userID string, file attachment.File) (*UploadResult, error) {
	if m.deps.Uploads == nil {
		return nil, internal.NewExternalError("file storage is not configured", internal.ErrCodeUploadFailed, nil)
	}

	size := file.Size
	if size == 0 {
		size = int64(len(file.Content))
	}

	path := UploadPath(userID, file.Name, m.now())
	saved, err := m.deps.Uploads.Save(ctx, path, file, upload.Options{Upsert: true})
	if err != nil {
		m.logger.Error("file upload failed", "error", err, "path", path, "user_id", userID)
		return nil, internal.ErrUploadFailed.WithCause(err)
	}

	m.logger.Info("file uploaded", "path", path, "user_id", userID, "size", size)

	return &UploadResult{
		FileURL:       saved.PublicURL,
		FileName:      file.Name,
		FileSize:      size,
		ExtractedText: m.extractText(ctx, file),
	}, nil
}

func (m *Manager) extractText(ctx context.Context, file attachment.File) string {
	if m.deps.Extractor == nil {
		return ""
	}

	text, err := m.deps.Extractor.ExtractText(ctx, file)
	if err != nil {
		metrics.ExtractionFailed()
		m.logger.Warn("failed to extract text from file", "error", err, "file_name", file.Name)
		return ""
	}
	return text
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UploadPath is invoices/{userID}/{unixMillis}-{name}, with the file name
// reduced to characters safe in an object key.
func UploadPath(userID, fileName string, at time.Time) string {
	name := fileName
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = unsafePathChars.ReplaceAllString(name, "_")
	if name == "" || strings.Trim(name, ".") == "" {
		name = "file"
	}
	return fmt.Sprintf("invoices/%s/%d-%s", userID, at.UnixMilli(), name)
}

func (m *Manager) Get(ctx context.Context, id string) (*Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.user == nil {
		return nil, internal.ErrNotAuthenticated
	}
	idx := m.indexLocked(id)
	if idx < 0 {
		return nil, notFound(id)
	}
	return m.invoices[idx].Clone(), nil
}

// List returns matching invoices in collection order.
func (m *Manager) List(ctx context.Context, filter Filter) ([]*Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.user == nil {
		return nil, internal.ErrNotAuthenticated
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	result := make([]*Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(inv.Category, filter.Category) {
			continue
		}
		if search != "" && !matchesSearch(inv, search) {
			continue
		}
		result = append(result, inv.Clone())
	}
	return result, nil
}

func matchesSearch(inv *Invoice, search string) bool {
	for _, field := range []string{inv.VendorName, inv.ID, inv.InvoiceNumber, inv.Description} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// Recent returns up to limit invoices, newest first.
func (m *Manager) Recent(ctx context.Context, limit int) ([]*Invoice, error) {
	invoices, err := m.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	sort.SliceStable(invoices, func(i, j int) bool {
		return invoices[i].CreatedAt.After(invoices[j].CreatedAt)
	})
	if len(invoices) > limit {
		invoices = invoices[:limit]
	}
	return invoices, nil
}

// Stats is computed from the current collection on every call.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ComputeStats(m.invoices)
}

func (m *Manager) indexLocked(id string) int {
	for i, inv := range m.invoices {
		if inv.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) persistLocked(ctx context.Context, next []*Invoice) error {
	if m.loadErr != nil {
		return internal.ErrPersistenceFailed.WithCause(fmt.Errorf("collection was not loaded: %w", m.loadErr))
	}

	err := m.store.Save(ctx, ToDataModelSlice(next))
	metrics.ObserveOperation("save", err)
	if err != nil {
		m.logger.Error("failed to persist invoices", "error", err, "user_id", m.user.ID, "count", len(next))
		return internal.ErrPersistenceFailed.WithCause(err)
	}
	return nil
}

// nextTimestamp returns now, or prev plus a nanosecond when the clock has
// not moved past prev.
func (m *Manager) nextTimestamp(prev time.Time) time.Time {
	now := m.now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

func (m *Manager) publish(ctx context.Context, event events.Event) {
	if m.deps.Events == nil {
		return
	}
	if err := m.deps.Events.Publish(ctx, event); err != nil {
		m.logger.Warn("failed to publish invoice event", "error", err, "event_type", event.EventType())
	}
}

func notFound(id string) *internal.AppError {
	return internal.NewNotFoundError(fmt.Sprintf("invoice %s not found", id), internal.ErrInvoiceNotFound.Code)
}

func normalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	return code
}
