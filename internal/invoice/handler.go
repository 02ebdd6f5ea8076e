package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/auth"
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/attachment"
	"github.com/frahmantamala/invoice-management/internal/extraction"
	"github.com/frahmantamala/invoice-management/internal/transport"
	"github.com/frahmantamala/invoice-management/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
)

// multipartOverhead is the room left for form fields next to the file.
const multipartOverhead = 1 << 20

type ServiceAPI interface {
	Create(ctx context.Context, dto CreateInvoiceDTO) (*Invoice, error)
	Update(ctx context.Context, id string, dto UpdateInvoiceDTO) (*Invoice, error)
	Delete(ctx context.Context, id string) error
	UploadFile(ctx context.Context, file attachment.File) (*UploadResult, error)
	Get(ctx context.Context, id string) (*Invoice, error)
	List(ctx context.Context, filter Filter) ([]*Invoice, error)
	Recent(ctx context.Context, limit int) ([]*Invoice, error)
	Stats() Stats
}

// SessionProvider resolves the invoice service of an authenticated user.
type SessionProvider interface {
	ServiceFor(ctx context.Context, user *auth.User) (ServiceAPI, error)
	SignOut(userID string)
}

type Handler struct {
	*transport.BaseHandler
	Sessions    SessionProvider
	MaxFileSize int64
}

func NewHandler(baseHandler *transport.BaseHandler, sessions SessionProvider, maxFileSize int64) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Sessions:    sessions,
		MaxFileSize: maxFileSize,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signout", h.SignOut)
	r.Route("/invoices", func(ir chi.Router) {
		ir.Get("/", h.ListInvoices)
		ir.Post("/", h.CreateInvoice)
		ir.Get("/stats", h.GetStats)
		ir.Get("/recent", h.GetRecent)
		ir.Post("/upload", h.UploadFile)
		ir.Post("/extract", h.ExtractFields)
		ir.Get("/{id}", h.GetInvoice)
		ir.Patch("/{id}", h.UpdateInvoice)
		ir.Delete("/{id}", h.DeleteInvoice)
		ir.Post("/{id}/approve", h.transition(StatusApproved))
		ir.Post("/{id}/pay", h.transition(StatusPaid))
		ir.Post("/{id}/reject", h.transition(StatusRejected))
	})
}

func (h *Handler) service(w http.ResponseWriter, r *http.Request) (ServiceAPI, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.Logger.Error("invoice handler: user not found in context", "path", r.URL.Path)
		h.HandleServiceError(w, internal.ErrNotAuthenticated)
		return nil, false
	}

	svc, err := h.Sessions.ServiceFor(r.Context(), user)
	if err != nil {
		logger.From(r.Context()).Error("invoice handler: session unavailable", "error", err)
		h.HandleServiceError(w, err)
		return nil, false
	}
	return svc, true
}

// SignOut drops the caller's in-memory collection. Persisted invoices are
// reloaded on the next request.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrNotAuthenticated)
		return
	}

	h.Sessions.SignOut(user.ID)
	logger.From(r.Context()).Info("user signed out")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := Filter{
		Status:   Status(strings.ToLower(q.Get("status"))),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	if filter.Status == "all" {
		filter.Status = ""
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		h.HandleServiceError(w, internal.NewValidationFieldError("status", "unknown status filter", internal.ErrCodeInvalidStatus))
		return
	}

	invoices, err := svc.List(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, InvoicesResponse{Invoices: invoices, Count: len(invoices)})
}

// CreateInvoice accepts JSON, or a multipart form with an optional file part.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	var dto CreateInvoiceDTO
	if isMultipart(r) {
		form, err := h.parseMultipart(w, r)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		dto, err = createDTOFromForm(form)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		file, err := readFormFile(form, "file")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			h.HandleServiceError(w, err)
			return
		}
		dto.File = file
	} else if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		logger.From(r.Context()).Warn("CreateInvoice: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	invoice, err := svc.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, invoice)
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	invoice, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, invoice)
}

func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	var dto UpdateInvoiceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		logger.From(r.Context()).Warn("UpdateInvoice: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	invoice, err := svc.Update(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, invoice)
}

func (h *Handler) transition(status Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := h.service(w, r)
		if !ok {
			return
		}

		invoice, err := svc.Update(r.Context(), chi.URLParam(r, "id"), StatusUpdate(status))
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		h.WriteJSON(w, http.StatusOK, invoice)
	}
}

func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	if err := svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, svc.Stats())
}

func (h *Handler) GetRecent(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	limit := defaultRecentLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	invoices, err := svc.Recent(r.Context(), limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, InvoicesResponse{Invoices: invoices, Count: len(invoices)})
}

// UploadFile stores the file and answers with its URL, the extracted text and
// field suggestions for the creation form.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	form, err := h.parseMultipart(w, r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	file, err := readFormFile(form, "file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			err = internal.NewValidationFieldError("file", "file is required", internal.ErrCodeValidationFailed)
		}
		h.HandleServiceError(w, err)
		return
	}

	result, err := svc.UploadFile(r.Context(), *file)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, UploadResponse{
		UploadResult: *result,
		Suggestions: extraction.Extract(result.ExtractedText, extraction.Prefilled{
			VendorName:    formValue(form, "vendor_name"),
			InvoiceNumber: formValue(form, "invoice_number"),
		}),
	})
}

func (h *Handler) ExtractFields(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.WriteJSON(w, http.StatusOK, extraction.Extract(req.Text, extraction.Prefilled{
		VendorName:    req.VendorName,
		InvoiceNumber: req.InvoiceNumber,
	}))
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, internal.NewValidationFieldError("file", "file is too large", internal.ErrCodeFileTooLarge)
		}
		return nil, internal.NewValidationError("invalid multipart form", internal.ErrCodeValidationFailed)
	}
	return r.MultipartForm, nil
}

func readFormFile(form *multipart.Form, field string) (*attachment.File, error) {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, http.ErrMissingFile
	}
	header := headers[0]

	f, err := header.Open()
	if err != nil {
		return nil, internal.NewInternalError("failed to open uploaded file", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, internal.NewInternalError("failed to read uploaded file", err)
	}

	return &attachment.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     content,
	}, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func createDTOFromForm(form *multipart.Form) (CreateInvoiceDTO, error) {
	dto := CreateInvoiceDTO{
		VendorName:    formValue(form, "vendor_name"),
		InvoiceNumber: formValue(form, "invoice_number"),
		Currency:      formValue(form, "currency"),
		Category:      formValue(form, "category"),
		Description:   formValue(form, "description"),
		InvoiceDate:   formValue(form, "invoice_date"),
		DueDate:       formValue(form, "due_date"),
	}

	if raw := formValue(form, "amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return dto, internal.NewValidationFieldError("amount", "amount must be a number", internal.ErrCodeInvalidAmount)
		}
		dto.Amount = &amount
	}
	return dto, nil
}
