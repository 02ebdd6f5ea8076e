package category

import (
	"fmt"
	"net/http"

	"github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	GetAllCategories() []CategoryResponse
	GetByName(name string) (*Category, bool)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/categories", h.GetCategories)
	r.Get("/categories/{name}", h.GetCategory)
}

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, CategoriesResponse{
		Categories: h.Service.GetAllCategories(),
	})
}

// GetCategory looks a category up by name, ignoring case.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	c, ok := h.Service.GetByName(name)
	if !ok {
		h.HandleServiceError(w, internal.NewNotFoundError(fmt.Sprintf("category %q not found", name), internal.ErrCodeCategoryNotFound))
		return
	}
	h.WriteJSON(w, http.StatusOK, c.ToResponse())
}
