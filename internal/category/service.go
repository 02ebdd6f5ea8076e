package category

import (
	"log/slog"
	"strings"

	categoryDatamodel "github.com/frahmantamala/invoice-management/internal/core/datamodel/category"
)

// Registry is the read-only list of invoice categories. Invoice.category holds
// a category name, so lookups are by name, case-insensitively.
type Registry struct {
	categories []*categoryDatamodel.InvoiceCategory
	byName     map[string]*categoryDatamodel.InvoiceCategory
	logger     *slog.Logger
}

func NewRegistry(categories []*categoryDatamodel.InvoiceCategory, logger *slog.Logger) *Registry {
	r := &Registry{
		categories: categories,
		byName:     make(map[string]*categoryDatamodel.InvoiceCategory, len(categories)),
		logger:     logger,
	}
	for _, c := range categories {
		r.byName[normalize(c.Name)] = c
	}
	return r
}

func NewDefaultRegistry(logger *slog.Logger) *Registry {
	return NewRegistry(DefaultCategories(), logger)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// List returns copies in seed order.
func (r *Registry) List() []*Category {
	out := make([]*Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, FromDataModel(c))
	}
	return out
}

func (r *Registry) GetAllCategories() []CategoryResponse {
	responses := make([]CategoryResponse, 0, len(r.categories))
	for _, c := range r.List() {
		responses = append(responses, c.ToResponse())
	}
	r.logger.Debug("retrieved categories", "count", len(responses))
	return responses
}

// GetByName returns the category whose name matches case-insensitively.
func (r *Registry) GetByName(name string) (*Category, bool) {
	c, ok := r.byName[normalize(name)]
	if !ok {
		return nil, false
	}
	return FromDataModel(c), true
}

func (r *Registry) IsValidCategory(name string) bool {
	_, ok := r.GetByName(name)
	return ok
}

// CanonicalName maps name to the registered spelling, e.g. "software" to "Software".
func (r *Registry) CanonicalName(name string) (string, bool) {
	c, ok := r.GetByName(name)
	if !ok {
		return "", false
	}
	return c.Name, true
}
