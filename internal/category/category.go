package category

import (
	"time"

	categoryDatamodel "github.com/frahmantamala/invoice-management/internal/core/datamodel/category"
)

// DefaultUserID owns the seeded categories shared by every user.
const DefaultUserID = "default"

type Category struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Category) ToResponse() CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Color:       c.Color,
	}
}

func ToDataModel(c *Category) *categoryDatamodel.InvoiceCategory {
	return &categoryDatamodel.InvoiceCategory{
		ID:          c.ID,
		UserID:      c.UserID,
		Name:        c.Name,
		Description: c.Description,
		Color:       c.Color,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func FromDataModel(c *categoryDatamodel.InvoiceCategory) *Category {
	return &Category{
		ID:          c.ID,
		UserID:      c.UserID,
		Name:        c.Name,
		Description: c.Description,
		Color:       c.Color,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

var seededAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seed(id, name, description, color string) *categoryDatamodel.InvoiceCategory {
	return &categoryDatamodel.InvoiceCategory{
		ID:          id,
		UserID:      DefaultUserID,
		Name:        name,
		Description: description,
		Color:       color,
		CreatedAt:   seededAt,
		UpdatedAt:   seededAt,
	}
}

// DefaultCategories returns a fresh copy of the fixed category list.
func DefaultCategories() []*categoryDatamodel.InvoiceCategory {
	return []*categoryDatamodel.InvoiceCategory{
		seed("cat_office_supplies", "Office Supplies", "Paper, stationery and consumables", "#2563EB"),
		seed("cat_software", "Software", "Licenses and subscriptions", "#10B981"),
		seed("cat_travel", "Travel", "Transport, lodging and meals on the road", "#F59E0B"),
		seed("cat_marketing", "Marketing", "Advertising and promotion", "#EF4444"),
		seed("cat_utilities", "Utilities", "Power, water, internet and phone", "#8B5CF6"),
		seed("cat_professional", "Professional Services", "Legal, accounting and consulting", "#06B6D4"),
		seed("cat_equipment", "Equipment", "Hardware and furniture", "#84CC16"),
		seed("cat_other", "Other", "Anything else", "#6B7280"),
	}
}
