package category

import (
	"strings"

	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/core/common/validation"
)

type CreateCategoryDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func (d CreateCategoryDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", d.trimmedName()).Required().MaxLength(100)
	v.Field("description", d.Description).MaxLength(500)
	v.Field("color", d.Color).HexColor()
	return v.Validate()
}

func (d CreateCategoryDTO) trimmedName() string {
	return strings.TrimSpace(d.Name)
}

type UpdateCategoryDTO struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

func (d UpdateCategoryDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", strings.TrimSpace(*d.Name)).Required().MaxLength(100)
	}
	if d.Description != nil {
		v.Field("description", *d.Description).MaxLength(500)
	}
	if d.Color != nil {
		v.Field("color", *d.Color).HexColor()
	}
	return v.Validate()
}

func (d UpdateCategoryDTO) applyTo(c *Category) {
	if d.Name != nil {
		c.Name = strings.TrimSpace(*d.Name)
	}
	if d.Description != nil {
		c.Description = *d.Description
	}
	if d.Color != nil {
		c.Color = *d.Color
	}
}

type CategoriesResponse struct {
	Categories []*Category `json:"categories"`
}
