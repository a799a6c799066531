package dto

import (
	"github.com/hugh/go-stockroom/internal/inventory"
	"github.com/hugh/go-stockroom/internal/validation"
	"github.com/shopspring/decimal"
)

type ItemRequest struct {
	Name     string          `json:"name" validate:"notblank,max=200"`
	Quantity *int            `json:"quantity" validate:"required,gte=0"`
	Price    decimal.Decimal `json:"price"`
	Image    *string         `json:"image,omitempty"`
}

func (r ItemRequest) Validate() map[string]string {
	errs := validation.Struct(r)
	if r.Price.IsNegative() {
		errs["price"] = "Price must be 0 or more"
	}
	if r.Image != nil && *r.Image != "" && !validation.IsValidImageURL(*r.Image) {
		errs["image"] = "Image must be a valid URL"
	}
	return errs
}

func (r ItemRequest) Input() inventory.ItemInput {
	in := inventory.ItemInput{
		Name:  validation.SanitizeString(r.Name),
		Price: r.Price,
		Image: r.Image,
	}
	if r.Quantity != nil {
		in.Quantity = *r.Quantity
	}
	return in
}

// DeltaRequest steps a quantity or counter by one.
type DeltaRequest struct {
	Delta int `json:"delta" validate:"oneof=-1 1"`
}

func (r DeltaRequest) Validate() map[string]string {
	return validation.Struct(r)
}
