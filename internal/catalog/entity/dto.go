package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type CategoryDTO struct {
	CategoryUUID string `json:"category_uuid" validate:"required,max=64"`
	CategoryName string `json:"category_name" validate:"required,max=255"`
}

// NewCategoryDTO lets the catalog assign the uuid when it is omitted.
type NewCategoryDTO struct {
	CategoryUUID *string `json:"category_uuid,omitempty" validate:"omitempty,max=64"`
	CategoryName string  `json:"category_name" validate:"required,max=255"`
}

type ProductDTO struct {
	ItemName              string    `json:"item_name" validate:"required,max=255"`
	ItemPrice             *float64  `json:"item_price" validate:"required,gte=0"`
	ItemQuantity          *int      `json:"item_quantity" validate:"required,gte=0"`
	ItemImageURL          *string   `json:"item_image_url,omitempty" validate:"omitempty,max=2048"`
	ItemPriceOff          *float64  `json:"item_price_off,omitempty" validate:"omitempty,gte=0"`
	ItemPriceOffUntilDate *DateTime `json:"item_price_off_until_date,omitempty"`
}

// UpdateProductDTO is a partial product; only item_uuid is required.
type UpdateProductDTO struct {
	ItemUUID              string    `json:"item_uuid" validate:"required,max=64"`
	ItemName              *string   `json:"item_name,omitempty" validate:"omitempty,max=255"`
	ItemPrice             *float64  `json:"item_price,omitempty" validate:"omitempty,gte=0"`
	ItemQuantity          *int      `json:"item_quantity,omitempty" validate:"omitempty,gte=0"`
	ItemImageURL          *string   `json:"item_image_url,omitempty" validate:"omitempty,max=2048"`
	ItemPriceOff          *float64  `json:"item_price_off,omitempty" validate:"omitempty,gte=0"`
	ItemPriceOffUntilDate *DateTime `json:"item_price_off_until_date,omitempty"`
}

// DateTime accepts RFC 3339 or "2006-01-02 15:04:05" on input and is sent to
// the catalog in the space-separated form it stores.
type DateTime struct{ time.Time }

const catalogLayout = "2006-01-02 15:04:05"

var inputLayouts = []string{time.RFC3339Nano, catalogLayout, "2006-01-02T15:04:05", "2006-01-02"}

func (d *DateTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("datetime: %w", err)
	}
	s = strings.TrimSpace(s)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("datetime: unrecognised value %q", s)
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	s := d.Format(catalogLayout)
	if _, off := d.Zone(); off != 0 {
		s += d.Format("-07:00")
	}
	return json.Marshal(s)
}
