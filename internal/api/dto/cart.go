package dto

import (
	"github.com/google/uuid"
	"github.com/hugh/go-stockroom/internal/validation"
)

type AddToCartRequest struct {
	ItemID string `json:"item_id" validate:"required,uuid"`
}

func (r AddToCartRequest) Validate() map[string]string {
	return validation.Struct(r)
}

// ConfirmRequest optionally overrides stored counters by cart entry id.
type ConfirmRequest struct {
	Counters map[string]int `json:"counters,omitempty"`
}

func (r ConfirmRequest) Validate() map[string]string {
	errs := make(map[string]string)
	for id, c := range r.Counters {
		if _, err := uuid.Parse(id); err != nil {
			errs["counters"] = "Counters must be keyed by cart item id"
			break
		}
		if c < 0 {
			errs["counters"] = "Counters must be 0 or more"
			break
		}
	}
	return errs
}

// Overrides converts the validated counters.
func (r ConfirmRequest) Overrides() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(r.Counters))
	for id, c := range r.Counters {
		if parsed, err := uuid.Parse(id); err == nil {
			out[parsed] = c
		}
	}
	return out
}

type CartCountResponse struct {
	Count               int64 `json:"count"`
	PollIntervalSeconds int   `json:"poll_interval_seconds"`
}
