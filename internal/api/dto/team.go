package dto

import "github.com/hugh/go-stockroom/internal/validation"

type InviteRequest struct {
	Email string `json:"email" validate:"required"`
}

func (r InviteRequest) Validate() map[string]string {
	return validation.Struct(r)
}

type RespondRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}

func (r RespondRequest) Validate() map[string]string {
	return validation.Struct(r)
}

type DisbandResponse struct {
	Removed int64 `json:"removed"`
}
