package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-stockroom/internal/database/models"
	"github.com/hugh/go-stockroom/internal/notify"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	mailer notify.Sender
}

func NewHandler(db *gorm.DB, logger *slog.Logger, mailer notify.Sender) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
		mailer: mailer,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeInviteNotify, h.HandleInviteNotify)
	mux.HandleFunc(TypeCartPruneOrphans, h.HandleCartPrune)
}

// HandleInviteNotify emails the invitee, unless the invite was answered or
// withdrawn before the task ran.
func (h *Handler) HandleInviteNotify(ctx context.Context, t *asynq.Task) error {
	var payload InviteNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	var invite models.TeamMembership
	err := h.db.WithContext(ctx).
		Where("team_num = ? AND invite = ? AND approved = ?", payload.TeamNum, payload.Invitee, false).
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h.logger.Info("invite no longer pending, skipping email",
			"team_num", payload.TeamNum,
			"invitee", payload.Invitee,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load invite: %w", err)
	}

	if err := h.mailer.SendInvite(ctx, notify.Invite{
		TeamNum: payload.TeamNum,
		Inviter: payload.Inviter,
		Invitee: payload.Invitee,
	}); err != nil {
		h.logger.Error("failed to send invite email", "invitee", payload.Invitee, "error", err)
		return err
	}

	h.logger.Info("invite email sent", "team_num", payload.TeamNum, "invitee", payload.Invitee)
	return nil
}

func (h *Handler) HandleCartPrune(ctx context.Context, t *asynq.Task) error {
	removed, err := PruneOrphans(ctx, h.db)
	if err != nil {
		h.logger.Error("cart prune failed", "error", err)
		return err
	}
	if removed > 0 {
		h.logger.Info("pruned orphaned cart entries", "removed", removed)
	}
	return nil
}

// PruneOrphans deletes cart entries whose inventory item no longer exists.
// Item deletion does not cascade into carts, so these accumulate.
func PruneOrphans(ctx context.Context, db *gorm.DB) (int64, error) {
	result := db.WithContext(ctx).
		Where("inventory_id NOT IN (?)", db.Model(&models.InventoryItem{}).Select("id")).
		Delete(&models.CartEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete orphaned cart entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}
