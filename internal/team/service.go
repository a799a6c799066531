// Package team implements the team invite and approval workflow and the
// visibility rules derived from it: who belongs to which team, and whose
// inventory and history a user may see.
package team

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hugh/go-stockroom/internal/apperr"
	"github.com/hugh/go-stockroom/internal/auth"
	"github.com/hugh/go-stockroom/internal/database/models"
	"github.com/hugh/go-stockroom/internal/tasks"
	"github.com/hugh/go-stockroom/internal/validation"
	"gorm.io/gorm"
)

const DefaultCapacity = 3

var (
	ErrSelfInvite         = apperr.Validation("You cannot invite yourself!")
	ErrInvalidEmail       = apperr.Validation("Please enter a valid email address.")
	ErrTeamFull           = apperr.Validation("Team is full.")
	ErrAlreadyInvited     = apperr.Validation("User is already invited or in your team.")
	ErrAlreadyInTeam      = apperr.Conflict("You already belong to a team.")
	ErrNotFounder         = apperr.Forbidden("Only the team founder can do that.")
	ErrFounderCannotLeave = apperr.Validation("The founder cannot leave the team. Disband it instead.")
	ErrCannotRemoveSelf   = apperr.Validation("You cannot remove yourself. Disband the team instead.")
	ErrInviteNotFound     = apperr.NotFound("Invite not found.")
	ErrMemberNotFound     = apperr.NotFound("Member not found.")
)

// founder allocation retries when two callers race for the same team_num
const allocateAttempts = 3

var errTeamNumTaken = errors.New("team number taken")

type Service struct {
	db       *gorm.DB
	capacity int
	logger   *slog.Logger
	queue    tasks.Enqueuer
}

func NewService(db *gorm.DB, capacity int, logger *slog.Logger) *Service {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Service{db: db, capacity: capacity, logger: logger}
}

// WithQueue enables invite emails through the background worker.
func (s *Service) WithQueue(q tasks.Enqueuer) *Service {
	s.queue = q
	return s
}

func (s *Service) Capacity() int {
	return s.capacity
}

// CreateTeam makes the caller the founder of a new team.
func (s *Service) CreateTeam(ctx context.Context, session auth.Session) (*models.TeamMembership, error) {
	var founder *models.TeamMembership
	err := s.withAllocation(ctx, func(tx *gorm.DB) error {
		existing, err := approvedMembership(tx, session.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyInTeam
		}
		founder, err = createFounder(tx, session.Email)
		return err
	})
	if err != nil {
		return nil, apperr.Store("create team", err)
	}

	s.logger.Info("team created", "team_num", founder.TeamNum, "founder", session.Email)
	return founder, nil
}

// InviteMember adds a pending row for invitee on the caller's team, founding
// a team for the caller first if they have none.
//
// The capacity and duplicate checks read before the insert. The unique
// (team_num, invite) index closes the duplicate race; two concurrent invites
// into the last free seat can still both pass the capacity check.
func (s *Service) InviteMember(ctx context.Context, session auth.Session, inviteeEmail string) (*models.TeamMembership, error) {
	invitee := validation.NormalizeEmail(inviteeEmail)
	if invitee == "" || !validation.IsValidEmail(invitee) {
		return nil, ErrInvalidEmail
	}
	if invitee == validation.NormalizeEmail(session.Email) {
		return nil, ErrSelfInvite
	}

	var row *models.TeamMembership
	err := s.withAllocation(ctx, func(tx *gorm.DB) error {
		own, err := approvedMembership(tx, session.Email)
		if err != nil {
			return err
		}
		if own == nil {
			if own, err = createFounder(tx, session.Email); err != nil {
				return err
			}
		}

		count, err := approvedCount(tx, own.TeamNum)
		if err != nil {
			return err
		}
		if count >= int64(s.capacity) {
			return ErrTeamFull
		}

		var dupes int64
		if err := tx.Model(&models.TeamMembership{}).
			Where("team_num = ? AND invite = ?", own.TeamNum, invitee).
			Count(&dupes).Error; err != nil {
			return err
		}
		if dupes > 0 {
			return ErrAlreadyInvited
		}

		row = &models.TeamMembership{
			TeamNum: own.TeamNum,
			Invite:  invitee,
		}
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyInvited
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Store("invite member", err)
	}

	s.logger.Info("member invited", "team_num", row.TeamNum, "inviter", session.Email, "invitee", invitee)
	s.enqueueInviteNotify(ctx, row, session.Email)
	return row, nil
}

// RespondToInvite lets the invitee accept or reject a pending invite.
// Rejecting deletes that one row. Accepting re-checks capacity and that the
// invitee has not joined another team in the meantime.
func (s *Service) RespondToInvite(ctx context.Context, session auth.Session, teamNum int, approve bool) (*models.TeamMembership, error) {
	var row models.TeamMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("team_num = ? AND invite = ? AND approved = ?", teamNum, session.Email, false).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInviteNotFound
		}
		if err != nil {
			return err
		}

		if !approve {
			return tx.Delete(&models.TeamMembership{}, "id = ?", row.ID).Error
		}

		other, err := approvedMembership(tx, session.Email)
		if err != nil {
			return err
		}
		if other != nil {
			return ErrAlreadyInTeam
		}

		count, err := approvedCount(tx, teamNum)
		if err != nil {
			return err
		}
		if count >= int64(s.capacity) {
			return ErrTeamFull
		}

		row.Approved = true
		return tx.Model(&row).Update("approved", true).Error
	})
	if err != nil {
		return nil, apperr.Store("respond to invite", err)
	}

	s.logger.Info("invite answered", "team_num", teamNum, "invitee", session.Email, "approved", approve)
	if !approve {
		return nil, nil
	}
	return &row, nil
}

// RemoveMember deletes target's row. Founder only; pending invites can be
// withdrawn the same way.
func (s *Service) RemoveMember(ctx context.Context, session auth.Session, teamNum int, targetEmail string) error {
	target := validation.NormalizeEmail(targetEmail)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireFounder(tx, session.Email, teamNum); err != nil {
			return err
		}
		if target == validation.NormalizeEmail(session.Email) {
			return ErrCannotRemoveSelf
		}

		result := tx.Where("team_num = ? AND invite = ?", teamNum, target).Delete(&models.TeamMembership{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrMemberNotFound
		}
		return nil
	})
	if err != nil {
		return apperr.Store("remove member", err)
	}

	s.logger.Info("member removed", "team_num", teamNum, "member", target, "by", session.Email)
	return nil
}

// LeaveTeam deletes the caller's own row. The founder must disband instead.
func (s *Service) LeaveTeam(ctx context.Context, session auth.Session, teamNum int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.TeamMembership
		err := tx.Where("team_num = ? AND invite = ?", teamNum, session.Email).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		if err != nil {
			return err
		}
		if row.Inviter {
			return ErrFounderCannotLeave
		}
		return tx.Delete(&models.TeamMembership{}, "id = ?", row.ID).Error
	})
	if err != nil {
		return apperr.Store("leave team", err)
	}

	s.logger.Info("member left", "team_num", teamNum, "member", session.Email)
	return nil
}

// DisbandTeam deletes every row sharing teamNum. Founder only.
func (s *Service) DisbandTeam(ctx context.Context, session auth.Session, teamNum int) (int64, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireFounder(tx, session.Email, teamNum); err != nil {
			return err
		}
		result := tx.Where("team_num = ?", teamNum).Delete(&models.TeamMembership{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, apperr.Store("disband team", err)
	}

	s.logger.Info("team disbanded", "team_num", teamNum, "rows", deleted)
	return deleted, nil
}

// enqueueInviteNotify is best effort: the invite is already stored and shows
// up on the invitee's team page either way.
func (s *Service) enqueueInviteNotify(ctx context.Context, row *models.TeamMembership, inviter string) {
	if s.queue == nil {
		return
	}
	task, err := tasks.NewInviteNotifyTask(tasks.InviteNotifyPayload{
		TeamNum: row.TeamNum,
		Inviter: inviter,
		Invitee: row.Invite,
	})
	if err == nil {
		_, err = s.queue.EnqueueContext(ctx, task)
	}
	if err != nil {
		s.logger.Warn("failed to enqueue invite email", "invitee", row.Invite, "error", err)
	}
}

// withAllocation runs fn in a transaction, retrying when a concurrent caller
// grabbed the team number fn tried to found.
func (s *Service) withAllocation(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < allocateAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(fn)
		if !errors.Is(err, errTeamNumTaken) {
			return err
		}
	}
	return err
}

func approvedMembership(tx *gorm.DB, email string) (*models.TeamMembership, error) {
	var row models.TeamMembership
	err := tx.Where("invite = ? AND approved = ?", email, true).
		Order("team_num ASC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func approvedCount(tx *gorm.DB, teamNum int) (int64, error) {
	var n int64
	err := tx.Model(&models.TeamMembership{}).
		Where("team_num = ? AND approved = ?", teamNum, true).
		Count(&n).Error
	return n, err
}

func createFounder(tx *gorm.DB, email string) (*models.TeamMembership, error) {
	var max int
	if err := tx.Model(&models.TeamMembership{}).
		Select("COALESCE(MAX(team_num), 0)").
		Scan(&max).Error; err != nil {
		return nil, err
	}

	row := &models.TeamMembership{
		TeamNum:  max + 1,
		Invite:   email,
		Inviter:  true,
		Approved: true,
	}
	if err := tx.Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errTeamNumTaken
		}
		return nil, err
	}
	return row, nil
}

func requireFounder(tx *gorm.DB, email string, teamNum int) error {
	var n int64
	if err := tx.Model(&models.TeamMembership{}).
		Where("team_num = ? AND invite = ? AND inviter = ? AND approved = ?", teamNum, email, true, true).
		Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFounder
	}
	return nil
}
