package team

import (
	"context"

	"github.com/hugh/go-stockroom/internal/apperr"
	"github.com/hugh/go-stockroom/internal/auth"
	"github.com/hugh/go-stockroom/internal/database/models"
)

// Member is a membership row joined with the matching user account.
// Username and Role are empty for invitees who have not signed up.
type Member struct {
	models.TeamMembership
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// View is everything the team screen needs for one user.
type View struct {
	TeamNum        *int                    `json:"team_num"`
	Members        []Member                `json:"members"`
	Self           *models.TeamMembership  `json:"self"`
	PendingInvites []models.TeamMembership `json:"pending_invites"`
	Capacity       int                     `json:"capacity"`
	ApprovedCount  int                     `json:"approved_count"`
	IsFounder      bool                    `json:"is_founder"`
	CanInvite      bool                    `json:"can_invite"`
}

func (s *Service) GetTeamView(ctx context.Context, session auth.Session) (*View, error) {
	db := s.db.WithContext(ctx)

	view := &View{
		Members:        []Member{},
		PendingInvites: []models.TeamMembership{},
		Capacity:       s.capacity,
	}

	own, err := approvedMembership(db, session.Email)
	if err != nil {
		return nil, apperr.Store("load own membership", err)
	}

	if err := db.Where("invite = ? AND approved = ?", session.Email, false).
		Order("created_at ASC").
		Find(&view.PendingInvites).Error; err != nil {
		return nil, apperr.Store("load pending invites", err)
	}

	if own == nil {
		view.CanInvite = true
		return view, nil
	}

	teamNum := own.TeamNum
	view.TeamNum = &teamNum
	view.Self = own
	view.IsFounder = own.IsFounder()

	if view.Members, err = s.Members(ctx, teamNum); err != nil {
		return nil, err
	}
	for _, m := range view.Members {
		if m.Approved {
			view.ApprovedCount++
		}
	}
	view.CanInvite = view.ApprovedCount < s.capacity

	return view, nil
}

// Members returns the rows of teamNum joined with users in one query,
// founder first.
func (s *Service) Members(ctx context.Context, teamNum int) ([]Member, error) {
	members := []Member{}
	err := s.db.WithContext(ctx).
		Table("team_memberships AS tm").
		Select("tm.*, COALESCE(u.username, '') AS username, COALESCE(u.role, '') AS role").
		Joins("LEFT JOIN users u ON u.email = tm.invite").
		Where("tm.team_num = ?", teamNum).
		Order("tm.inviter DESC, tm.created_at ASC").
		Scan(&members).Error
	if err != nil {
		return nil, apperr.Store("load team members", err)
	}
	return members, nil
}

// ResolveVisibleEmails returns the approved members of email's team, or just
// email when it has no approved team.
func (s *Service) ResolveVisibleEmails(ctx context.Context, email string) ([]string, error) {
	db := s.db.WithContext(ctx)

	own, err := approvedMembership(db, email)
	if err != nil {
		return nil, apperr.Store("resolve visible emails", err)
	}
	if own == nil {
		return []string{email}, nil
	}

	var emails []string
	if err := db.Model(&models.TeamMembership{}).
		Where("team_num = ? AND approved = ?", own.TeamNum, true).
		Order("invite ASC").
		Pluck("invite", &emails).Error; err != nil {
		return nil, apperr.Store("resolve visible emails", err)
	}
	return emails, nil
}

// CanView reports whether viewer may read owner's inventory: always for
// themselves, otherwise only when both are approved members of one team.
func (s *Service) CanView(ctx context.Context, viewerEmail, ownerEmail string) (bool, error) {
	if viewerEmail == ownerEmail {
		return true, nil
	}

	db := s.db.WithContext(ctx)
	own, err := approvedMembership(db, viewerEmail)
	if err != nil {
		return false, apperr.Store("check visibility", err)
	}
	if own == nil {
		return false, nil
	}

	var n int64
	if err := db.Model(&models.TeamMembership{}).
		Where("team_num = ? AND invite = ? AND approved = ?", own.TeamNum, ownerEmail, true).
		Count(&n).Error; err != nil {
		return false, apperr.Store("check visibility", err)
	}
	return n > 0, nil
}

// TeamNumFor returns email's approved team number, or nil in individual mode.
func (s *Service) TeamNumFor(ctx context.Context, email string) (*int, error) {
	own, err := approvedMembership(s.db.WithContext(ctx), email)
	if err != nil {
		return nil, apperr.Store("resolve team", err)
	}
	if own == nil {
		return nil, nil
	}
	n := own.TeamNum
	return &n, nil
}
