package models

// TeamMembership is one row per (team_num, invite). The founder row carries
// Inviter=true and is approved on creation; a team has at most one.
type TeamMembership struct {
	Base
	TeamNum  int    `gorm:"not null;uniqueIndex:idx_team_invite,priority:1;uniqueIndex:idx_team_founder,where:inviter = true" json:"team_num"`
	Invite   string `gorm:"not null;uniqueIndex:idx_team_invite,priority:2;index" json:"invite"`
	Inviter  bool   `gorm:"not null;default:false" json:"inviter"`
	Approved bool   `gorm:"not null;default:false" json:"approved"`
}

func (TeamMembership) TableName() string {
	return "team_memberships"
}

func (m *TeamMembership) IsFounder() bool {
	return m.Inviter && m.Approved
}
