package models

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCoadmin Role = "coadmin"
	RoleSeller  Role = "seller"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCoadmin, RoleSeller:
		return true
	}
	return false
}

// Plan is chosen after sign-up. The empty plan means the user has not picked one yet.
type Plan string

const (
	PlanNone    Plan = ""
	PlanStarter Plan = "starter"
	PlanPremium Plan = "premium"
	PlanFree    Plan = "free"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanStarter, PlanPremium, PlanFree:
		return true
	}
	return false
}

// MaxUsers is the seat count advertised for the plan.
func (p Plan) MaxUsers() int {
	switch p {
	case PlanStarter:
		return 4
	case PlanPremium:
		return 10
	case PlanFree:
		return 1
	}
	return 0
}

type User struct {
	Base
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string  `json:"-"`
	Username     string  `gorm:"not null" json:"username"`
	Role         Role    `gorm:"not null;default:'seller'" json:"role"`
	Plan         Plan    `json:"plan"`
	GoogleID     *string `gorm:"uniqueIndex" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// NeedsPlan reports whether the user still has to pass the plan-selection step.
func (u *User) NeedsPlan() bool {
	return u.Plan == PlanNone
}
