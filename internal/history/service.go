// Package history reads the deduction audit trail for a user and their team
// and summarises it for the dashboard.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hugh/go-stockroom/internal/apperr"
	"github.com/hugh/go-stockroom/internal/auth"
	"github.com/hugh/go-stockroom/internal/database/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Teams resolves whose history a user may see. *team.Service satisfies it.
type Teams interface {
	ResolveVisibleEmails(ctx context.Context, email string) ([]string, error)
}

type Service struct {
	db     *gorm.DB
	teams  Teams
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, teams Teams, logger *slog.Logger) *Service {
	return &Service{db: db, teams: teams, logger: logger, now: time.Now}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type Totals struct {
	Sales  decimal.Decimal `json:"sales"`
	Orders int             `json:"orders"`
}

func ComputeTotals(rows []models.AuditLog) Totals {
	t := Totals{Sales: decimal.Zero, Orders: len(rows)}
	for i := range rows {
		t.Sales = t.Sales.Add(rows[i].Amount())
	}
	return t
}

// FetchHistory returns every DEDUCTION logged by the given emails, newest
// first. Date filtering happens afterwards in Go.
func (s *Service) FetchHistory(ctx context.Context, emails []string) ([]models.AuditLog, error) {
	rows := []models.AuditLog{}
	if len(emails) == 0 {
		return rows, nil
	}
	if err := s.db.WithContext(ctx).
		Where("action = ? AND email IN ?", models.ActionDeduction, emails).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, apperr.Store("fetch history", err)
	}
	return rows, nil
}

type View struct {
	Rows   []models.AuditLog `json:"rows"`
	Totals Totals            `json:"totals"`
}

// History is the filtered audit trail visible to the caller.
func (s *Service) History(ctx context.Context, session auth.Session, r DateRange, loc *time.Location) (*View, error) {
	emails, err := s.teams.ResolveVisibleEmails(ctx, session.Email)
	if err != nil {
		return nil, err
	}
	rows, err := s.FetchHistory(ctx, emails)
	if err != nil {
		return nil, err
	}

	rows = Filter(rows, r, s.now(), loc)
	return &View{Rows: rows, Totals: ComputeTotals(rows)}, nil
}

const notApplicable = "N/A"

// Card is one summary tile.
type Card struct {
	Title      string `json:"title"`
	Value      string `json:"value"`
	Percentage string `json:"percentage"`
}

// SellerProfit is one member's sales in the range and their share of the
// team total.
type SellerProfit struct {
	Seller     string          `json:"seller"`
	Email      string          `json:"email"`
	Profit     decimal.Decimal `json:"profit"`
	Percentage string          `json:"percentage"`
}

type Dashboard struct {
	Range   RangeKind      `json:"range"`
	Cards   []Card         `json:"cards"`
	Sellers []SellerProfit `json:"sellers"`
}

// Dashboard builds the summary cards and per-seller rows for r. Sales and
// order cards carry the change against the previous window of the same
// length when the range has one; the member card shows the plan seats used.
func (s *Service) Dashboard(ctx context.Context, session auth.Session, r DateRange, loc *time.Location) (*Dashboard, error) {
	emails, err := s.teams.ResolveVisibleEmails(ctx, session.Email)
	if err != nil {
		return nil, err
	}
	all, err := s.FetchHistory(ctx, emails)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rows := Filter(all, r, now, loc)
	totals := ComputeTotals(rows)

	salesChange, ordersChange := notApplicable, notApplicable
	if from, to, ok := r.Previous(now, loc); ok {
		prev := ComputeTotals(between(all, from, to))
		salesChange = percentChange(totals.Sales, prev.Sales)
		ordersChange = percentChange(decimal.NewFromInt(int64(totals.Orders)), decimal.NewFromInt(int64(prev.Orders)))
	}

	users, err := s.users(ctx, emails)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	membersPct := notApplicable
	for _, u := range users {
		if u.Username != "" {
			names[u.Email] = u.Username
		}
		if u.Email == session.Email && u.Plan.MaxUsers() > 0 {
			membersPct = seatShare(len(emails), u.Plan.MaxUsers())
		}
	}

	return &Dashboard{
		Range: r.Kind,
		Cards: []Card{
			{Title: "Total Team Members", Value: fmt.Sprint(len(emails)), Percentage: membersPct},
			{Title: "Total Sales", Value: totals.Sales.StringFixed(2), Percentage: salesChange},
			{Title: "Total Orders", Value: fmt.Sprint(totals.Orders), Percentage: ordersChange},
		},
		Sellers: sellerProfits(rows, emails, names, totals.Sales),
	}, nil
}

func (s *Service) users(ctx context.Context, emails []string) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).
		Select("email", "username", "plan").
		Where("email IN ?", emails).
		Find(&users).Error; err != nil {
		return nil, apperr.Store("load sellers", err)
	}
	return users, nil
}

// seatShare is the part of the plan's seats the team fills.
func seatShare(members, seats int) string {
	return decimal.NewFromInt(int64(members)).
		Div(decimal.NewFromInt(int64(seats))).
		Mul(decimal.NewFromInt(100)).
		StringFixed(0) + "%"
}

func sellerProfits(rows []models.AuditLog, emails []string, names map[string]string, total decimal.Decimal) []SellerProfit {
	profit := make(map[string]decimal.Decimal, len(emails))
	for _, e := range emails {
		profit[e] = decimal.Zero
	}
	for i := range rows {
		profit[rows[i].Email] = profit[rows[i].Email].Add(rows[i].Amount())
	}

	out := make([]SellerProfit, 0, len(profit))
	for email, p := range profit {
		seller := names[email]
		if seller == "" {
			seller = email
		}
		share := notApplicable
		if !total.IsZero() {
			share = p.Div(total).Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
		}
		out = append(out, SellerProfit{Seller: seller, Email: email, Profit: p, Percentage: share})
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Profit.Cmp(out[j].Profit); c != 0 {
			return c > 0
		}
		return out[i].Email < out[j].Email
	})
	return out
}

// percentChange formats (cur-prev)/prev as a signed percentage.
func percentChange(cur, prev decimal.Decimal) string {
	if prev.IsZero() {
		return notApplicable
	}
	change := cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100))
	sign := ""
	if change.IsPositive() {
		sign = "+"
	}
	return sign + change.StringFixed(1) + "%"
}
