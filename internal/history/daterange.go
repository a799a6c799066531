package history

import (
	"strings"
	"time"

	"github.com/hugh/go-stockroom/internal/apperr"
	"github.com/hugh/go-stockroom/internal/database/models"
)

type RangeKind string

const (
	RangeAll       RangeKind = ""
	RangeToday     RangeKind = "today"
	RangeYesterday RangeKind = "yesterday"
	RangeLastWeek  RangeKind = "last_week"
	RangeLastMonth RangeKind = "last_month"
	RangeCustom    RangeKind = "custom"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidRange    = apperr.Validation("Unknown date range.")
	ErrInvalidDate     = apperr.Validation("Dates must look like 2006-01-02.")
	ErrRangeReversed   = apperr.Validation("Start date must not be after end date.")
	ErrInvalidTimezone = apperr.Validation("Unknown time zone.")
)

// DateRange selects audit rows by calendar date in the caller's zone.
// Start and End are only used by RangeCustom and hold dates at midnight UTC.
type DateRange struct {
	Kind  RangeKind
	Start time.Time
	End   time.Time
}

// ParseDateRange reads the range query parameters. Start and end are
// required for custom ranges and ignored otherwise.
func ParseDateRange(kind, start, end string) (DateRange, error) {
	r := DateRange{Kind: RangeKind(strings.ToLower(strings.TrimSpace(kind)))}

	switch r.Kind {
	case RangeAll, RangeToday, RangeYesterday, RangeLastWeek, RangeLastMonth:
		return r, nil
	case RangeCustom:
	default:
		return DateRange{}, ErrInvalidRange
	}

	var err error
	if r.Start, err = time.Parse(dateLayout, strings.TrimSpace(start)); err != nil {
		return DateRange{}, ErrInvalidDate
	}
	if r.End, err = time.Parse(dateLayout, strings.TrimSpace(end)); err != nil {
		return DateRange{}, ErrInvalidDate
	}
	if r.End.Before(r.Start) {
		return DateRange{}, ErrRangeReversed
	}
	return r, nil
}

// ParseLocation resolves a tz query value, falling back when it is empty.
func ParseLocation(tz string, fallback *time.Location) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		if fallback == nil {
			return time.Local, nil
		}
		return fallback, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, ErrInvalidTimezone
	}
	return loc, nil
}

// Bounds returns the half-open window [from, to) the range covers at now.
// A zero from or to leaves that side open.
func (r DateRange) Bounds(now time.Time, loc *time.Location) (from, to time.Time) {
	now = now.In(loc)
	today := midnight(now.Year(), now.Month(), now.Day(), loc)

	switch r.Kind {
	case RangeToday:
		return today, nextDay(today, loc)
	case RangeYesterday:
		y := midnight(today.Year(), today.Month(), today.Day()-1, loc)
		return y, today
	case RangeLastWeek:
		return now.Add(-7 * 24 * time.Hour), time.Time{}
	case RangeLastMonth:
		return now.AddDate(0, -1, 0), time.Time{}
	case RangeCustom:
		start := midnight(r.Start.Year(), r.Start.Month(), r.Start.Day(), loc)
		end := midnight(r.End.Year(), r.End.Month(), r.End.Day(), loc)
		return start, nextDay(end, loc)
	}
	return time.Time{}, time.Time{}
}

// Previous returns the window of equal length just before this one, used
// for period-over-period change. ok is false for open-ended ranges.
func (r DateRange) Previous(now time.Time, loc *time.Location) (from, to time.Time, ok bool) {
	from, to = r.Bounds(now, loc)
	if from.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	if to.IsZero() {
		to = now
	}
	return from.Add(-to.Sub(from)), from, true
}

// Filter keeps the rows whose created_at falls inside r at now.
func Filter(rows []models.AuditLog, r DateRange, now time.Time, loc *time.Location) []models.AuditLog {
	from, to := r.Bounds(now, loc)
	return between(rows, from, to)
}

func between(rows []models.AuditLog, from, to time.Time) []models.AuditLog {
	out := make([]models.AuditLog, 0, len(rows))
	for _, row := range rows {
		if !from.IsZero() && row.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !row.CreatedAt.Before(to) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func midnight(y int, m time.Month, d int, loc *time.Location) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func nextDay(t time.Time, loc *time.Location) time.Time {
	return midnight(t.Year(), t.Month(), t.Day()+1, loc)
}
