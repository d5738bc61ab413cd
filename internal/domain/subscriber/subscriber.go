package subscriber

import (
	"database/sql"
	"strings"
	"time"
)

// Subscriber is a chat user who receives match notifications for a city.
// ID is the Telegram user id.
type Subscriber struct {
	ID                   int64
	Username             sql.NullString
	City                 string
	CreatedAt            time.Time
	IsBlocked            bool
	LastAutoNotifiedAt   sql.NullTime
	LastManualNotifiedAt sql.NullTime
}

// NormalizeCity returns the form used for matching cities: trimmed and lowercased.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// NotifiedOn reports whether the last automatic notification falls on the
// same calendar day as day, both evaluated in loc.
func (s *Subscriber) NotifiedOn(day time.Time, loc *time.Location) bool {
	if !s.LastAutoNotifiedAt.Valid {
		return false
	}
	last := s.LastAutoNotifiedAt.Time.In(loc)
	day = day.In(loc)
	return last.Year() == day.Year() && last.YearDay() == day.YearDay()
}
