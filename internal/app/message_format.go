package app

import (
	"strings"
	"time"

	"matchday_notification_bot/internal/domain/match"
)

const noMatchesText = "Non ci sono partite oggi nella tua città! ⚽️"

// FormatMatches renders the daily notification. Kickoff times are shown in loc.
func FormatMatches(matches []match.Match, loc *time.Location) string {
	if len(matches) == 0 {
		return noMatchesText
	}

	var b strings.Builder
	b.WriteString("🎯 Oggi nella tua città ci sono le seguenti partite:\n")
	for _, m := range matches {
		b.WriteString("\n⚽️ ")
		b.WriteString(m.HomeTeam)
		b.WriteString(" vs ")
		b.WriteString(m.AwayTeam)
		b.WriteString("\n")
		if m.Venue != "" {
			b.WriteString("🏟 ")
			b.WriteString(m.Venue)
			b.WriteString("\n")
		}
		b.WriteString("🕒 ")
		b.WriteString(m.Kickoff.In(loc).Format("15:04"))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// FormatLookup renders an on-demand /check answer, including the failure case.
func FormatLookup(res match.Result, loc *time.Location) string {
	if res.Outcome == match.FetchFailed {
		return "Non riesco a recuperare le partite in questo momento. Riprova più tardi."
	}
	return FormatMatches(res.Matches, loc)
}
