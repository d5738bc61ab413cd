package matchdata

import (
	"encoding/json"
	"fmt"
	"time"

	"matchday_notification_bot/internal/domain/match"
)

// payload mirrors the subset of the football-data.org v4 /matches response we read.
type payload struct {
	Matches []struct {
		Competition struct {
			Code string `json:"code"`
		} `json:"competition"`
		HomeTeam struct {
			ShortName string `json:"shortName"`
		} `json:"homeTeam"`
		AwayTeam struct {
			ShortName string `json:"shortName"`
		} `json:"awayTeam"`
		UTCDate string `json:"utcDate"`
		Venue   string `json:"venue"`
		Status  string `json:"status"`
	} `json:"matches"`
}

// parsePayload decodes a raw upstream response. A document without a
// matches array is rejected so a corrupt or foreign file is never mistaken
// for a day without fixtures.
func parsePayload(raw []byte) ([]match.Match, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode match payload: %w", err)
	}
	if _, ok := envelope["matches"]; !ok {
		return nil, fmt.Errorf("decode match payload: missing matches")
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode match payload: %w", err)
	}

	out := make([]match.Match, 0, len(p.Matches))
	for _, m := range p.Matches {
		kickoff, err := time.Parse(time.RFC3339, m.UTCDate)
		if err != nil {
			return nil, fmt.Errorf("decode match payload: bad utcDate %q: %w", m.UTCDate, err)
		}
		out = append(out, match.Match{
			Competition: m.Competition.Code,
			HomeTeam:    m.HomeTeam.ShortName,
			AwayTeam:    m.AwayTeam.ShortName,
			Kickoff:     kickoff,
			Venue:       m.Venue,
			Status:      m.Status,
		})
	}
	return out, nil
}
