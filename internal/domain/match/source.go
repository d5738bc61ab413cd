package match

import (
	"context"
	"time"
)

// Lookup resolves the matches played in a city on a given local date.
type Lookup interface {
	MatchesForCity(ctx context.Context, city string, date time.Time) Result
}
