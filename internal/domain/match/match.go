package match

import "time"

// Match is a single fixture relevant to a city.
type Match struct {
	Competition string
	HomeTeam    string
	AwayTeam    string
	Kickoff     time.Time
	Venue       string
	Status      string
}

// Outcome tags the result of a city lookup.
type Outcome int

const (
	// FetchFailed means upstream data could not be obtained.
	FetchFailed Outcome = iota
	// NoMatches means data was obtained and nothing is played in the city.
	NoMatches
	// Found means at least one match is played in the city.
	Found
)

func (o Outcome) String() string {
	switch o {
	case FetchFailed:
		return "fetch_failed"
	case NoMatches:
		return "no_matches"
	case Found:
		return "found"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of a lookup. Matches is non-empty only when
// Outcome is Found; Err is set only when Outcome is FetchFailed.
type Result struct {
	Outcome Outcome
	Matches []Match
	Err     error
}

func Failed(err error) Result { return Result{Outcome: FetchFailed, Err: err} }

// FromMatches builds a NoMatches or Found result.
func FromMatches(matches []Match) Result {
	if len(matches) == 0 {
		return Result{Outcome: NoMatches}
	}
	return Result{Outcome: Found, Matches: matches}
}
