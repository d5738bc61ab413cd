package matchdata

import (
	"context"
	"strings"
	"sync"
	"time"

	"matchday_notification_bot/internal/domain/match"
	"matchday_notification_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// Fetcher retrieves a raw upstream payload for an inclusive date window.
type Fetcher interface {
	FetchWindow(ctx context.Context, from, to string) ([]byte, error)
}

// Lookup answers city/date queries from the per-day file cache, falling back
// to the upstream API on a miss.
type Lookup struct {
	mu          sync.Mutex
	fetcher     Fetcher
	cache       *FileCache
	competition string
	loc         *time.Location
	logger      *logrus.Entry
	metrics     metrics.Recorder
}

var _ match.Lookup = (*Lookup)(nil)

func NewLookup(fetcher Fetcher, cache *FileCache, competition string, loc *time.Location, logger *logrus.Entry, rec metrics.Recorder) *Lookup {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Lookup{
		fetcher:     fetcher,
		cache:       cache,
		competition: competition,
		loc:         loc,
		logger:      logger,
		metrics:     rec,
	}
}

// MatchesForCity returns the tracked-competition matches whose home team
// plays in city on the local calendar day of date.
func (l *Lookup) MatchesForCity(ctx context.Context, city string, date time.Time) match.Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.cache.Prune()

	city = CanonicalCity(city)
	day := date.In(l.loc)
	key := Key(day)

	all, err := l.load(ctx, day, key)
	if err != nil {
		l.metrics.RecordLookup(match.FetchFailed.String())
		l.logger.WithError(err).WithFields(logrus.Fields{
			"city": city,
			"date": key,
		}).Warn("Match data unavailable")
		return match.Failed(err)
	}

	var found []match.Match
	for _, m := range all {
		if !strings.EqualFold(m.Competition, l.competition) {
			continue
		}
		if Key(m.Kickoff.In(l.loc)) != key {
			continue
		}
		if teamCity, ok := CityForTeam(m.HomeTeam); !ok || teamCity != city {
			continue
		}
		found = append(found, m)
	}

	res := match.FromMatches(found)
	l.metrics.RecordLookup(res.Outcome.String())
	return res
}

func (l *Lookup) load(ctx context.Context, day time.Time, key string) ([]match.Match, error) {
	raw, ok, err := l.cache.Load(key)
	if err != nil {
		l.logger.WithError(err).WithField("date", key).Warn("Failed to read cache file")
	}
	if ok {
		matches, perr := parsePayload(raw)
		if perr == nil {
			l.metrics.RecordCacheHit()
			return matches, nil
		}
		l.logger.WithError(perr).WithField("date", key).Warn("Corrupt cache file, refetching")
		if rerr := l.cache.Remove(key); rerr != nil {
			l.logger.WithError(rerr).WithField("date", key).Warn("Failed to delete corrupt cache file")
		}
	}
	l.metrics.RecordCacheMiss()

	from := Key(day.AddDate(0, 0, -1))
	to := Key(day.AddDate(0, 0, 1))
	raw, err = l.fetcher.FetchWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}
	matches, err := parsePayload(raw)
	if err != nil {
		return nil, err
	}
	if err := l.cache.Store(key, raw); err != nil {
		l.logger.WithError(err).WithField("date", key).Warn("Failed to write cache file")
	}
	return matches, nil
}
