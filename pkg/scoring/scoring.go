package scoring

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crunchdao/crunch-go/pkg/calendar"
)

const (
	// startTradingDays is how many trading days pass after inception
	// before scoring starts.
	startTradingDays = 2
	// startMaxDays bounds the search for those trading days.
	startMaxDays = 7
)

// ErrNoTradingDay is returned when a scoring window holds no trading day.
var ErrNoTradingDay = errors.New("scoring: no trading day in scoring window")

// Target is a labelled scoring horizon.
type Target struct {
	Name    string
	Horizon int // days
}

// DefaultTargets is the target table used when none is configured.
var DefaultTargets = []Target{
	{Name: "week", Horizon: 7},
	{Name: "red", Horizon: 30},
	{Name: "green", Horizon: 60},
	{Name: "blue", Horizon: 90},
}

// Round is the raw round information. A nil Inception means the round has
// not started.
type Round struct {
	ID        int
	Inception *time.Time
}

// Score is a raw per-round, per-day score.
type Score struct {
	RoundID int
	Date    time.Time
	Value   float64
}

// Record is a score annotated with its scoring window.
type Record struct {
	RoundID       int
	Date          time.Time
	Value         float64
	ScoringStart  time.Time
	TimeDeltaDays int

	// Target is empty when TimeDeltaDays exceeds every horizon; ScoringEnd
	// is then the zero time and Resolved is false.
	Target     string
	ScoringEnd time.Time
	Resolved   bool
}

// Resolver maps scores to targets using a trading calendar.
type Resolver struct {
	Calendar calendar.Calendar

	// Targets defaults to DefaultTargets.
	Targets []Target
}

// Resolve is a shorthand for a Resolver with DefaultTargets.
func Resolve(cal calendar.Calendar, rounds []Round, scores []Score, onlyResolved bool) ([]Record, error) {
	return Resolver{Calendar: cal}.Resolve(rounds, scores, onlyResolved)
}

type groupKey struct {
	roundID int
	target  string
}

// Resolve annotates scores with their target and scoring window. Rounds
// without inception and scores dated before their round's scoring start
// produce no records. The result is sorted by round and date.
func (r Resolver) Resolve(rounds []Round, scores []Score, onlyResolved bool) ([]Record, error) {
	targets, err := sortedTargets(r.Targets)
	if err != nil {
		return nil, err
	}
	horizons := make(map[string]int, len(targets))
	for _, t := range targets {
		horizons[t.Name] = t.Horizon
	}

	starts := make(map[int]time.Time, len(rounds))
	for _, round := range rounds {
		if round.Inception == nil {
			continue
		}
		start, err := ScoringStart(r.Calendar, *round.Inception)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round.ID, err)
		}
		starts[round.ID] = start
	}

	records := make([]Record, 0, len(scores))
	groups := make(map[groupKey]struct{})
	for _, s := range scores {
		start, ok := starts[s.RoundID]
		if !ok {
			continue
		}
		date := calendar.Day(s.Date)
		delta := daysBetween(start, date) + 1
		if delta < 1 {
			logrus.WithFields(logrus.Fields{
				"component": "scoring",
				"round":     s.RoundID,
				"date":      date.Format(calendar.DateLayout),
			}).Debug("score before scoring start, skipped")
			continue
		}

		rec := Record{
			RoundID:       s.RoundID,
			Date:          date,
			Value:         s.Value,
			ScoringStart:  start,
			TimeDeltaDays: delta,
		}
		if t, ok := TargetFor(targets, delta); ok {
			rec.Target = t.Name
			groups[groupKey{s.RoundID, t.Name}] = struct{}{}
		}
		records = append(records, rec)
	}

	ends := make(map[groupKey]time.Time, len(groups))
	for key := range groups {
		end, err := ScoringEnd(r.Calendar, starts[key.roundID], horizons[key.target])
		if err != nil {
			return nil, fmt.Errorf("round %d target %s: %w", key.roundID, key.target, err)
		}
		ends[key] = end
	}

	out := records[:0]
	for _, rec := range records {
		if rec.Target != "" {
			rec.ScoringEnd = ends[groupKey{rec.RoundID, rec.Target}]
			rec.Resolved = rec.Date.Equal(rec.ScoringEnd)
		}
		if onlyResolved && !rec.Resolved {
			continue
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RoundID != out[j].RoundID {
			return out[i].RoundID < out[j].RoundID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// ScoringStart returns the day after the second trading day counted from
// inception (inclusive). If fewer than two trading days occur within seven
// calendar days, scoring starts seven days after inception.
func ScoringStart(cal calendar.Calendar, inception time.Time) (time.Time, error) {
	day := calendar.Day(inception)
	counted := 0
	for i := 0; i < startMaxDays; i++ {
		ok, err := cal.IsTradingDay(day)
		if err != nil {
			return time.Time{}, fmt.Errorf("scoring start: %w", err)
		}
		day = day.AddDate(0, 0, 1)
		if ok {
			counted++
			if counted == startTradingDays {
				return day, nil
			}
		}
	}
	return day, nil
}

// ScoringEnd returns the last trading day at or before start+horizon-1.
func ScoringEnd(cal calendar.Calendar, start time.Time, horizon int) (time.Time, error) {
	day := calendar.Day(start).AddDate(0, 0, horizon-1)
	for i := 0; i < horizon; i++ {
		ok, err := cal.IsTradingDay(day)
		if err != nil {
			return time.Time{}, fmt.Errorf("scoring end: %w", err)
		}
		if ok {
			return day, nil
		}
		day = day.AddDate(0, 0, -1)
	}
	return time.Time{}, ErrNoTradingDay
}

// TargetFor returns the smallest-horizon target whose horizon is at least
// delta. targets must be sorted by horizon.
func TargetFor(targets []Target, delta int) (Target, bool) {
	for _, t := range targets {
		if t.Horizon >= delta {
			return t, true
		}
	}
	return Target{}, false
}

func sortedTargets(targets []Target) ([]Target, error) {
	if len(targets) == 0 {
		targets = DefaultTargets
	}
	out := make([]Target, len(targets))
	copy(out, targets)

	seen := make(map[string]bool, len(out))
	for _, t := range out {
		if t.Name == "" {
			return nil, errors.New("scoring: target without name")
		}
		if t.Horizon < 1 {
			return nil, fmt.Errorf("scoring: target %s has horizon %d", t.Name, t.Horizon)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("scoring: duplicate target %s", t.Name)
		}
		seen[t.Name] = true
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Horizon < out[j].Horizon })
	return out, nil
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Round(time.Hour).Hours() / 24)
}
