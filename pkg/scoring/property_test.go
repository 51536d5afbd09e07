package scoring

import (
	"hash/fnv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/crunchdao/crunch-go/pkg/calendar"
)

// randomCalendar closes weekends and roughly one weekday in ten, chosen by
// seed. Wednesdays always trade so every seven-day window has a trading day.
func randomCalendar(seed int64) calendar.Calendar {
	return calendar.Func(func(d time.Time) (bool, error) {
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
			return false, nil
		case time.Wednesday:
			return true, nil
		}
		h := fnv.New32a()
		h.Write([]byte(d.Format(calendar.DateLayout)))
		h.Write([]byte{byte(seed), byte(seed >> 8)})
		return h.Sum32()%10 != 0, nil
	})
}

type scenario struct {
	cal     calendar.Calendar
	rounds  []Round
	scores  []Score
	records []Record
}

func buildScenario(seed int64, inceptionOffset int, offsets []int) scenario {
	base := calendar.Date(2023, 1, 2)
	inception := base.AddDate(0, 0, inceptionOffset)

	rounds := []Round{
		{ID: 1, Inception: &inception},
		{ID: 2, Inception: nil},
	}
	scores := make([]Score, 0, 2*len(offsets))
	for i, off := range offsets {
		date := inception.AddDate(0, 0, off)
		scores = append(scores,
			Score{RoundID: 1, Date: date, Value: float64(i)},
			Score{RoundID: 2, Date: date, Value: float64(i)},
		)
	}

	cal := randomCalendar(seed)
	records, err := Resolve(cal, rounds, scores, false)
	if err != nil {
		panic(err)
	}
	return scenario{cal: cal, rounds: rounds, scores: scores, records: records}
}

func TestResolverProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	seeds := gen.Int64Range(0, 1<<16)
	inceptions := gen.IntRange(0, 400)
	offsets := gen.SliceOf(gen.IntRange(-10, 120))

	properties.Property("rounds without inception never appear", prop.ForAll(
		func(seed int64, inception int, offs []int) bool {
			for _, rec := range buildScenario(seed, inception, offs).records {
				if rec.RoundID == 2 {
					return false
				}
			}
			return true
		},
		seeds, inceptions, offsets,
	))

	properties.Property("time delta is at least one", prop.ForAll(
		func(seed int64, inception int, offs []int) bool {
			for _, rec := range buildScenario(seed, inception, offs).records {
				if rec.TimeDeltaDays < 1 {
					return false
				}
			}
			return true
		},
		seeds, inceptions, offsets,
	))

	properties.Property("target is the smallest horizon covering the delta", prop.ForAll(
		func(seed int64, inception int, offs []int) bool {
			maxHorizon := DefaultTargets[len(DefaultTargets)-1].Horizon
			for _, rec := range buildScenario(seed, inception, offs).records {
				if rec.TimeDeltaDays > maxHorizon {
					if rec.Target != "" {
						return false
					}
					continue
				}
				var want string
				for _, tg := range DefaultTargets {
					if tg.Horizon >= rec.TimeDeltaDays {
						want = tg.Name
						break
					}
				}
				if rec.Target != want {
					return false
				}
			}
			return true
		},
		seeds, inceptions, offsets,
	))

	properties.Property("scoring end is a trading day", prop.ForAll(
		func(seed int64, inception int, offs []int) bool {
			sc := buildScenario(seed, inception, offs)
			for _, rec := range sc.records {
				if rec.Target == "" {
					continue
				}
				ok, err := sc.cal.IsTradingDay(rec.ScoringEnd)
				if err != nil || !ok {
					return false
				}
			}
			return true
		},
		seeds, inceptions, offsets,
	))

	properties.Property("only resolved keeps exactly the rows ending their window", prop.ForAll(
		func(seed int64, inception int, offs []int) bool {
			sc := buildScenario(seed, inception, offs)
			resolved, err := Resolve(sc.cal, sc.rounds, sc.scores, true)
			if err != nil {
				return false
			}

			want := 0
			for _, rec := range sc.records {
				if rec.Target != "" && rec.Date.Equal(rec.ScoringEnd) {
					want++
				}
			}
			if len(resolved) != want {
				return false
			}
			for _, rec := range resolved {
				if !rec.Resolved || !rec.Date.Equal(rec.ScoringEnd) {
					return false
				}
			}
			return true
		},
		seeds, inceptions, offsets,
	))

	properties.Property("records are sorted by round and date", prop.ForAll(
		func(seed int64, inception int, offs []int) bool {
			records := buildScenario(seed, inception, offs).records
			for i := 1; i < len(records); i++ {
				a, b := records[i-1], records[i]
				if a.RoundID > b.RoundID || (a.RoundID == b.RoundID && a.Date.After(b.Date)) {
					return false
				}
			}
			return true
		},
		seeds, inceptions, offsets,
	))

	properties.TestingRun(t)
}
