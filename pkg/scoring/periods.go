package scoring

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParsePeriodDays converts an ISO-8601 day or week period such as "P30D"
// or "P1W" to a number of days.
func ParsePeriodDays(period string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(period))
	if !strings.HasPrefix(s, "P") || len(s) < 3 {
		return 0, fmt.Errorf("scoring: invalid period %q", period)
	}

	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[1 : len(s)-1])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("scoring: invalid period %q", period)
	}

	switch unit {
	case 'D':
		return n, nil
	case 'W':
		return n * 7, nil
	default:
		return 0, fmt.Errorf("scoring: unsupported period unit in %q", period)
	}
}

// TargetsFromPeriods builds a target table from a round's dataset
// configuration: the moons duration becomes the "week" target and every
// named period (red, green, blue) its own target.
func TargetsFromPeriods(moons string, periods map[string]string) ([]Target, error) {
	targets := make([]Target, 0, len(periods)+1)
	if moons != "" {
		days, err := ParsePeriodDays(moons)
		if err != nil {
			return nil, err
		}
		targets = append(targets, Target{Name: "week", Horizon: days})
	}

	names := make([]string, 0, len(periods))
	for name := range periods {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		days, err := ParsePeriodDays(periods[name])
		if err != nil {
			return nil, fmt.Errorf("period %s: %w", name, err)
		}
		targets = append(targets, Target{Name: name, Horizon: days})
	}

	if len(targets) == 0 {
		return DefaultTargets, nil
	}
	return sortedTargets(targets)
}
