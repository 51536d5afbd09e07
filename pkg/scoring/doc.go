// Package scoring maps raw daily scores to their prediction target and
// scoring window.
//
// A round's scoring starts the day after its second trading day (inception
// counted). Each score is assigned the smallest target whose horizon covers
// the days elapsed since that start, and the window for a (round, target)
// pair ends on the last trading day at or before start+horizon-1. A score
// dated on that end day is resolved: it is the final value for its target.
//
//	cal := calendar.Weekdays{}
//	records, err := scoring.Resolve(cal, rounds, scores, true)
//
// Targets default to DefaultTargets and can be derived from a round's
// dataset configuration with TargetsFromPeriods.
package scoring
