// Package calendar decides which calendar days are trading days.
//
// Two implementations are provided: Weekdays, which knows every date, and
// Holidays, a weekday calendar with closures loaded from YAML that only
// knows the range it was built for. Asking Holidays about any other date
// returns a MissingDataError; callers must treat it as fatal rather than
// guess.
//
// # File Format
//
//	from: 2024-01-01
//	to: 2024-12-31
//	holidays:
//	  - 2024-01-01
//	  - 2024-12-25
//
// All dates are handled as midnight UTC, see Day.
package calendar
