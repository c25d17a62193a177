// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package schedule implements the Schedule Evaluator: a seven-field cron
// grammar and the pure, deterministic currentPlaylist/nextMoment functions
// over a Schedule.
//
// The field grammar (wildcard, list, range, step) is the teacher's 5-field
// newsletter cron parser, extended with leading second and trailing year
// fields to match the viewer scheduling grammar: second minute hour
// day-of-month month day-of-week year.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// yearMin/yearMax bound the year field's wildcard and step-without-end
// expansion, and act as the search floor/ceiling for PreviousAtOrBefore and
// NextAfter: a rule whose only occurrence falls outside this window is
// correctly reported as having no previous or next moment.
const (
	yearMin = 1970
	yearMax = 2200
)

// Expression is a parsed seven-field cron expression.
type Expression struct {
	Seconds     []int
	Minutes     []int
	Hours       []int
	DaysOfMonth []int
	Months      []int
	DaysOfWeek  []int
	Years       []int

	domWildcard bool
	dowWildcard bool

	raw string
}

// String returns the original expression text, for logging.
func (e *Expression) String() string { return e.raw }

// ParseExpression parses a seven-field cron expression: second minute hour
// day-of-month month day-of-week year.
func ParseExpression(expr string) (*Expression, error) {
	fields := strings.Fields(expr)
	if len(fields) != 7 {
		return nil, fmt.Errorf("schedule: cron expression %q must have 7 fields, got %d", expr, len(fields))
	}

	seconds, err := parseField(fields[0], 0, 59)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid second field %q: %w", fields[0], err)
	}
	minutes, err := parseField(fields[1], 0, 59)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid minute field %q: %w", fields[1], err)
	}
	hours, err := parseField(fields[2], 0, 23)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid hour field %q: %w", fields[2], err)
	}
	dom, err := parseField(fields[3], 1, 31)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid day-of-month field %q: %w", fields[3], err)
	}
	months, err := parseField(fields[4], 1, 12)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid month field %q: %w", fields[4], err)
	}
	dow, err := parseField(fields[5], 0, 7)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid day-of-week field %q: %w", fields[5], err)
	}
	years, err := parseField(fields[6], yearMin, yearMax)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid year field %q: %w", fields[6], err)
	}

	normalizedDOW := make([]int, 0, len(dow))
	for _, d := range dow {
		if d == 7 {
			d = 0
		}
		normalizedDOW = append(normalizedDOW, d)
	}
	dow = uniqueInts(normalizedDOW)

	return &Expression{
		Seconds:     seconds,
		Minutes:     minutes,
		Hours:       hours,
		DaysOfMonth: dom,
		Months:      months,
		DaysOfWeek:  dow,
		Years:       years,
		domWildcard: fields[3] == "*",
		dowWildcard: fields[5] == "*",
		raw:         expr,
	}, nil
}

// domOrDowMatches applies standard cron day disambiguation: if both
// day-of-month and day-of-week are restricted (not wildcards), either
// matching is sufficient; if only one is restricted, that one governs.
func (e *Expression) domOrDowMatches(t time.Time) bool {
	domMatch := containsInt(e.DaysOfMonth, t.Day())
	dowMatch := containsInt(e.DaysOfWeek, int(t.Weekday()))

	switch {
	case e.domWildcard && e.dowWildcard:
		return true
	case e.domWildcard:
		return dowMatch
	case e.dowWildcard:
		return domMatch
	default:
		return domMatch || dowMatch
	}
}

// Matches reports whether t satisfies every field of the expression.
func (e *Expression) Matches(t time.Time) bool {
	return containsInt(e.Seconds, t.Second()) &&
		containsInt(e.Minutes, t.Minute()) &&
		containsInt(e.Hours, t.Hour()) &&
		containsInt(e.Months, int(t.Month())) &&
		containsInt(e.Years, t.Year()) &&
		e.domOrDowMatches(t)
}

// NextAfter returns the earliest time strictly after from that matches the
// expression, or false if none exists within [from, yearMax].
func (e *Expression) NextAfter(from time.Time) (time.Time, bool) {
	t := from.Truncate(time.Second).Add(time.Second)

	for i := 0; i < maxRolloverSteps; i++ {
		if t.Year() > yearMax {
			return time.Time{}, false
		}
		if !containsInt(e.Years, t.Year()) {
			next, wrapped := nextInOrWrap(t.Year(), e.Years)
			if wrapped && next <= t.Year() {
				return time.Time{}, false
			}
			t = time.Date(next, 1, 1, 0, 0, 0, 0, t.Location())
			continue
		}
		if !containsInt(e.Months, int(t.Month())) {
			next, wrapped := nextInOrWrap(int(t.Month()), e.Months)
			year := t.Year()
			if wrapped {
				year++
			}
			t = time.Date(year, time.Month(next), 1, 0, 0, 0, 0, t.Location())
			continue
		}
		if !e.domOrDowMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
			continue
		}
		if !containsInt(e.Hours, t.Hour()) {
			next, wrapped := nextInOrWrap(t.Hour(), e.Hours)
			if wrapped {
				t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
				continue
			}
			t = time.Date(t.Year(), t.Month(), t.Day(), next, 0, 0, 0, t.Location())
			continue
		}
		if !containsInt(e.Minutes, t.Minute()) {
			next, wrapped := nextInOrWrap(t.Minute(), e.Minutes)
			if wrapped {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location()).Add(time.Hour)
				continue
			}
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), next, 0, 0, t.Location())
			continue
		}
		if !containsInt(e.Seconds, t.Second()) {
			next, wrapped := nextInOrWrap(t.Second(), e.Seconds)
			if wrapped {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location()).Add(time.Minute)
				continue
			}
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), next, 0, t.Location())
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// PreviousAtOrBefore returns the latest time at or before from that matches
// the expression (including from itself), or false if none exists within
// [yearMin, from].
func (e *Expression) PreviousAtOrBefore(from time.Time) (time.Time, bool) {
	t := from.Truncate(time.Second)

	for i := 0; i < maxRolloverSteps; i++ {
		if t.Year() < yearMin {
			return time.Time{}, false
		}
		if !containsInt(e.Years, t.Year()) {
			prev, wrapped := prevInOrWrap(t.Year(), e.Years)
			if wrapped && prev >= t.Year() {
				return time.Time{}, false
			}
			t = time.Date(prev, 12, 31, 23, 59, 59, 0, t.Location())
			continue
		}
		if !containsInt(e.Months, int(t.Month())) {
			prev, wrapped := prevInOrWrap(int(t.Month()), e.Months)
			year := t.Year()
			if wrapped {
				year--
			}
			t = time.Date(year, time.Month(prev), lastDayOfMonth(year, time.Month(prev)), 23, 59, 59, 0, t.Location())
			continue
		}
		if !e.domOrDowMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location()).AddDate(0, 0, -1)
			continue
		}
		if !containsInt(e.Hours, t.Hour()) {
			prev, wrapped := prevInOrWrap(t.Hour(), e.Hours)
			if wrapped {
				t = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location()).AddDate(0, 0, -1)
				continue
			}
			t = time.Date(t.Year(), t.Month(), t.Day(), prev, 59, 59, 0, t.Location())
			continue
		}
		if !containsInt(e.Minutes, t.Minute()) {
			prev, wrapped := prevInOrWrap(t.Minute(), e.Minutes)
			if wrapped {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 59, 59, 0, t.Location()).Add(-time.Hour)
				continue
			}
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), prev, 59, 0, t.Location())
			continue
		}
		if !containsInt(e.Seconds, t.Second()) {
			prev, wrapped := prevInOrWrap(t.Second(), e.Seconds)
			if wrapped {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 59, 0, t.Location()).Add(-time.Minute)
				continue
			}
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), prev, 0, t.Location())
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// maxRolloverSteps bounds the next/previous search loop. Each step advances
// at least one calendar field, so this comfortably covers the full
// [yearMin, yearMax] window without risk of spinning forever on a
// contradictory expression.
const maxRolloverSteps = 100000

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func nextInOrWrap(val int, list []int) (int, bool) {
	for _, v := range list {
		if v >= val {
			return v, false
		}
	}
	return list[0], true
}

func prevInOrWrap(val int, list []int) (int, bool) {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i] <= val {
			return list[i], false
		}
	}
	return list[len(list)-1], true
}

func parseField(field string, minVal, maxVal int) ([]int, error) {
	if field == "*" {
		return rangeInts(minVal, maxVal), nil
	}

	if strings.Contains(field, ",") {
		var result []int
		for _, part := range strings.Split(field, ",") {
			values, err := parseFieldPart(part, minVal, maxVal)
			if err != nil {
				return nil, err
			}
			result = append(result, values...)
		}
		return uniqueInts(result), nil
	}

	return parseFieldPart(field, minVal, maxVal)
}

func parseFieldPart(part string, minVal, maxVal int) ([]int, error) {
	if strings.Contains(part, "/") {
		parts := strings.SplitN(part, "/", 2)
		step, err := strconv.Atoi(parts[1])
		if err != nil || step <= 0 {
			return nil, fmt.Errorf("invalid step value: %s", parts[1])
		}

		var rangeStart, rangeEnd int
		switch {
		case parts[0] == "*":
			rangeStart, rangeEnd = minVal, maxVal
		case strings.Contains(parts[0], "-"):
			rangeParts := strings.SplitN(parts[0], "-", 2)
			rangeStart, err = strconv.Atoi(rangeParts[0])
			if err != nil {
				return nil, fmt.Errorf("invalid range start: %s", rangeParts[0])
			}
			rangeEnd, err = strconv.Atoi(rangeParts[1])
			if err != nil {
				return nil, fmt.Errorf("invalid range end: %s", rangeParts[1])
			}
		default:
			rangeStart, err = strconv.Atoi(parts[0])
			if err != nil {
				return nil, fmt.Errorf("invalid value: %s", parts[0])
			}
			rangeEnd = maxVal
		}

		var result []int
		for i := rangeStart; i <= rangeEnd; i += step {
			if i >= minVal && i <= maxVal {
				result = append(result, i)
			}
		}
		if len(result) == 0 {
			return nil, fmt.Errorf("step expression %q yields no values in [%d,%d]", part, minVal, maxVal)
		}
		return result, nil
	}

	if strings.Contains(part, "-") {
		rangeParts := strings.SplitN(part, "-", 2)
		start, err := strconv.Atoi(rangeParts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid range start: %s", rangeParts[0])
		}
		end, err := strconv.Atoi(rangeParts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid range end: %s", rangeParts[1])
		}
		if start > end || start < minVal || end > maxVal {
			return nil, fmt.Errorf("invalid range: %d-%d (minVal=%d, maxVal=%d)", start, end, minVal, maxVal)
		}
		return rangeInts(start, end), nil
	}

	val, err := strconv.Atoi(part)
	if err != nil {
		return nil, fmt.Errorf("invalid value: %s", part)
	}
	if val < minVal || val > maxVal {
		return nil, fmt.Errorf("value out of range: %d (minVal=%d, maxVal=%d)", val, minVal, maxVal)
	}
	return []int{val}, nil
}

func rangeInts(start, end int) []int {
	result := make([]int, end-start+1)
	for i := range result {
		result[i] = start + i
	}
	return result
}

func containsInt(slice []int, val int) bool {
	for _, v := range slice {
		if v == val {
			return true
		}
	}
	return false
}

func uniqueInts(slice []int) []int {
	seen := make(map[int]bool, len(slice))
	result := make([]int, 0, len(slice))
	for _, v := range slice {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	for i := 0; i < len(result)-1; i++ {
		for j := i + 1; j < len(result); j++ {
			if result[i] > result[j] {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result
}
