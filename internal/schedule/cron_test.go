// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package schedule

import (
	"testing"
	"time"
)

func TestParseExpression_FieldCount(t *testing.T) {
	if _, err := ParseExpression("* * * * *"); err == nil {
		t.Error("expected an error for a 5-field expression")
	}
	if _, err := ParseExpression("* * * * * * *"); err != nil {
		t.Errorf("expected a valid 7-field wildcard expression, got %v", err)
	}
}

func TestParseExpression_RejectsOutOfRange(t *testing.T) {
	cases := []string{
		"60 * * * * * *",
		"* 60 * * * * *",
		"* * 24 * * * *",
		"* * * 32 * * *",
		"* * * * 13 * *",
		"* * * * * 8 *",
	}
	for _, expr := range cases {
		if _, err := ParseExpression(expr); err == nil {
			t.Errorf("ParseExpression(%q): expected an out-of-range error", expr)
		}
	}
}

func TestParseExpression_ListRangeStep(t *testing.T) {
	expr, err := ParseExpression("0,30 0-5 */6 1 1,6,12 * *")
	if err != nil {
		t.Fatalf("ParseExpression: %v", err)
	}
	if len(expr.Seconds) != 2 || expr.Seconds[0] != 0 || expr.Seconds[1] != 30 {
		t.Errorf("Seconds = %v, want [0 30]", expr.Seconds)
	}
	if len(expr.Minutes) != 6 {
		t.Errorf("Minutes = %v, want 6 values (0-5)", expr.Minutes)
	}
	wantHours := []int{0, 6, 12, 18}
	if len(expr.Hours) != len(wantHours) {
		t.Fatalf("Hours = %v, want %v", expr.Hours, wantHours)
	}
	for i, h := range wantHours {
		if expr.Hours[i] != h {
			t.Errorf("Hours[%d] = %d, want %d", i, expr.Hours[i], h)
		}
	}
	if len(expr.Months) != 3 {
		t.Errorf("Months = %v, want [1 6 12]", expr.Months)
	}
}

func TestParseExpression_DOWNormalizesSeven(t *testing.T) {
	expr, err := ParseExpression("* * * * * 7 *")
	if err != nil {
		t.Fatalf("ParseExpression: %v", err)
	}
	if len(expr.DaysOfWeek) != 1 || expr.DaysOfWeek[0] != 0 {
		t.Errorf("DaysOfWeek = %v, want [0] (Sunday, normalized from 7)", expr.DaysOfWeek)
	}
}

func TestExpression_Matches(t *testing.T) {
	expr, err := ParseExpression("0 0 10 * * * *")
	if err != nil {
		t.Fatalf("ParseExpression: %v", err)
	}
	if !expr.Matches(at(2023, 4, 18, 10, 0, 0)) {
		t.Error("expected a match at 10:00:00")
	}
	if expr.Matches(at(2023, 4, 18, 10, 0, 1)) {
		t.Error("expected no match at 10:00:01")
	}
}

func TestExpression_NextAfterYearStep(t *testing.T) {
	expr, err := ParseExpression("0 0 10 * * * 2025/1")
	if err != nil {
		t.Fatalf("ParseExpression: %v", err)
	}
	got, ok := expr.NextAfter(at(2024, 8, 8, 13, 42, 0))
	if !ok {
		t.Fatal("expected a next match")
	}
	want := at(2025, 1, 1, 10, 0, 0)
	if !got.Equal(want) {
		t.Errorf("NextAfter = %v, want %v", got, want)
	}
}

func TestExpression_PreviousAtOrBeforeIncludesExactInstant(t *testing.T) {
	expr, err := ParseExpression("0 0 10 * * * *")
	if err != nil {
		t.Fatalf("ParseExpression: %v", err)
	}
	exact := at(2023, 4, 18, 10, 0, 0)
	got, ok := expr.PreviousAtOrBefore(exact)
	if !ok || !got.Equal(exact) {
		t.Errorf("PreviousAtOrBefore(exact) = %v, %v, want %v, true", got, ok, exact)
	}
}

func TestExpression_PreviousAtOrBeforeNoneBeforeFirstOccurrence(t *testing.T) {
	expr, err := ParseExpression("0 0 10 18 4 * 2023")
	if err != nil {
		t.Fatalf("ParseExpression: %v", err)
	}
	if _, ok := expr.PreviousAtOrBefore(at(2023, 4, 18, 9, 59, 59)); ok {
		t.Error("expected no previous occurrence before the only scheduled instant")
	}
}

func TestExpression_NextAfterNoneAfterLastOccurrence(t *testing.T) {
	expr, err := ParseExpression("0 0 10 18 4 * 2023")
	if err != nil {
		t.Fatalf("ParseExpression: %v", err)
	}
	if _, ok := expr.NextAfter(at(2023, 4, 18, 10, 0, 0)); ok {
		t.Error("expected no next occurrence after the only scheduled instant")
	}
}

func TestExpression_DOMOrDOWIsOred(t *testing.T) {
	// Day 1 of the month, OR every Monday: both restricted, so either suffices.
	expr, err := ParseExpression("0 0 0 1 * 1 *")
	if err != nil {
		t.Fatalf("ParseExpression: %v", err)
	}
	// 2023-05-01 is a Monday and the 1st: matches both ways.
	if !expr.Matches(time.Date(2023, 5, 1, 0, 0, 0, 0, time.Local)) {
		t.Error("expected a match on a Monday that is also the 1st")
	}
	// 2023-05-08 is a Monday but not the 1st: OR semantics still match.
	if !expr.Matches(time.Date(2023, 5, 8, 0, 0, 0, 0, time.Local)) {
		t.Error("expected a match on a Monday even though it is not the 1st (OR semantics)")
	}
}
