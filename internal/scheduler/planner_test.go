package scheduler

import (
	"testing"
	"time"

	"github.com/shaiso/Dirigent/internal/domain"
)

func TestNextDue(t *testing.T) {
	sched := &domain.Schedule{Group: "nightly", CronExpr: "0 2 * * *"}

	from := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	next, err := NextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextDue_Timezone(t *testing.T) {
	sched := &domain.Schedule{
		Group:    "nightly",
		CronExpr: "0 2 * * *",
		Timezone: "Europe/Berlin",
	}

	// Зимнее время: 02:00 Berlin = 01:00 UTC.
	from := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	next, err := NextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, 1, 11, 1, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
	if next.Location() != time.UTC {
		t.Errorf("next should be returned in UTC, got %v", next.Location())
	}
}

func TestNextDue_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	sched := &domain.Schedule{
		Group:    "nightly",
		CronExpr: "0 2 * * *",
		Timezone: "Mars/Olympus",
	}

	from := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	next, err := NextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 1, 11, 2, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("*/5 * * * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateCronExpr("banana"); err == nil {
		t.Error("invalid expression accepted")
	}
	if err := ValidateCronExpr("0 2 * *"); err == nil {
		t.Error("four-field expression accepted")
	}
}

func TestPlanner_SkipsDisabled(t *testing.T) {
	planner, err := NewPlanner([]domain.Schedule{
		{Group: "on", CronExpr: "* * * * *", Enabled: true},
		{Group: "off", CronExpr: "* * * * *", Enabled: false},
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if planner.Len() != 1 {
		t.Errorf("active schedules = %d, want 1", planner.Len())
	}
}

func TestPlanner_Due(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 30, 0, time.UTC)
	planner, err := NewPlanner([]domain.Schedule{
		{Group: "everyminute", CronExpr: "* * * * *", Enabled: true},
	}, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// До наступления NextDue ничего не созревает.
	if due := planner.Due(start.Add(10 * time.Second)); len(due) != 0 {
		t.Errorf("premature due: %v", due)
	}

	// Минута прошла — расписание созрело ровно один раз.
	due := planner.Due(start.Add(time.Minute))
	if len(due) != 1 || due[0].Group != "everyminute" {
		t.Fatalf("due = %v", due)
	}
	if again := planner.Due(start.Add(time.Minute)); len(again) != 0 {
		t.Errorf("schedule fired twice for the same tick: %v", again)
	}
}

func TestPlanner_NoCatchUp(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 30, 0, time.UTC)
	planner, err := NewPlanner([]domain.Schedule{
		{Group: "everyminute", CronExpr: "* * * * *", Enabled: true},
	}, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// После часа простоя группа запускается один раз, а не 60.
	due := planner.Due(start.Add(time.Hour))
	if len(due) != 1 {
		t.Fatalf("expected single catch-up run, got %d", len(due))
	}
	if again := planner.Due(start.Add(time.Hour + time.Second)); len(again) != 0 {
		t.Errorf("missed intervals must not be replayed: %v", again)
	}
}
