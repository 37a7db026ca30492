package services

import (
	"testing"
	"time"

	"github.com/anjiri1684/counsel_hub/models"
)

func TestValidateRules(t *testing.T) {
	ok := []models.AvailabilityRule{
		{Weekday: 1, StartTime: "09:00", EndTime: "12:00"},
		{Weekday: 1, StartTime: "13:00", EndTime: "15:00"},
		{Weekday: 3, StartTime: "09:00", EndTime: "10:00"},
	}
	if err := ValidateRules(ok, 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := map[string][]models.AvailabilityRule{
		"overlap":  {{Weekday: 2, StartTime: "09:00", EndTime: "12:00"}, {Weekday: 2, StartTime: "11:00", EndTime: "13:00"}},
		"reversed": {{Weekday: 2, StartTime: "12:00", EndTime: "09:00"}},
		"short":    {{Weekday: 2, StartTime: "09:00", EndTime: "09:30"}},
		"weekday":  {{Weekday: 7, StartTime: "09:00", EndTime: "12:00"}},
		"clock":    {{Weekday: 2, StartTime: "9am", EndTime: "12:00"}},
	}
	for name, rules := range bad {
		if err := ValidateRules(rules, 60); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if err := ValidateRules(ok, 5); err == nil {
		t.Fatal("expected error for a 5 minute session")
	}
}

func TestExpandWeeklyTemplate(t *testing.T) {
	eat := time.FixedZone("EAT", 3*60*60)
	from := time.Date(2026, 3, 2, 8, 0, 0, 0, eat)
	if from.Weekday() != time.Monday {
		t.Fatalf("fixture must start on a Monday, got %s", from.Weekday())
	}

	rules := []models.AvailabilityRule{
		{Weekday: int(time.Monday), StartTime: "09:30", EndTime: "11:00"},
		{Weekday: int(time.Wednesday), StartTime: "14:00", EndTime: "16:00"},
	}
	specs := ExpandWeeklyTemplate(rules, 60, from, 7, eat)
	if len(specs) != 3 {
		t.Fatalf("expected 3 slots, got %d: %+v", len(specs), specs)
	}

	first := specs[0]
	if first.Date != "2026-03-02" || first.StartTime != "09:30" || first.EndTime != "10:30" {
		t.Fatalf("unexpected first slot %+v", first)
	}
	if want := time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC); !first.StartsAt.Equal(want) || first.StartsAt.Location() != time.UTC {
		t.Fatalf("expected starts_at %s in UTC, got %s", want, first.StartsAt)
	}
	if specs[1].StartTime != "14:00" || specs[2].StartTime != "15:00" || specs[2].Date != "2026-03-04" {
		t.Fatalf("unexpected wednesday slots %+v %+v", specs[1], specs[2])
	}
}

func TestExpandWeeklyTemplateSkipsPastSessions(t *testing.T) {
	from := time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)
	rules := []models.AvailabilityRule{{Weekday: int(time.Monday), StartTime: "09:00", EndTime: "12:00"}}

	specs := ExpandWeeklyTemplate(rules, 60, from, 1, time.UTC)
	if len(specs) != 1 || specs[0].StartTime != "11:00" {
		t.Fatalf("expected only the 11:00 slot, got %+v", specs)
	}
	if got := ExpandWeeklyTemplate(rules, 60, from, 0, time.UTC); got != nil {
		t.Fatalf("expected no slots for zero days, got %+v", got)
	}
}
