package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/anjiri1684/counsel_hub/apperrors"
	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SlotSpec is one bookable window produced from a weekly template.
type SlotSpec struct {
	Date      string
	StartTime string
	EndTime   string
	StartsAt  time.Time
	EndsAt    time.Time
}

func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", v)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ValidateRules checks each rule fits at least one session and that rules on
// the same weekday do not overlap.
func ValidateRules(rules []models.AvailabilityRule, sessionMinutes int) error {
	if sessionMinutes < 15 || sessionMinutes > 240 {
		return apperrors.BadRequest("session length must be between 15 and 240 minutes")
	}
	type window struct{ start, end int }
	byDay := map[int][]window{}
	for _, r := range rules {
		if r.Weekday < 0 || r.Weekday > 6 {
			return apperrors.BadRequest("weekday must be between 0 (Sunday) and 6 (Saturday)")
		}
		start, err := parseClock(r.StartTime)
		if err != nil {
			return apperrors.BadRequest("%v", err)
		}
		end, err := parseClock(r.EndTime)
		if err != nil {
			return apperrors.BadRequest("%v", err)
		}
		if end <= start {
			return apperrors.BadRequest("rule %s-%s: start must be before end", r.StartTime, r.EndTime)
		}
		if end-start < sessionMinutes {
			return apperrors.BadRequest("rule %s-%s is shorter than one %d minute session", r.StartTime, r.EndTime, sessionMinutes)
		}
		byDay[r.Weekday] = append(byDay[r.Weekday], window{start, end})
	}
	for day, windows := range byDay {
		sort.Slice(windows, func(i, j int) bool { return windows[i].start < windows[j].start })
		for i := 1; i < len(windows); i++ {
			if windows[i].start < windows[i-1].end {
				return apperrors.BadRequest("overlapping availability on %s", time.Weekday(day))
			}
		}
	}
	return nil
}

// ExpandWeeklyTemplate lays the weekly rules over the next days calendar days
// (in loc, starting with the day containing from) and cuts each window into
// back-to-back sessions. Sessions starting before from are skipped.
func ExpandWeeklyTemplate(rules []models.AvailabilityRule, sessionMinutes int, from time.Time, days int, loc *time.Location) []SlotSpec {
	if sessionMinutes <= 0 || days <= 0 {
		return nil
	}
	session := time.Duration(sessionMinutes) * time.Minute
	local := from.In(loc)
	firstDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	var specs []SlotSpec
	for d := 0; d < days; d++ {
		day := firstDay.AddDate(0, 0, d)
		for _, r := range rules {
			if time.Weekday(r.Weekday) != day.Weekday() {
				continue
			}
			start, err := parseClock(r.StartTime)
			if err != nil {
				continue
			}
			end, err := parseClock(r.EndTime)
			if err != nil {
				continue
			}
			windowEnd := time.Date(day.Year(), day.Month(), day.Day(), end/60, end%60, 0, 0, loc)
			for t := time.Date(day.Year(), day.Month(), day.Day(), start/60, start%60, 0, 0, loc); !t.Add(session).After(windowEnd); t = t.Add(session) {
				if t.Before(from) {
					continue
				}
				e := t.Add(session)
				specs = append(specs, SlotSpec{
					Date:      t.Format("2006-01-02"),
					StartTime: t.Format("15:04"),
					EndTime:   e.Format("15:04"),
					StartsAt:  t.UTC(),
					EndsAt:    e.UTC(),
				})
			}
		}
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].StartsAt.Before(specs[j].StartsAt) })
	return specs
}

// GenerateSlots materialises the counselor's weekly template for the next
// days and returns how many new slots were inserted. Existing slots for the
// same date and start time are left untouched.
func GenerateSlots(db *gorm.DB, counselor *models.Counselor, days int) (int64, error) {
	if !counselor.IsBookable() {
		return 0, apperrors.BadRequest("Only approved counselors can publish availability")
	}
	if counselor.SessionPrice <= 0 {
		return 0, apperrors.BadRequest("Set a session price before generating slots")
	}
	if days <= 0 {
		days = config.Int("SLOT_GENERATION_DAYS")
	}
	if days <= 0 || days > 90 {
		return 0, apperrors.BadRequest("days must be between 1 and 90")
	}

	var tmpl models.AvailabilityTemplate
	if err := db.First(&tmpl, "counselor_id = ?", counselor.ID).Error; err != nil {
		return 0, apperrors.BadRequest("Set a weekly availability template first")
	}

	specs := ExpandWeeklyTemplate(tmpl.Rules, tmpl.SessionMinutes, Now(), days, config.Location())
	if len(specs) == 0 {
		return 0, nil
	}
	slots := make([]models.Slot, len(specs))
	for i, spec := range specs {
		slots[i] = models.Slot{
			CounselorID: counselor.ID,
			Date:        spec.Date,
			StartTime:   spec.StartTime,
			EndTime:     spec.EndTime,
			StartsAt:    spec.StartsAt,
			EndsAt:      spec.EndsAt,
			Status:      models.SlotOpen,
			BasePrice:   counselor.SessionPrice,
		}
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&slots, 100)
	return res.RowsAffected, res.Error
}
