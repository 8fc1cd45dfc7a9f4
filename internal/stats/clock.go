// Package stats computes dashboard business metrics from cargo job
// snapshots. Everything here is pure: callers pass the job slice and the
// reference time, nothing is read from the environment or mutated.
package stats

import (
	"fmt"
	"time"
)

// TimeContext is the calendar classification of a single instant, in the
// instant's own location.
type TimeContext struct {
	CurrentTime     string `json:"currentTime"`
	Season          string `json:"currentSeason"`
	Quarter         string `json:"currentQuarter"`
	MonthName       string `json:"currentMonth"`
	DayOfWeek       string `json:"currentDayOfWeek"`
	TimeOfDay       string `json:"timeOfDay"`
	IsBusinessHours bool   `json:"isBusinessHours"`
}

// Classify buckets now into season, quarter, time of day and the
// business-hours flag (Mon-Fri, 09:00-17:00 local).
func Classify(now time.Time) TimeContext {
	month := int(now.Month())
	hour := now.Hour()

	var season string
	switch {
	case month >= 3 && month <= 5:
		season = "Spring"
	case month >= 6 && month <= 8:
		season = "Summer"
	case month >= 9 && month <= 11:
		season = "Fall"
	default:
		season = "Winter"
	}

	var timeOfDay string
	switch {
	case hour >= 5 && hour < 12:
		timeOfDay = "Morning"
	case hour >= 12 && hour < 17:
		timeOfDay = "Afternoon"
	case hour >= 17 && hour < 21:
		timeOfDay = "Evening"
	default:
		timeOfDay = "Night"
	}

	weekday := now.Weekday()
	isBusinessHours := weekday >= time.Monday && weekday <= time.Friday &&
		hour >= 9 && hour < 17

	return TimeContext{
		CurrentTime:     now.Format(time.RFC3339),
		Season:          season,
		Quarter:         fmt.Sprintf("Q%d", (month-1)/3+1),
		MonthName:       now.Month().String(),
		DayOfWeek:       weekday.String(),
		TimeOfDay:       timeOfDay,
		IsBusinessHours: isBusinessHours,
	}
}
