// Package assessment defines stress check-in models.
package assessment

import "time"

// Bounds for check-in fields.
const (
	MinStressLevel = 1
	MaxStressLevel = 10
	MaxListItems   = 10
	MaxNotesLength = 2000
)

// Category buckets a numeric stress level.
type Category string

// Stress categories.
const (
	CategoryLow      Category = "low"
	CategoryModerate Category = "moderate"
	CategoryHigh     Category = "high"
)

// Categorize derives the category from a stress level. Levels 1-3 are low,
// 4-7 moderate, 8-10 high.
func Categorize(level int) Category {
	switch {
	case level <= 3:
		return CategoryLow
	case level <= 7:
		return CategoryModerate
	default:
		return CategoryHigh
	}
}

// StressAssessment is one stress check-in. Category is always derived from
// StressLevel, never stored independently.
type StressAssessment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	StressLevel int       `json:"stress_level"`
	Category    Category  `json:"category"`
	Symptoms    []string  `json:"symptoms,omitempty"`
	Triggers    []string  `json:"triggers,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summary aggregates a user's check-in history.
type Summary struct {
	Count        int              `json:"count"`
	AverageLevel float64          `json:"average_level"`
	ByCategory   map[Category]int `json:"by_category"`
	TopSymptoms  []string         `json:"top_symptoms,omitempty"`
	TopTriggers  []string         `json:"top_triggers,omitempty"`
}
