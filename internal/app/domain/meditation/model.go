// Package meditation defines the content catalog model.
package meditation

import "time"

// Category classifies catalog content.
type Category string

// Catalog categories.
const (
	CategoryGuided         Category = "guided"
	CategoryUnguided       Category = "unguided"
	CategoryBreathing      Category = "breathing"
	CategoryBodyScan       Category = "body_scan"
	CategoryLovingKindness Category = "loving_kindness"
)

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryGuided, CategoryUnguided, CategoryBreathing, CategoryBodyScan, CategoryLovingKindness:
		return true
	}
	return false
}

// Difficulty grades catalog content.
type Difficulty string

// Difficulty levels.
const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ValidDifficulty reports whether d is a known difficulty.
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// Meditation is one piece of catalog content.
type Meditation struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Category        Category   `json:"category"`
	Difficulty      Difficulty `json:"difficulty"`
	DurationSeconds int        `json:"duration_seconds"`
	AudioURL        string     `json:"audio_url,omitempty"`
	CreatedBy       string     `json:"created_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
