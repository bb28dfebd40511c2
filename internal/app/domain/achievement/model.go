// Package achievement defines achievement definitions and per-user
// progress.
package achievement

import "time"

// Definition describes an earnable achievement.
type Definition struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Criteria    string    `json:"criteria,omitempty"`
	Target      int       `json:"target"`
	CreatedAt   time.Time `json:"created_at"`
}

// Progress tracks one user's advancement toward one achievement. Current
// never exceeds Target.
type Progress struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	AchievementID string     `json:"achievement_id"`
	Current       int        `json:"current"`
	Target        int        `json:"target"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Completed reports whether the achievement has been earned.
func (p Progress) Completed() bool {
	return p.CompletedAt != nil
}
