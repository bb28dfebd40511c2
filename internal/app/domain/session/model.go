// Package session defines the practice session model shared by guided
// meditation, breathing exercise, and progressive muscle relaxation
// tracking.
package session

import "time"

// Kind discriminates the three practice types stored in one record shape.
type Kind string

// Practice kinds.
const (
	KindMeditation Kind = "meditation"
	KindBreathing  Kind = "breathing"
	KindPMR        Kind = "pmr"
)

// ValidKind reports whether k is a known practice kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindMeditation, KindBreathing, KindPMR:
		return true
	}
	return false
}

// Status is a session lifecycle state.
type Status string

// Lifecycle states. Transitions are monotonic; see CanTransition.
const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether a session may move from one status to
// another. Terminal states admit no further transitions.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Session is one practice session of any kind. Kind-specific fields
// (CycleCount, Pattern, MuscleGroups) are zero for kinds that do not use
// them.
type Session struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Kind            Kind       `json:"kind"`
	MeditationID    string     `json:"meditation_id,omitempty"`
	Status          Status     `json:"status"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	Notes           string     `json:"notes,omitempty"`
	CycleCount      int        `json:"cycle_count,omitempty"`
	Pattern         string     `json:"pattern,omitempty"`
	MuscleGroups    []string   `json:"muscle_groups,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
