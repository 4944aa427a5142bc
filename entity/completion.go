package entity

import "time"

// Completion is the durable record that a user finished a mission.
// At most one exists per (UserId, MissionId); the store enforces this with a
// unique constraint so racing verifiers cannot double-award.
type Completion struct {
	UserId      int64     `json:"user_id"`
	MissionId   int64     `json:"mission_id"`
	CompletedAt time.Time `json:"completed_at"`
	Description string    `json:"description"`
	RewardCode  string    `json:"reward_code,omitempty"`
}
