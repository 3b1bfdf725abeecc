package domain

import "time"

type Player struct {
	IsPlaying      bool      `json:"is_playing"`
	StartTimestamp time.Time `json:"start_timestamp"`
	LastPosition   int       `json:"last_position"`
}
