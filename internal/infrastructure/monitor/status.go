package monitor

import "time"

type Status struct {
	Database     bool      `json:"database"`
	Driver       string    `json:"driver"`
	Redis        bool      `json:"redis"`
	RedisEnabled bool      `json:"redis_enabled"`
	Mirror       bool      `json:"mirror"`
	MirrorSize   int       `json:"mirror_size"`
	LastCheck    time.Time `json:"last_check"`
}

// Healthy reports whether every configured dependency answered.
func (s Status) Healthy() bool {
	return s.Database && (s.Redis || !s.RedisEnabled)
}
