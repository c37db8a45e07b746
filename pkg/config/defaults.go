package config

import "time"

// Defaults holds every spec.md §6 configuration default, applied wherever
// the user's YAML leaves a section (or field) absent.
type Defaults struct {
	WorkerCount         int
	LeaseDuration        time.Duration
	MaxAttempts          int
	RetentionWindow      time.Duration
	GCInterval           time.Duration
	DispatchBatch        int
	PollInterval         time.Duration
	ChunkMaxBytes        int64
	ChunkMaxPages        int
	UserAgent            string
	StorePath            string
}

// BuiltinDefaults returns spec.md §6's enumerated defaults.
func BuiltinDefaults() Defaults {
	return Defaults{
		WorkerCount:     4,
		LeaseDuration:   15 * time.Minute,
		MaxAttempts:     3,
		RetentionWindow: 7 * 24 * time.Hour,
		GCInterval:      1 * time.Hour,
		DispatchBatch:   4,
		PollInterval:    5 * time.Minute,
		ChunkMaxBytes:   31_457_280,
		ChunkMaxPages:   90,
		UserAgent:       "engagic-pipeline/1.0 (+https://engagic.example/bot)",
		StorePath:       "./engagic.db",
	}
}
