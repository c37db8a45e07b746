// Package config loads and validates engagic's YAML configuration, modeled
// directly on the teacher's pkg/config: a single root struct unmarshaled
// with gopkg.in/yaml.v3, environment-variable expansion, a builtin/user
// merge step via dario.cat/mergo, and a fail-fast Validator.
package config

import "time"

// Config is the fully resolved, ready-to-use configuration every other
// package takes a pointer to — the engagic analogue of the teacher's
// *config.Config.
type Config struct {
	Cities []CityConfig

	RateLimiterSpacing map[string]time.Duration

	ProviderModel string

	WorkerCount     int
	LeaseDuration   time.Duration
	MaxAttempts     int
	RetentionWindow time.Duration
	GCInterval      time.Duration
	DispatchBatch   int

	PollInterval time.Duration

	ChunkMaxBytes int64
	ChunkMaxPages int

	UserAgent string
	StorePath string
}

// CityConfig is one resolved jurisdiction (spec.md §3's City, before it is
// upserted into the store).
type CityConfig struct {
	Banana        string
	DisplayName   string
	State         string
	Vendor        string
	Slug          string
	LegistarToken string
}

// Stats summarizes the loaded configuration, used by the ops HTTP surface's
// /healthz handler — the teacher's
// cfg.Stats() plays the same role for its agents/chains/MCP-servers counts.
type Stats struct {
	Cities        int
	VendorCounts  map[string]int
}

// Stats computes the per-vendor city breakdown.
func (c *Config) Stats() Stats {
	s := Stats{Cities: len(c.Cities), VendorCounts: make(map[string]int)}
	for _, city := range c.Cities {
		s.VendorCounts[city.Vendor]++
	}
	return s
}
