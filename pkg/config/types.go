package config

// PipelineYAMLConfig is the root shape of the engagic.yaml configuration
// file, modeled on the teacher's TarsyYAMLConfig (pkg/config/loader.go):
// one root struct, optional sub-sections, YAML-tagged throughout.
type PipelineYAMLConfig struct {
	Cities      map[string]CityYAMLConfig `yaml:"cities"`
	RateLimiter *RateLimiterYAMLConfig    `yaml:"rate_limiter"`
	Provider    *ProviderYAMLConfig       `yaml:"provider"`
	Queue       *QueueYAMLConfig          `yaml:"queue"`
	Conductor   *ConductorYAMLConfig      `yaml:"conductor"`
	Chunker     *ChunkerYAMLConfig        `yaml:"chunker"`
	HTTP        *HTTPYAMLConfig           `yaml:"http"`
	Store       *StoreYAMLConfig          `yaml:"store"`
}

// CityYAMLConfig describes one jurisdiction to poll, keyed in
// PipelineYAMLConfig.Cities by its banana (e.g. "paloaltoCA").
type CityYAMLConfig struct {
	DisplayName string `yaml:"display_name" validate:"required"`
	State       string `yaml:"state" validate:"required,len=2"`
	Vendor      string `yaml:"vendor" validate:"required"`
	Slug        string `yaml:"slug" validate:"required"`
	// LegistarToken, when set, is passed as the Legistar API's token= query
	// parameter (spec.md §4.1: "Token passed as token= query parameter when
	// configured per-client"). Unused by every other vendor.
	LegistarToken string `yaml:"legistar_token,omitempty"`
}

// RateLimiterYAMLConfig overrides the per-vendor minimum spacing table
// (spec.md §4.2). Values are Go duration strings, e.g. "3s".
type RateLimiterYAMLConfig struct {
	MinSpacing map[string]string `yaml:"min_spacing_seconds"`
}

// ProviderYAMLConfig names the LLM model the Processor summarizes with.
// The rolling-window cap, minimum spacing, and low-remaining watermark are
// spec.md §4.3 constants baked into pkg/providerlimit, not configurable
// per-deployment.
type ProviderYAMLConfig struct {
	Model string `yaml:"model" validate:"required"`
}

// QueueYAMLConfig mirrors the teacher's QueueConfig shape (worker_count,
// lease, max_attempts), per spec.md §6.
type QueueYAMLConfig struct {
	WorkerCount     int    `yaml:"worker_count" validate:"omitempty,min=1,max=64"`
	LeaseSeconds    int    `yaml:"lease_seconds" validate:"omitempty,min=1"`
	MaxAttempts     int    `yaml:"max_attempts" validate:"omitempty,min=1"`
	RetentionHours  int    `yaml:"retention_hours" validate:"omitempty,min=1"`
	GCIntervalHours int    `yaml:"gc_interval_hours" validate:"omitempty,min=1"`
	DispatchBatch   int    `yaml:"dispatch_batch" validate:"omitempty,min=1"`
}

// ConductorYAMLConfig sets the poll loop's cadence (spec.md §4.8, §6).
type ConductorYAMLConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds" validate:"omitempty,min=1"`
}

// ChunkerYAMLConfig overrides the PDFChunker's size/page caps (spec.md §4.4,
// §6). Zero values fall back to pdfchunk's defaults.
type ChunkerYAMLConfig struct {
	MaxBytes int64 `yaml:"chunk_max_bytes" validate:"omitempty,min=1"`
	MaxPages int   `yaml:"chunk_max_pages" validate:"omitempty,min=1"`
}

// HTTPYAMLConfig sets the outbound User-Agent every adapter's HTTPFetcher
// sends (spec.md §4.1, §6).
type HTTPYAMLConfig struct {
	UserAgent string `yaml:"user_agent"`
}

// StoreYAMLConfig points at the embedded SQLite file (spec.md §4.5, §6).
type StoreYAMLConfig struct {
	Path string `yaml:"path" validate:"required"`
}
