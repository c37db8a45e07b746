package config

import (
	"fmt"

	"github.com/engagic/pipeline/pkg/models"
	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// validateStructTags runs github.com/go-playground/validator/v10 over the
// raw YAML shape's struct tags — positive durations, non-empty vendor tags,
// 2-letter state codes — before any defaults are merged in, per the
// teacher's layering (struct-tag validation first, semantic validation
// after merge).
func validateStructTags(cfg *PipelineYAMLConfig) error {
	if cfg.Provider != nil {
		if err := structValidator.Struct(cfg.Provider); err != nil {
			return fmt.Errorf("provider: %w", err)
		}
	}
	if cfg.Queue != nil {
		if err := structValidator.Struct(cfg.Queue); err != nil {
			return fmt.Errorf("queue: %w", err)
		}
	}
	if cfg.Conductor != nil {
		if err := structValidator.Struct(cfg.Conductor); err != nil {
			return fmt.Errorf("conductor: %w", err)
		}
	}
	if cfg.Chunker != nil {
		if err := structValidator.Struct(cfg.Chunker); err != nil {
			return fmt.Errorf("chunker: %w", err)
		}
	}
	for banana, city := range cfg.Cities {
		if err := structValidator.Struct(city); err != nil {
			return fmt.Errorf("city %s: %w", banana, err)
		}
	}
	return nil
}

// validateSemantics runs the fail-fast ordered validateX sequence the
// teacher's Validator.ValidateAll uses (pkg/config/validator.go), against
// the fully resolved Config.
func validateSemantics(cfg *Config) error {
	if err := validateCities(cfg); err != nil {
		return fmt.Errorf("cities validation failed: %w", err)
	}
	if err := validateQueue(cfg); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}
	if err := validateConductor(cfg); err != nil {
		return fmt.Errorf("conductor validation failed: %w", err)
	}
	if err := validateChunker(cfg); err != nil {
		return fmt.Errorf("chunker validation failed: %w", err)
	}
	if err := validateProvider(cfg); err != nil {
		return fmt.Errorf("provider validation failed: %w", err)
	}
	return nil
}

func validateCities(cfg *Config) error {
	if len(cfg.Cities) == 0 {
		return ErrNoCities
	}
	seen := make(map[string]bool, len(cfg.Cities))
	for _, city := range cfg.Cities {
		if err := models.ValidateBanana(city.Banana); err != nil {
			return err
		}
		if seen[city.Banana] {
			return fmt.Errorf("duplicate banana %q", city.Banana)
		}
		seen[city.Banana] = true
	}
	return nil
}

func validateQueue(cfg *Config) error {
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker_count must be at least 1, got %d", cfg.WorkerCount)
	}
	if cfg.LeaseDuration <= 0 {
		return fmt.Errorf("lease_seconds must be positive, got %v", cfg.LeaseDuration)
	}
	if cfg.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", cfg.MaxAttempts)
	}
	return nil
}

func validateConductor(cfg *Config) error {
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval_seconds must be positive, got %v", cfg.PollInterval)
	}
	if cfg.DispatchBatch < 1 {
		return fmt.Errorf("dispatch_batch must be at least 1, got %d", cfg.DispatchBatch)
	}
	return nil
}

func validateChunker(cfg *Config) error {
	if cfg.ChunkMaxBytes < 1 {
		return fmt.Errorf("chunk_max_bytes must be positive, got %d", cfg.ChunkMaxBytes)
	}
	if cfg.ChunkMaxPages < 1 {
		return fmt.Errorf("chunk_max_pages must be positive, got %d", cfg.ChunkMaxPages)
	}
	return nil
}

func validateProvider(cfg *Config) error {
	if cfg.ProviderModel == "" {
		return fmt.Errorf("provider.model must be set")
	}
	return nil
}
