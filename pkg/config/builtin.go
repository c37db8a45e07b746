package config

import (
	_ "embed"

	"fmt"

	"gopkg.in/yaml.v3"
)

// builtinYAML ships a handful of well-known cities so a fresh deployment has
// something to poll before an operator supplies their own engagic.yaml,
// mirroring the teacher's embedded builtin agent/MCP-server definitions
// (pkg/config/builtin.go) merged under user overrides.
//
//go:embed builtin.yaml
var builtinYAML []byte

func loadBuiltin() (*PipelineYAMLConfig, error) {
	var cfg PipelineYAMLConfig
	if err := yaml.Unmarshal(builtinYAML, &cfg); err != nil {
		return nil, fmt.Errorf("parsing builtin config: %w", err)
	}
	return &cfg, nil
}
