package pipeconfig

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Load reads path and decodes it into a RawConfig. The decoded value takes
// the same Validate/Build path as a hand-built RawConfig (e.g. in tests),
// so a config error is never specific to how the RawConfig was produced.
func Load(path string) (*RawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeconfig: reading %s: %w", path, err)
	}
	var cfg RawConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("pipeconfig: parsing %s: %w", path, err)
	}
	return &cfg, nil
}
