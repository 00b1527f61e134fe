package config

import (
	"fmt"
	"strings"
)

// Parse reads JSONC configuration content layered over base.
//
// Empty content yields base unchanged (after validation).
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		cfg := base
		warnings := applyEnv(&cfg)
		validatedWarnings, err := Validate(cfg)
		if err != nil {
			return Config{}, nil, err
		}
		return cfg, append(warnings, validatedWarnings...), nil
	}

	if !strings.HasPrefix(trimmed, "{") {
		return Config{}, nil, fmt.Errorf("config must be a JSONC object")
	}
	return parseJSONC(content, base)
}
