package service

import (
	"fmt"
	"strings"

	"github.com/dermesser/svcframe"

	"gopkg.in/yaml.v3"
)

// ConfigFromPairs builds a config from alternating keys and values as found on a command
// line ("--timeout 5 name x"). Leading dashes are stripped from keys; values are read as YAML
// scalars so that numbers and booleans keep their type.
func ConfigFromPairs(pairs []string) (svcframe.Config, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("config: odd number of key/value arguments (%d)", len(pairs))
	}

	config := make(svcframe.Config, len(pairs)/2)

	for i := 0; i < len(pairs); i += 2 {
		key := strings.TrimLeft(pairs[i], "-")

		if key == "" {
			return nil, fmt.Errorf("config: empty key at position %d", i)
		}

		config[key] = scalar(pairs[i+1])
	}
	return config, nil
}

func scalar(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	switch v.(type) {
	case int, float64, bool:
		return v
	}
	return s
}

// MergeConfig overlays the given configs in order; later keys win.
func MergeConfig(configs ...svcframe.Config) svcframe.Config {
	out := svcframe.Config{}
	for _, c := range configs {
		for k, v := range c {
			out[k] = v
		}
	}
	return out
}
