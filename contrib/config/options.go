package config

import (
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Option is config option.
type Option func(*options)

type options struct {
	sources []Source
}

// WithSource with config sources, scanned in order; later sources override
// earlier ones field by field.
func WithSource(s ...Source) Option {
	return func(o *options) {
		o.sources = append(o.sources, s...)
	}
}

// Unmarshal decodes a raw payload into v.
type Unmarshal func(data []byte, v any) error

func toUnmarshal(format string) Unmarshal {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return yaml.Unmarshal
	default:
		return json.Unmarshal
	}
}
