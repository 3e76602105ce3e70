package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // hcl pipeline definition
	RecordsPath  string // json array of record objects

	WindowSize           int
	EnsureSliceableIndex bool

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.RecordsPath == "" {
		return nil, errors.New("RecordsPath is a required configuration field and cannot be empty")
	}
	if cfg.WindowSize <= 0 {
		return nil, errors.New("WindowSize must be positive")
	}
	return &cfg, nil
}
