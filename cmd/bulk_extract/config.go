package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ecala/gradesync/internal/moodle"
	"github.com/ecala/gradesync/internal/storage/factory"
	"github.com/ecala/gradesync/pkg/config/env"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	ENV string
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		ENV: os.Getenv("ENV"),
	}
}

type BulkExtractConfig struct {
	StorageConfig factory.StorageConfig
	Moodle        moodle.Config
}

func (as *AppConfig) Load() (*BulkExtractConfig, error) {
	err := env.LoadDotEnv(as.ENV, "cmd/bulk_extract/.env")
	if err != nil {
		slog.Info("Failed to .env load environment variables, continuing with existing environment variables", "error", err)
	}

	storageCfg, err := factory.LoadEnv()
	if err != nil {
		return nil, err
	}

	moodleCfg, err := moodle.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	return &BulkExtractConfig{
		StorageConfig: *storageCfg,
		Moodle:        *moodleCfg,
	}, nil
}

// JobSpec is the YAML description of one batch run: which rosters to load,
// where the cache tables live, and which scopes to resolve.
type JobSpec struct {
	Rosters struct {
		Activities string `yaml:"activities"`
		Courses    string `yaml:"courses"`
	} `yaml:"rosters"`
	Cache struct {
		Individual string `yaml:"individual"`
		Bulk       string `yaml:"bulk"`
	} `yaml:"cache"`
	ScopeDelayMs int   `yaml:"scope_delay_ms"`
	Jobs         []Job `yaml:"jobs"`
}

type Job struct {
	Name         string `yaml:"name"`
	Scope        string `yaml:"scope"`
	Value        string `yaml:"value"`
	WithFeedback bool   `yaml:"with_feedback"`
}

var validScopes = map[string]bool{
	"course":     true,
	"instructor": true,
	"classroom":  true,
}

func LoadJobSpec(path string) (*JobSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job spec file: %w", err)
	}
	return ParseJobSpec(data)
}

func ParseJobSpec(data []byte) (*JobSpec, error) {
	var s JobSpec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse job spec YAML: %w", err)
	}
	if err := validateJobSpec(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func validateJobSpec(s *JobSpec) error {
	if s.Rosters.Activities == "" || s.Rosters.Courses == "" {
		return fmt.Errorf("job spec must name both roster files")
	}
	if s.Cache.Individual == "" {
		s.Cache.Individual = "cache.csv"
	}
	if s.Cache.Bulk == "" {
		s.Cache.Bulk = "cache_bulk.csv"
	}
	if len(s.Jobs) == 0 {
		return fmt.Errorf("job spec has no jobs")
	}
	for i, j := range s.Jobs {
		if j.Name == "" {
			return fmt.Errorf("job at index %d has no name", i)
		}
		if !validScopes[j.Scope] {
			return fmt.Errorf("job %q has invalid scope %q, expected course, instructor or classroom", j.Name, j.Scope)
		}
		if j.Value == "" {
			return fmt.Errorf("job %q has no scope value", j.Name)
		}
	}
	return nil
}
