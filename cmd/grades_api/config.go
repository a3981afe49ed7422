package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ecala/gradesync/internal/moodle"
	"github.com/ecala/gradesync/internal/storage/factory"
	"github.com/ecala/gradesync/pkg/config/env"
)

type AppConfig struct {
	ENV string
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		ENV: os.Getenv("ENV"),
	}
}

type GradesApiConfig struct {
	StorageConfig factory.StorageConfig
	Moodle        moodle.Config

	CachePath     string
	BulkCachePath string

	ActivitiesPath string
	CoursesPath    string
}

func (as *AppConfig) Load() (*GradesApiConfig, error) {
	err := env.LoadDotEnv(as.ENV, "cmd/grades_api/.env")
	if err != nil {
		slog.Info("Failed to .env load environment variables, continuing with existing environment variables", "error", err)
	}

	storageCfg, err := factory.LoadEnv()
	if err != nil {
		slog.Error("Failed to load storage configuration from environment", "error", err)
		return nil, err
	}

	moodleCfg, err := moodle.LoadConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load upstream configuration from environment", "error", err)
		return nil, err
	}

	cachePath := os.Getenv("CACHE_PATH")
	if cachePath == "" {
		cachePath = "cache.csv"
	}
	bulkCachePath := os.Getenv("BULK_CACHE_PATH")
	if bulkCachePath == "" {
		bulkCachePath = "cache_bulk.csv"
	}

	activitiesPath := os.Getenv("ACTIVITIES_CSV")
	coursesPath := os.Getenv("COURSES_CSV")
	if activitiesPath == "" || coursesPath == "" {
		return nil, fmt.Errorf("ACTIVITIES_CSV and COURSES_CSV environment variables must be set")
	}

	return &GradesApiConfig{
		StorageConfig:  *storageCfg,
		Moodle:         *moodleCfg,
		CachePath:      cachePath,
		BulkCachePath:  bulkCachePath,
		ActivitiesPath: activitiesPath,
		CoursesPath:    coursesPath,
	}, nil
}
