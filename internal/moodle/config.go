package moodle

import (
	"errors"
	"os"
)

type Config struct {
	// BaseURL is the webservice REST endpoint, e.g.
	// https://platform.example.net/webservice/rest/server.php
	BaseURL string
	Token   string
}

func LoadConfigFromEnv() (*Config, error) {
	baseURL := os.Getenv("MOODLE_URL")
	token := os.Getenv("MOODLE_TOKEN")

	if baseURL == "" {
		return nil, errors.New("MOODLE_URL environment variable not set")
	}
	if token == "" {
		return nil, errors.New("MOODLE_TOKEN environment variable not set")
	}

	return &Config{
		BaseURL: baseURL,
		Token:   token,
	}, nil
}
