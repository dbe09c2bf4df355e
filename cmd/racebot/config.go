package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bot struct {
		CallChannels  []string `yaml:"call_channels"`
		ResultsRoomID string   `yaml:"results_room_id"`
		Admins        []string `yaml:"admins"`
	} `yaml:"bot"`
	Directory struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"directory"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}
