// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the gateway's configuration from environment
// variables (optionally seeded from a .env file by main). The only
// required setting is DATABASE_URL; its absence is startup-fatal.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds every externally tunable setting.
type Config struct {
	// DatabaseURL is the chat log store DSN. Required.
	DatabaseURL string

	// Port the HTTP/websocket server listens on.
	Port string

	// LLMBackendType selects the generation backend: "local" (llama.cpp)
	// or "ollama".
	LLMBackendType string

	// StaticAssetsDir is served under /chatbot/static.
	StaticAssetsDir string

	// OTELEndpoint is the OTLP/gRPC collector address. Empty disables tracing.
	OTELEndpoint string
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	databaseURL := strings.Trim(os.Getenv("DATABASE_URL"), "\"' ")
	if databaseURL == "" {
		return nil, fmt.Errorf("required environment variable %q is not set", "DATABASE_URL")
	}

	cfg := &Config{
		DatabaseURL:     databaseURL,
		Port:            os.Getenv("CHAT_PORT"),
		LLMBackendType:  os.Getenv("LLM_BACKEND_TYPE"),
		StaticAssetsDir: os.Getenv("STATIC_ASSETS_DIR"),
		OTELEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	if cfg.Port == "" {
		cfg.Port = "8000"
	}
	if cfg.StaticAssetsDir == "" {
		cfg.StaticAssetsDir = "static"
	}
	return cfg, nil
}
