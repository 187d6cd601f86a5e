package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/alnah/go-nb2html/internal/config"
)

// Environment variable names.
const (
	envConfigPath = "NB2HTML_CONFIG"
	envStyle      = "NB2HTML_STYLE"
	envTimeout    = "NB2HTML_TIMEOUT"
	envAssetPath  = "NB2HTML_ASSET_PATH"
	envMathJaxURL = "NB2HTML_MATHJAX_URL"
)

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string        // NB2HTML_CONFIG: config file name or path
	Style      string        // NB2HTML_STYLE: CSS style name or path
	Timeout    time.Duration // NB2HTML_TIMEOUT: conversion timeout
	AssetPath  string        // NB2HTML_ASSET_PATH: custom asset directory
	MathJaxURL string        // NB2HTML_MATHJAX_URL: MathJax script URL
}

// knownEnvVars lists valid NB2HTML_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	envConfigPath: true,
	envStyle:      true,
	envTimeout:    true,
	envAssetPath:  true,
	envMathJaxURL: true,
}

// loadEnvConfig reads configuration from environment variables.
// An unparsable or non-positive NB2HTML_TIMEOUT is ignored with a warning.
func loadEnvConfig(w io.Writer) *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv(envConfigPath),
		Style:      os.Getenv(envStyle),
		AssetPath:  os.Getenv(envAssetPath),
		MathJaxURL: os.Getenv(envMathJaxURL),
	}

	if timeout := os.Getenv(envTimeout); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		} else {
			fmt.Fprintf(w, "warning: ignoring %s=%q (want a positive duration like 45s)\n", envTimeout, timeout)
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized NB2HTML_* variables.
// Helps catch typos like NB2HTML_STYEL instead of NB2HTML_STYLE.
func warnUnknownEnvVars(w io.Writer) {
	var unknown []string
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "NB2HTML_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				unknown = append(unknown, name)
			}
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
	}
}

// applyEnvConfig applies environment variable values to config.
// Environment values override the config file; CLI flags are applied
// later via mergeFlags, giving: CLI flags > env vars > config file > defaults.
// Timeout is resolved separately in resolveTimeout.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Style != "" {
		cfg.CSS.Style = env.Style
	}
	if env.AssetPath != "" {
		cfg.Assets.BasePath = env.AssetPath
	}
	if env.MathJaxURL != "" {
		cfg.MathJax.URL = env.MathJaxURL
	}
}
