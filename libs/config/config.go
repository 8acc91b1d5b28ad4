// Package config reads service settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Source wraps a viper instance. Environment variables override values from .env.
type Source struct {
	v *viper.Viper
}

// New loads .env from the working directory when present and binds the environment.
func New() *Source {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine (CI, containers)
	v.AutomaticEnv()
	return &Source{v: v}
}

func (s *Source) lookup(key string) string {
	return strings.TrimSpace(s.v.GetString(key))
}

func (s *Source) String(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s *Source) RequiredString(key string) (string, error) {
	v := s.lookup(key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func (s *Source) Port(key, fallback string) (string, error) {
	v := s.String(key, fallback)
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("%s must be a valid TCP port (got %q)", key, v)
	}
	return v, nil
}

// Duration parses Go duration syntax ("2s", "150ms"). Invalid or non-positive values fall back.
func (s *Source) Duration(key string, fallback time.Duration) time.Duration {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func (s *Source) Bool(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
