package config

import (
	"fmt"
	"time"

	"github.com/staffsync/staffsync/libs/config"
	"github.com/staffsync/staffsync/libs/lookup"
	"github.com/staffsync/staffsync/libs/transport"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	ServiceName    string
	Port           string
	LogLevel       string
	StoreDriver    string
	DatabaseURL    string
	MigrateOnStart bool
	Bus            transport.Config
	RedisAddr      string
	Lookup         lookup.Config

	// DeleteClearsMembers publishes MemberCleared for every member of a deleted company.
	DeleteClearsMembers bool
}

func Load(src *config.Source) (Config, error) {
	service := src.String("SERVICE_NAME", "company-service")
	port, err := src.Port("PORT", "8081")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ServiceName:    service,
		Port:           port,
		LogLevel:       src.String("LOG_LEVEL", "info"),
		StoreDriver:    src.String("STORE_DRIVER", StorePostgres),
		MigrateOnStart: src.Bool("MIGRATE_ON_START", true),
		Bus:            transport.ConfigFrom(src, service),
		RedisAddr:      src.String("REDIS_ADDR", ""),
		Lookup: lookup.Config{
			BaseURL:  src.String("EMPLOYEE_SERVICE_URL", "http://localhost:8082"),
			Timeout:  src.Duration("LOOKUP_TIMEOUT", lookup.DefaultTimeout),
			CacheTTL: src.Duration("LOOKUP_CACHE_TTL", 30*time.Second),
		},
		DeleteClearsMembers: src.Bool("COMPANY_DELETE_CLEARS_MEMBERS", false),
	}

	switch cfg.StoreDriver {
	case StorePostgres:
		if cfg.DatabaseURL, err = src.RequiredString("DATABASE_URL"); err != nil {
			return Config{}, err
		}
	case StoreMemory:
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER must be postgres or memory (got %q)", cfg.StoreDriver)
	}
	return cfg, nil
}
