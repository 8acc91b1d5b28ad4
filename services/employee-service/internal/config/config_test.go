package config

import (
	"testing"

	"github.com/staffsync/staffsync/libs/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://staffsync@localhost:5432/employees")
	t.Setenv("SERVICE_NAME", "")
	t.Setenv("PORT", "")
	t.Setenv("EVENT_BUS", "nats")
	t.Setenv("COMPANY_SERVICE_URL", "http://company-service:8081")
	t.Setenv("EMPLOYEE_CLEAR_EMITS_REMOVAL", "1")

	cfg, err := Load(config.New())
	require.NoError(t, err)
	assert.Equal(t, "employee-service", cfg.ServiceName)
	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, "nats", cfg.Bus.Driver)
	assert.Equal(t, "http://company-service:8081", cfg.Lookup.BaseURL)
	assert.True(t, cfg.ClearEmitsRemoval)
}

func TestLoad_RejectsBadPort(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("PORT", "http")
	_, err := Load(config.New())
	require.Error(t, err)
}
