package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMemoryDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REALTIME_DRIVER", "hub")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DIRECTORY_STALENESS", "45s")
	t.Setenv("COMMAND_RATE_LIMIT", "12")

	require.NoError(t, LoadConfig())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, AppConfig.CORSOrigins)
	assert.Equal(t, 45*time.Second, AppConfig.DirectoryStaleness)
	assert.Equal(t, 12, AppConfig.CommandRateLimit)
	assert.Equal(t, "program", AppConfig.PresenceChannel)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": ""}},
		{"unknown store", map[string]string{"STORE_DRIVER": "mongo", "JWT_SECRET": "0123456789abcdef0123"}},
		{"postgres without password", map[string]string{"STORE_DRIVER": "postgres", "DB_PASSWORD": "", "JWT_SECRET": "0123456789abcdef0123"}},
		{"redis realtime without redis", map[string]string{"STORE_DRIVER": "memory", "REALTIME_DRIVER": "redis", "REDIS_ENABLED": "false", "JWT_SECRET": "0123456789abcdef0123"}},
		{"bad oracle url", map[string]string{"STORE_DRIVER": "memory", "ORACLE_URL": "not a url", "JWT_SECRET": "0123456789abcdef0123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Error(t, LoadConfig())
		})
	}
}

func TestMaskPassword(t *testing.T) {
	assert.Equal(t, "host=x password=***** dbname=y", maskPassword("host=x password=secret dbname=y"))
	assert.Equal(t, "host=x password=*****", maskPassword("host=x password=secret"))
}
