package config

import (
	"os"
	"testing"
	"time"
)

func setEnvVars(vars map[string]string) {
	for k, v := range vars {
		os.Setenv(k, v)
	}
}

func clearEnvVars(vars []string) {
	for _, k := range vars {
		os.Unsetenv(k)
	}
}

var allEnvVars = []string{
	"HOST", "PORT", "READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT", "ENVIRONMENT",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE",
	"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE",
	"REDIS_MIN_IDLE_CONNS", "REDIS_MAX_RETRIES", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_WRITE_TIMEOUT",
	"WORKER_CONCURRENCY", "WORKER_POLL_INTERVAL", "WORKER_QUEUES",
	"JWT_SECRET", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "BCRYPT_COST", "TOKEN_SWEEP_INTERVAL",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_RPM", "RATE_LIMIT_BURST", "RATE_LIMIT_CLEANUP",
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnvVars(allEnvVars)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error with default config, got: %v", err)
	}

	if config.Server.Host != "localhost" {
		t.Errorf("Expected default host 'localhost', got %s", config.Server.Host)
	}

	if config.Server.Port != "8080" {
		t.Errorf("Expected default port '8080', got %s", config.Server.Port)
	}

	if config.Server.Environment != "development" {
		t.Errorf("Expected default environment 'development', got %s", config.Server.Environment)
	}

	if config.Database.Name != "projecthub" {
		t.Errorf("Expected default DB name 'projecthub', got %s", config.Database.Name)
	}

	if config.Database.MaxOpenConns != 25 {
		t.Errorf("Expected default max open conns 25, got %d", config.Database.MaxOpenConns)
	}

	if config.Redis.Port != "6379" {
		t.Errorf("Expected default Redis port '6379', got %s", config.Redis.Port)
	}

	if config.Worker.Concurrency != 4 {
		t.Errorf("Expected default worker concurrency 4, got %d", config.Worker.Concurrency)
	}

	if len(config.Worker.Queues) != 2 {
		t.Errorf("Expected 2 default queues, got %d", len(config.Worker.Queues))
	}

	if config.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected default shutdown timeout 10s, got %v", config.Server.ShutdownTimeout)
	}

	if config.Auth.TokenSweepEvery != time.Hour {
		t.Errorf("Expected default token sweep interval 1h, got %v", config.Auth.TokenSweepEvery)
	}

	if config.Auth.AccessTokenTTL != 15*time.Minute {
		t.Errorf("Expected default access token TTL 15m, got %v", config.Auth.AccessTokenTTL)
	}

	if config.Auth.BCryptCost != 10 {
		t.Errorf("Expected default bcrypt cost 10, got %d", config.Auth.BCryptCost)
	}

	if !config.RateLimit.Enabled {
		t.Error("Expected rate limiting to be enabled by default")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnvVars(allEnvVars)
	setEnvVars(map[string]string{
		"PORT":              "9090",
		"DB_NAME":           "projecthub_test",
		"ACCESS_TOKEN_TTL":  "30m",
		"REFRESH_TOKEN_TTL": "48h",
		"RATE_LIMIT_RPM":    "200",
		"WORKER_QUEUES":     "default, notifications",
	})
	defer clearEnvVars(allEnvVars)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.Server.Port != "9090" {
		t.Errorf("Expected port '9090', got %s", config.Server.Port)
	}

	if config.Database.Name != "projecthub_test" {
		t.Errorf("Expected DB name 'projecthub_test', got %s", config.Database.Name)
	}

	if config.Auth.AccessTokenTTL != 30*time.Minute {
		t.Errorf("Expected access token TTL 30m, got %v", config.Auth.AccessTokenTTL)
	}

	if config.Auth.RefreshTokenTTL != 48*time.Hour {
		t.Errorf("Expected refresh token TTL 48h, got %v", config.Auth.RefreshTokenTTL)
	}

	if config.RateLimit.RequestsPerMin != 200 {
		t.Errorf("Expected 200 requests per minute, got %d", config.RateLimit.RequestsPerMin)
	}

	if len(config.Worker.Queues) != 2 || config.Worker.Queues[1] != "notifications" {
		t.Errorf("Expected queues [default notifications], got %v", config.Worker.Queues)
	}
}

func TestLoadConfig_ProductionRequiresSecrets(t *testing.T) {
	clearEnvVars(allEnvVars)
	setEnvVars(map[string]string{
		"ENVIRONMENT": "production",
		"DB_PASSWORD": "",
	})
	defer clearEnvVars(allEnvVars)

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for missing DB password in production")
	}

	setEnvVars(map[string]string{"DB_PASSWORD": "secret"})
	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for default JWT secret in production")
	}

	setEnvVars(map[string]string{"JWT_SECRET": "real-secret"})
	if _, err := LoadConfig(); err != nil {
		t.Errorf("Expected production config to load, got: %v", err)
	}
}

func TestGetDatabaseDSN(t *testing.T) {
	clearEnvVars(allEnvVars)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	dsn := config.GetDatabaseDSN()
	expected := "host=localhost port=5432 user=postgres password= dbname=projecthub sslmode=disable"
	if dsn != expected {
		t.Errorf("Expected DSN %q, got %q", expected, dsn)
	}
}

func TestGetRedisAddr(t *testing.T) {
	clearEnvVars(allEnvVars)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if addr := config.GetRedisAddr(); addr != "localhost:6379" {
		t.Errorf("Expected redis addr 'localhost:6379', got %s", addr)
	}
}

func TestIsProduction(t *testing.T) {
	clearEnvVars(allEnvVars)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.IsProduction() {
		t.Error("Expected development config to not be production")
	}
}
