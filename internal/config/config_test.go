package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "5001" {
		t.Fatalf("unexpected port: %q", cfg.Server.Port)
	}
	if cfg.MongoDB.Database != "papyrus" {
		t.Fatalf("unexpected database: %q", cfg.MongoDB.Database)
	}
	if cfg.Resolver.LookupTimeout != 2*time.Second {
		t.Fatalf("unexpected lookup timeout: %v", cfg.Resolver.LookupTimeout)
	}
	if cfg.Authz.TablePath != "permissions.json" {
		t.Fatalf("unexpected table path: %q", cfg.Authz.TablePath)
	}
	if cfg.JWT.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("unexpected access TTL: %v", cfg.JWT.AccessTokenTTL)
	}
}

func TestLoadAuthzWithoutServiceEnv(t *testing.T) {
	// a missing MONGODB_URI must not matter for the authz-only loader
	t.Setenv("MONGODB_URI", "")
	t.Setenv("AUTHZ_MINIO_ENDPOINT", "minio:9000")
	t.Setenv("AUTHZ_MINIO_BUCKET", "authz")
	t.Setenv("AUTHZ_MINIO_OBJECT", "permissions.json")

	ac := LoadAuthz()
	if ac.MinIOEndpoint != "minio:9000" || ac.MinIOBucket != "authz" || ac.MinIOObject != "permissions.json" {
		t.Fatalf("unexpected authz config: %+v", ac)
	}
	if ac.TablePath != "permissions.json" {
		t.Fatalf("expected default table path, got %q", ac.TablePath)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("RESOLVER_LOOKUP_TIMEOUT_MS", "500")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("AUTHZ_TABLE_PATH", "/etc/papyrus/permissions.json")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("unexpected port: %q", cfg.Server.Port)
	}
	if cfg.MongoDB.URI != "mongodb://db:27017" {
		t.Fatalf("unexpected uri: %q", cfg.MongoDB.URI)
	}
	if cfg.Resolver.LookupTimeout != 500*time.Millisecond {
		t.Fatalf("unexpected lookup timeout: %v", cfg.Resolver.LookupTimeout)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RPS != 2.5 {
		t.Fatalf("unexpected rate limit config: %+v", cfg.RateLimit)
	}
	if cfg.Authz.TablePath != "/etc/papyrus/permissions.json" {
		t.Fatalf("unexpected table path: %q", cfg.Authz.TablePath)
	}
	if cfg.JWT.Secret != "s3cret" {
		t.Fatalf("unexpected secret: %q", cfg.JWT.Secret)
	}
}
