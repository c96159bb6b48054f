package fxauth

import (
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.PrivateKey = []byte(testSigningKey)
	return cfg
}

func TestDefaultConfigValidatesWithKey(t *testing.T) {
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with key must validate: %v", err)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }},
		{"zero refresh ttl", func(c *Config) { c.JWT.RefreshTTL = 0 }},
		{"refresh shorter than access", func(c *Config) {
			c.JWT.AccessTTL = time.Hour
			c.JWT.RefreshTTL = time.Minute
		}},
		{"unknown signing method", func(c *Config) { c.JWT.SigningMethod = "rs256" }},
		{"short hs256 key", func(c *Config) { c.JWT.PrivateKey = []byte("too-short") }},
		{"ed25519 without private key", func(c *Config) {
			c.JWT.SigningMethod = "ed25519"
			c.JWT.PrivateKey = nil
		}},
		{"ed25519 without public key", func(c *Config) {
			c.JWT.SigningMethod = "ed25519"
			c.JWT.PublicKey = nil
		}},
		{"negative leeway", func(c *Config) { c.JWT.Leeway = -time.Second }},
		{"excessive leeway", func(c *Config) { c.JWT.Leeway = 5 * time.Minute }},
		{"weak argon memory", func(c *Config) { c.Password.Memory = 1024 }},
		{"zero argon time", func(c *Config) { c.Password.Time = 0 }},
		{"zero argon parallelism", func(c *Config) { c.Password.Parallelism = 0 }},
		{"short salt", func(c *Config) { c.Password.SaltLength = 8 }},
		{"short key", func(c *Config) { c.Password.KeyLength = 8 }},
		{"audit enabled without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
		{"login throttle without attempts", func(c *Config) {
			c.Security.EnableLoginThrottle = true
			c.Security.MaxLoginAttempts = 0
		}},
		{"login throttle without cooldown", func(c *Config) {
			c.Security.EnableLoginThrottle = true
			c.Security.LoginCooldownDuration = 0
		}},
		{"refresh throttle without attempts", func(c *Config) {
			c.Security.EnableRefreshThrottle = true
			c.Security.MaxRefreshAttempts = 0
		}},
		{"refresh throttle without cooldown", func(c *Config) {
			c.Security.EnableRefreshThrottle = true
			c.Security.RefreshCooldownDuration = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected %s to fail validation", tc.name)
			}
		})
	}
}

func TestConfigThrottlesCanBeDisabled(t *testing.T) {
	cfg := validTestConfig()
	cfg.Security.EnableLoginThrottle = false
	cfg.Security.EnableRefreshThrottle = false
	cfg.Security.MaxLoginAttempts = 0
	cfg.Security.MaxRefreshAttempts = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled throttles must not require throttle params: %v", err)
	}
}

func TestCloneConfigIsolatesKeyMaterial(t *testing.T) {
	cfg := validTestConfig()
	clone := cloneConfig(cfg)

	clone.JWT.PrivateKey[0] ^= 0xFF
	if cfg.JWT.PrivateKey[0] == clone.JWT.PrivateKey[0] {
		t.Fatal("clone must not share key material with the original")
	}
}
