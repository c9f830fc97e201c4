// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := load("")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Server.Port != 3857 {
		t.Errorf("Server.Port = %d, want 3857", cfg.Server.Port)
	}
	if len(cfg.ServiceArea.Cities) == 0 {
		t.Error("default city allowlist should survive loading")
	}
	if cfg.SEO.Organization.Telephone != "+1-949-658-2372" {
		t.Errorf("Organization.Telephone = %q", cfg.SEO.Organization.Telephone)
	}
	if cfg.GeoIP.CacheTTL != 6*time.Hour {
		t.Errorf("GeoIP.CacheTTL = %v, want 6h", cfg.GeoIP.CacheTTL)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
service_area:
  undetermined_policy: deny
  cities:
    - Irvine
    - Tustin
analytics:
  idle_timeout: 10m
`)

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.ServiceArea.UndeterminedPolicy != "deny" {
		t.Errorf("UndeterminedPolicy = %q", cfg.ServiceArea.UndeterminedPolicy)
	}
	if len(cfg.ServiceArea.Cities) != 2 {
		t.Errorf("Cities = %v, want [Irvine Tustin]", cfg.ServiceArea.Cities)
	}
	if cfg.Analytics.IdleTimeout != 10*time.Minute {
		t.Errorf("IdleTimeout = %v, want 10m", cfg.Analytics.IdleTimeout)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9000\n")
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SERVICE_AREA_CITIES", "Orange,Anaheim")
	t.Setenv("ANALYTICS_IDLE_TIMEOUT", "45m")

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if len(cfg.ServiceArea.Cities) != 2 || cfg.ServiceArea.Cities[0] != "Orange" {
		t.Errorf("Cities = %v", cfg.ServiceArea.Cities)
	}
	if cfg.Analytics.IdleTimeout != 45*time.Minute {
		t.Errorf("IdleTimeout = %v, want 45m", cfg.Analytics.IdleTimeout)
	}
}

func TestLoad_InvalidFails(t *testing.T) {
	t.Setenv("ANALYTICS_STORE", "postgres")
	if _, err := load(""); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestFindConfigFile_EnvVar(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9000\n")
	t.Setenv(ConfigPathEnvVar, path)
	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}
}
