package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Profile != ProfileProduction || cfg.ListLimitMax != 100 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if !strings.HasSuffix(cfg.DatabasePath, filepath.Join(".mentalbank", "mentalbank.db")) {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if cfg.Development() {
		t.Fatal("production is not development")
	}
}

func TestLoadServerOverrides(t *testing.T) {
	t.Setenv("MBB_ADDR", "127.0.0.1:9000")
	t.Setenv("MBB_DATABASE_PATH", "/tmp/mbb.db")
	t.Setenv("MBB_PROFILE", "development")
	t.Setenv("MBB_LIST_LIMIT_MAX", "25")
	t.Setenv("MBB_OTEL_ENDPOINT", "localhost:4317")
	t.Setenv("MBB_OTEL_INSECURE", "true")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Server{
		Addr:         "127.0.0.1:9000",
		DatabasePath: "/tmp/mbb.db",
		Profile:      ProfileDevelopment,
		ListLimitMax: 25,
		OTelEndpoint: "localhost:4317",
		OTelInsecure: true,
	}
	if cfg != want {
		t.Fatalf("expected %+v, got %+v", want, cfg)
	}
}

func TestLoadServerRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"MBB_PROFILE":        "staging",
		"MBB_LIST_LIMIT_MAX": "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("MBB_DATABASE_PATH", "/tmp/mbb.db")
			t.Setenv(key, value)
			if _, err := LoadServer(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("MBB_LIST_LIMIT_MAX", "lots")

	var cfg Server
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("MBB_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MBB_TEST_DOTENV", "")
	os.Unsetenv("MBB_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("MBB_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.APIURL != defaultAPIURL || settings.StaleAfter() != 24*time.Hour {
		t.Fatalf("unexpected defaults %+v", settings)
	}
}

func TestLoadSettingsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := "api_url: http://mbb.internal:8080\nowner_id: owner-from-file\nstale_after_hours: 12\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MBB_OWNER_ID", "owner-from-env")
	t.Setenv("MBB_STATE_DIR", "/var/tmp/mbb")

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.APIURL != "http://mbb.internal:8080" {
		t.Fatalf("expected api url from file, got %q", settings.APIURL)
	}
	if settings.OwnerID != "owner-from-env" || settings.StateDir != "/var/tmp/mbb" {
		t.Fatalf("expected env overrides, got %+v", settings)
	}
	if settings.StaleAfter() != 12*time.Hour {
		t.Fatalf("expected 12h, got %s", settings.StaleAfter())
	}
}

func TestLoadSettingsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	os.WriteFile(path, []byte("api_url: [unclosed"), 0o644)

	if _, err := LoadSettings(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnsureOwnerPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	settings := DefaultSettings()

	if err := EnsureOwner(path, &settings); err != nil {
		t.Fatalf("ensure owner: %v", err)
	}
	if settings.OwnerID == "" {
		t.Fatal("expected generated owner id")
	}

	reloaded, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.OwnerID != settings.OwnerID {
		t.Fatalf("expected %s persisted, got %s", settings.OwnerID, reloaded.OwnerID)
	}
}
