package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "login.conf", `
// a comment
login_port: 7000
online_check: false
ip_sync_interval: 5
account_db_driver: mysql
db_host: db.internal
db_port: 3307
subnet: 255.255.255.0:10.0.0.5:10.0.0.6
`)

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LoginPort != 7000 {
		t.Fatalf("expected login_port 7000, got %d", cfg.LoginPort)
	}
	if cfg.OnlineCheck {
		t.Fatal("expected online_check overridden to false")
	}
	if cfg.IPSyncInterval != 5*time.Minute {
		t.Fatalf("expected 5 minutes, got %v", cfg.IPSyncInterval)
	}
	if cfg.AccountDBDriver != "mysql" || cfg.DBHost != "db.internal" || cfg.DBPort != 3307 {
		t.Fatalf("unexpected db settings: %+v", cfg)
	}
	if len(cfg.Subnets) != 1 {
		t.Fatalf("expected 1 subnet entry, got %d", len(cfg.Subnets))
	}
	// Untouched defaults should survive.
	if cfg.BindIP != "0.0.0.0" {
		t.Fatalf("expected default bind_ip, got %q", cfg.BindIP)
	}
}

func TestLoadFollowsImport(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "extra.conf", "gm_table_file: gm.txt\n")
	path := writeTemp(t, dir, "login.conf", "import: extra.conf\nlogin_port: 9000\n")

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GMTableFile != "gm.txt" {
		t.Fatalf("expected gm_table_file from import, got %q", cfg.GMTableFile)
	}
	if cfg.LoginPort != 9000 {
		t.Fatalf("expected login_port 9000, got %d", cfg.LoginPort)
	}
}

func TestLoadRejectsCircularImport(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.conf")
	b := filepath.Join(dir, "b.conf")
	if err := os.WriteFile(a, []byte("import: b.conf\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("import: a.conf\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(a, ""); err == nil {
		t.Fatal("expected circular import error")
	}
}

func TestLoadAppliesLanConfigAfterMainFile(t *testing.T) {
	dir := t.TempDir()
	main := writeTemp(t, dir, "login.conf", "login_port: 6900\n")
	lan := writeTemp(t, dir, "subnet.conf", "subnet: 255.255.255.0:10.0.0.5:10.0.0.6\nlogin_port: 1\n")

	cfg, err := Load(main, lan)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Subnets) != 1 {
		t.Fatalf("expected subnet picked up from lan config, got %d", len(cfg.Subnets))
	}
	// The lan pass still applies ordinary keys too, matching applyFile's
	// generic line handling; it runs after the main file so it wins.
	if cfg.LoginPort != 1 {
		t.Fatalf("expected lan config's login_port to override, got %d", cfg.LoginPort)
	}
}
