package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWithNoPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Fatalf("expected defaults unchanged, got %+v, want %+v", cfg, want)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chatd.conf")
	contents := `{
		// comments are stripped before decoding
		"listen_addr": ":7000",
		"history_default_limit": 25
	}`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":7000" {
		t.Fatalf("expected listen_addr override, got %q", cfg.ListenAddr)
	}
	if cfg.HistoryDefault != 25 {
		t.Fatalf("expected history_default_limit override, got %d", cfg.HistoryDefault)
	}
	// Fields absent from the file keep their defaults.
	if cfg.HistoryMax != Default().HistoryMax {
		t.Fatalf("expected untouched field to keep its default, got %d", cfg.HistoryMax)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load("/nonexistent/chatd.conf"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoadEnvOverridesMySQLDSN(t *testing.T) {
	t.Setenv("CHATD_MYSQL_DSN", "env-dsn")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MySQLDSN != "env-dsn" {
		t.Fatalf("expected env override to win, got %q", cfg.MySQLDSN)
	}
}

func TestBindFlagsOverridesListenAddr(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	BindFlags(fs, &cfg)

	if err := fs.Parse([]string{"-listen", ":9999"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	if cfg.ListenAddr != ":9999" {
		t.Fatalf("expected flag override to apply, got %q", cfg.ListenAddr)
	}
}
