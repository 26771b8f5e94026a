// Package config loads chatd's runtime configuration the way tinode's
// server/main.go loads its own: a JSON-with-comments file read through
// tinode/jsonco, overlaid with process environment (via joho/godotenv for
// local .env files) and flag overrides for the most commonly tweaked knobs.
package config

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/tinode/jsonco"
)

// Config is the full set of knobs chatd's bootstrap needs.
type Config struct {
	ListenAddr string `json:"listen_addr"`
	HTTPAddr   string `json:"http_addr"`

	MySQLDSN string `json:"mysql_dsn"`

	// AuxKVAddr configures the optional Redis-backed message-id allocator
	// and hot window (SPEC_FULL.md M5/M10). Empty disables it, falling back
	// to the snowflake generator and a pure-DB history path. Per-conversation
	// seq is always allocated by MySQL either way.
	AuxKVAddr     string `json:"auxkv_addr"`
	AuxKVPoolSize int    `json:"auxkv_pool_size"`

	SnowflakeNodeID int64 `json:"snowflake_node_id"`

	MaxLineBytes   int `json:"max_line_bytes"`
	CacheTTLSecs   int `json:"cache_ttl_secs"`
	HistoryDefault int `json:"history_default_limit"`
	HistoryMax     int `json:"history_max_limit"`
}

// Default mirrors the hardcoded fallbacks main.go would otherwise repeat
// inline.
func Default() Config {
	return Config{
		ListenAddr:     ":6060",
		HTTPAddr:       ":6080",
		MySQLDSN:       "chatd:chatd@tcp(127.0.0.1:3306)/chatd?parseTime=true",
		AuxKVPoolSize:  10,
		SnowflakeNodeID: 1,
		MaxLineBytes:   64 * 1024,
		CacheTTLSecs:   300,
		HistoryDefault: 50,
		HistoryMax:     200,
	}
}

// Load reads configPath (a JSON file that may contain // and /* */
// comments, stripped via tinode/jsonco before unmarshalling) over top of
// Default(), then applies the CHATD_MYSQL_DSN and CHATD_AUXKV_ADDR
// environment overrides: built-in default < config file < environment.
// Flags are not read here; BindFlags registers them over the loaded
// Config so they win when the caller parses them afterwards.
func Load(configPath string) (Config, error) {
	_ = godotenv.Load() // best effort; missing .env is not an error

	cfg := Default()

	if configPath != "" {
		f, err := os.Open(configPath)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		dec := json.NewDecoder(jsonco.New(f))
		if err := dec.Decode(&cfg); err != nil {
			return cfg, err
		}
	}

	if v := os.Getenv("CHATD_MYSQL_DSN"); v != "" {
		cfg.MySQLDSN = v
	}
	if v := os.Getenv("CHATD_AUXKV_ADDR"); v != "" {
		cfg.AuxKVAddr = v
	}

	return cfg, nil
}

// BindFlags registers the subset of Config fields worth overriding per
// invocation without editing the config file.
func BindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "TCP listen address for the chat protocol")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "listen address for the /healthz and /metrics sidecar")
	fs.StringVar(&cfg.MySQLDSN, "mysql", cfg.MySQLDSN, "MySQL data source name")
	fs.StringVar(&cfg.AuxKVAddr, "auxkv", cfg.AuxKVAddr, "optional Redis address for message-id allocation and the hot window")
}
