package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Source is one configured telemetry endpoint.
type Source struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// Config holds all server configuration.
type Config struct {
	Addr         string
	DBPath       string
	SourcesPath  string
	Sources      []Source
	GotifyURL    string
	GotifyToken  string
	PollInterval time.Duration
	Demo         bool
	Debug        bool
}

// Load parses command line flags and environment variables. Flags take
// precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	cfg.Addr = getEnv("NOCWALL_ADDR", ":8080")
	cfg.DBPath = getEnv("NOCWALL_DB", defaultDBPath())
	cfg.SourcesPath = getEnv("NOCWALL_SOURCES", "sources.yaml")
	cfg.GotifyURL = getEnv("NOCWALL_GOTIFY_URL", "")
	cfg.GotifyToken = getEnv("NOCWALL_GOTIFY_TOKEN", "")
	cfg.PollInterval = time.Duration(getEnvInt("NOCWALL_POLL_SEC", 5)) * time.Second
	cfg.Demo = getEnvBool("NOCWALL_DEMO", false)

	pollSec := int(cfg.PollInterval / time.Second)
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite state database")
	flag.StringVar(&cfg.SourcesPath, "sources", cfg.SourcesPath, "Path to the YAML sources file")
	flag.StringVar(&cfg.GotifyURL, "gotify-url", cfg.GotifyURL, "Gotify base URL for push notifications")
	flag.StringVar(&cfg.GotifyToken, "gotify-token", cfg.GotifyToken, "Gotify application token (empty disables push)")
	flag.IntVar(&pollSec, "poll", pollSec, "Server poll interval in seconds")
	flag.BoolVar(&cfg.Demo, "demo", cfg.Demo, "Run against a built-in synthetic fleet")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")
	flag.Parse()

	cfg.PollInterval = time.Duration(pollSec) * time.Second

	return cfg
}

// sourcesFile is the on-disk shape of the sources list.
type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads the YAML sources file. A missing file is not an
// error: it yields zero sources, which the aggregator reports as the
// explicit unconfigured condition.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	var out []Source
	for i, src := range f.Sources {
		if src.URL == "" || src.Token == "" {
			log.Printf("Warning: skipping source %d: missing url or token", i)
			continue
		}
		if src.ID == "" {
			src.ID = fmt.Sprintf("source-%d", i+1)
		}
		out = append(out, src)
	}
	return out, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: could not get user home directory, using current dir: %v", err)
		return "nocwall.db"
	}
	dir := filepath.Join(home, ".nocwall")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Warning: could not create .nocwall directory, using current dir: %v", err)
		return "nocwall.db"
	}
	return filepath.Join(dir, "nocwall.db")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
