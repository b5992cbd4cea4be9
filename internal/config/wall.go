package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"
)

// WallConfig holds the wall client configuration.
type WallConfig struct {
	ServerURL    string
	SnapshotPath string
	PollInterval time.Duration
	SirenCommand string
}

// LoadWall parses the wall's flags and environment variables. Flags
// take precedence.
func LoadWall() *WallConfig {
	cfg := &WallConfig{}

	cfg.ServerURL = getEnv("NOCWALL_SERVER", "http://127.0.0.1:8080")
	cfg.SnapshotPath = getEnv("NOCWALL_SNAPSHOT", defaultSnapshotPath())
	cfg.PollInterval = time.Duration(getEnvInt("NOCWALL_WALL_POLL_SEC", 5)) * time.Second
	cfg.SirenCommand = getEnv("NOCWALL_SIREN_CMD", "")

	pollSec := int(cfg.PollInterval / time.Second)
	flag.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "nocwall server base URL")
	flag.StringVar(&cfg.SnapshotPath, "snapshot", cfg.SnapshotPath, "Path for the fallback snapshot file (empty disables)")
	flag.IntVar(&pollSec, "poll", pollSec, "Poll interval in seconds (2 fast, 5 normal, 10 slow)")
	flag.StringVar(&cfg.SirenCommand, "siren-cmd", cfg.SirenCommand, "Shell command to play the siren (default: terminal bell)")
	flag.Parse()

	cfg.PollInterval = time.Duration(pollSec) * time.Second

	return cfg
}

func defaultSnapshotPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		log.Printf("Warning: could not get user cache directory, snapshot disabled: %v", err)
		return ""
	}
	return filepath.Join(dir, "nocwall", "snapshot.json")
}
