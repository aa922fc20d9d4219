package discover

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Dicklesworthstone/cmdlens/internal/util"
)

// cacheFileName lives in the per-user config directory.
const cacheFileName = "discovery.json"

// cacheFile is the persisted discovery result. A mismatched path hash or
// an unreadable file is simply a miss; the cache is an accelerator, never
// a source of truth.
type cacheEnvelope struct {
	Timestamp time.Time `json:"timestamp"`
	PathHash  string    `json:"path_hash"`
	CLIs      []CLI     `json:"clis"`
}

// cacheFile resolves the on-disk cache location.
func (o Options) cacheFile() string {
	dir := o.CacheDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = os.TempDir()
		}
		dir = filepath.Join(base, "cmdlens")
	}
	return filepath.Join(dir, cacheFileName)
}

// hashSearchPath keys the cache on the exact search-path value, so a PATH
// change invalidates it implicitly.
func hashSearchPath(searchPath string) string {
	sum := sha256.Sum256([]byte(searchPath))
	return hex.EncodeToString(sum[:8])
}

// loadCache returns the cached CLI set when the file exists, parses, was
// built for the same search path, and is younger than ttl.
func loadCache(path, pathHash string, ttl time.Duration) ([]CLI, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var env cacheEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		// Malformed cache: treat as a miss and let the rescan overwrite it.
		return nil, false
	}
	if env.PathHash != pathHash {
		return nil, false
	}
	if time.Since(env.Timestamp) > ttl {
		return nil, false
	}
	return env.CLIs, true
}

// saveCache atomically persists the unfiltered scored set.
func saveCache(path, pathHash string, clis []CLI) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	data, err := json.MarshalIndent(cacheEnvelope{
		Timestamp: time.Now(),
		PathHash:  pathHash,
		CLIs:      clis,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	return util.AtomicWriteFile(path, data, 0644)
}

// InvalidateCache removes the on-disk cache, forcing the next Discover to
// rescan.
func InvalidateCache(opts Options) error {
	err := os.Remove(opts.withDefaults().cacheFile())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
