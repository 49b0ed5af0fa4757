package database

import (
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// OpenBolt opens (or creates) the embedded store at path, creating parent
// directories as needed.
func OpenBolt(path string) (*bbolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
}
