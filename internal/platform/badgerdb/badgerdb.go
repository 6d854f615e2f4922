// Package badgerdb opens the embedded BadgerDB used by the badger graph backend.
package badgerdb

import (
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
)

type Config struct {
	// Path is required unless InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
}

// badgerLogger adapts logger.Logger to badger.Logger.
type badgerLogger struct {
	log *logger.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func Open(log *logger.Logger, cfg Config) (*badger.DB, error) {
	if log == nil {
		return nil, fmt.Errorf("badgerdb: logger required")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		path := strings.TrimSpace(cfg.Path)
		if path == "" {
			return nil, fmt.Errorf("badgerdb: missing path")
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("badgerdb: create dir: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{log: log.With("client", "BadgerDB")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, types.Unavailable("badgerdb: open", err)
	}
	return db, nil
}
