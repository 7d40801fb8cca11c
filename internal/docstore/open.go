package docstore

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendRemote = "remote"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string
	SQLitePath    string
	RedisAddr     string
	MongoURI      string
	MongoDatabase string
	RemoteURL     string
	Logger        *log.Logger
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		if opts.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite store: no database path")
		}
		return OpenSQLite(ctx, opts.SQLitePath)
	case BackendRedis:
		return NewRedis(ctx, opts.RedisAddr, opts.Logger)
	case BackendMongo:
		return NewMongo(ctx, opts.MongoURI, opts.MongoDatabase, opts.Logger)
	case BackendRemote:
		return NewRemote(opts.RemoteURL, opts.Logger)
	}
	return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
}
