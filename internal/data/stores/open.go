package stores

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hay-kot/marktimer/internal/core/kv"
	"github.com/hay-kot/marktimer/internal/data/db"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Drivers lists every supported storage driver.
var Drivers = []string{DriverMemory, DriverFile, DriverSQLite, DriverPostgres}

// Options selects and configures a storage backend.
type Options struct {
	Driver  string
	Codec   string
	DataDir string
	DSN     string

	// SQLite overrides the pool settings. Zero fields take defaults.
	SQLite db.OpenOptions

	// RecoverCorrupt moves a corrupt SQLite file aside and retries once.
	RecoverCorrupt bool
}

func (o Options) sqliteOptions() db.OpenOptions {
	d := db.DefaultOpenOptions()
	if o.SQLite.MaxOpenConns > 0 {
		d.MaxOpenConns = o.SQLite.MaxOpenConns
	}
	if o.SQLite.MaxIdleConns > 0 {
		d.MaxIdleConns = o.SQLite.MaxIdleConns
	}
	if o.SQLite.BusyTimeout > 0 {
		d.BusyTimeout = o.SQLite.BusyTimeout
	}
	return d
}

// Backend is an opened storage backend.
type Backend struct {
	KV kv.KV

	// DB is set for the sqlite driver only.
	DB *db.DB

	closer func() error
}

// Close releases the backend's resources.
func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}

// Open returns the backend described by opts.
func Open(ctx context.Context, opts Options) (*Backend, error) {
	codec, err := kv.CodecByName(opts.Codec)
	if err != nil {
		return nil, err
	}

	switch opts.Driver {
	case "", DriverMemory:
		return &Backend{KV: NewMemoryStore(codec)}, nil

	case DriverFile:
		fs, err := NewFileStore(filepath.Join(opts.DataDir, "timers"), codec)
		if err != nil {
			return nil, err
		}
		return &Backend{KV: fs}, nil

	case DriverSQLite:
		database, err := db.Open(opts.DataDir, opts.sqliteOptions())
		if err != nil && opts.RecoverCorrupt && IsCorruptionError(err) {
			if rerr := RecoverFromCorruption(opts.DataDir); rerr != nil {
				return nil, errors.Join(err, rerr)
			}
			database, err = db.Open(opts.DataDir, opts.sqliteOptions())
		}
		if err != nil {
			return nil, err
		}
		return &Backend{KV: NewKVStore(database, codec), DB: database, closer: database.Close}, nil

	case DriverPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres driver requires a dsn")
		}
		pg, err := NewPostgresStore(ctx, opts.DSN, codec)
		if err != nil {
			return nil, err
		}
		return &Backend{KV: pg, closer: func() error { pg.Close(); return nil }}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
