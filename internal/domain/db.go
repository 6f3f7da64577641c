package domain

import "context"

// Database is the storage backend the service boots against. Readiness
// probes go through Ping.
type Database interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
