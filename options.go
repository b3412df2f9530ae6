// Package kore is the root façade spec.md §4.11/§6 describes: the single
// owned Coordinator instance, the document/graph operations it delegates to
// graph.Store, and the vector façade that drives hnsw.Index/hnsw.Indexer
// with a brute-force fallback to engine.SearchVectors while a collection's
// HNSW graph is still cold (spec.md §4.9 "Search behavior").
package kore

import (
	"github.com/raipankaj/KoreDB/engine"
	"github.com/raipankaj/KoreDB/hnsw"
	"golang.org/x/time/rate"
)

// Logger is engine's logging seam, re-exported so callers configuring a
// Coordinator don't need to import engine directly for this one type
// (spec.md §3 ambient-stack note: kore defines the same Logger interface
// the engine package does).
type Logger = engine.Logger

// Options configures a Coordinator.
type Options struct {
	// Engine is forwarded verbatim to engine.Open.
	Engine []engine.Option

	// HNSW configures every per-collection vector index this Coordinator
	// creates.
	HNSW hnsw.Options

	// HydrationLimiter paces each collection's cold-start hydration scan
	// (spec.md §4.9 Hydration step 1). Nil hydrates at full speed.
	HydrationLimiter *rate.Limiter

	// HydrationChunkSize bounds how many (id, vector) pairs the hydration
	// source hands the indexer per Next() call.
	HydrationChunkSize int

	// Logger receives diagnostic messages; forwarded to engine.Open.
	Logger Logger
}

// DefaultOptions matches hnsw.DefaultOptions and a 256-entry hydration
// chunk size, with unlimited hydration pacing.
var DefaultOptions = Options{
	HNSW:               hnsw.DefaultOptions,
	HydrationChunkSize: 256,
}

// Option mutates Options, following the functional-options convention used
// throughout this codebase (engine.Option, wal.Option, hnsw's Options
// literal).
type Option func(*Options)

// WithEngineOptions forwards opts to engine.Open.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *Options) { o.Engine = append(o.Engine, opts...) }
}

// WithHNSWOptions overrides the HNSW parameters used for every collection
// this Coordinator creates from this point on.
func WithHNSWOptions(opts hnsw.Options) Option {
	return func(o *Options) { o.HNSW = opts }
}

// WithHydrationLimiter paces cold-start hydration scans.
func WithHydrationLimiter(l *rate.Limiter) Option {
	return func(o *Options) { o.HydrationLimiter = l }
}

// WithHydrationChunkSize overrides the default hydration batch size.
func WithHydrationChunkSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.HydrationChunkSize = n
		}
	}
}

// WithLogger installs a custom Logger, forwarded to the underlying engine.
func WithLogger(l Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
			o.Engine = append(o.Engine, engine.WithLogger(l))
		}
	}
}
