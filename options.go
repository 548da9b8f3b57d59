package chunkstore

import (
	"github.com/hupe1980/chunkstore/internal/cachecodec"
)

// LogicalFile describes one file laid out in the store's address space.
type LogicalFile struct {
	// Path is slash-separated and relative to the store's directory.
	Path string
	// Length must be positive.
	Length int64
	// Offset is the file's first byte in the store. Nil places the file
	// directly after the previous one.
	Offset *int64
}

// Compression selects how cache artifacts are stored.
type Compression = cachecodec.Codec

const (
	CompressionNone = cachecodec.None
	CompressionLZ4  = cachecodec.LZ4
	CompressionZSTD = cachecodec.ZSTD
)

type options struct {
	name                string
	files               []LogicalFile
	totalLength         int64 // -1 when unset
	logger              *Logger
	metricsCollector    MetricsCollector
	compression         Compression
	memoryCacheBytes    int64
	memoryLimitBytes    int64
	ioLimitBytesPerSec  int64
	maxConcurrentWrites int
}

func defaultOptions() options {
	return options{
		totalLength:      -1,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		compression:      CompressionNone,
	}
}

// Option configures New.
type Option func(*options)

// WithName sets the name of the store's directory below the backend root.
// Defaults to a random UUID.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithFiles lays the given files out over the store. Chunks are then
// persisted into the files and per-chunk cache artifacts become disposable.
func WithFiles(files ...LogicalFile) Option {
	return func(o *options) {
		o.files = append(o.files[:0:0], files...)
	}
}

// WithTotalLength bounds the store to length bytes. The last chunk is then
// length mod chunkLength bytes long (or a full chunk when that is zero).
//
// With files the total defaults to the sum of their lengths; an explicit
// value must match it.
func WithTotalLength(length int64) Option {
	return func(o *options) {
		o.totalLength = length
	}
}

// WithLogger configures a structured logger.
// Pass nil to disable logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &chunkstore.BasicMetricsCollector{}
//	s, _ := chunkstore.New(ctx, root, 1<<20, chunkstore.WithMetricsCollector(metrics))
//	// ... use s ...
//	stats := metrics.Stats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithCacheCompression stores cache artifacts compressed and checksummed.
// Compressed artifacts are always read whole.
func WithCacheCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMemoryCache keeps up to capacity bytes of recently used chunks in
// memory. limit, when positive, is a hard cap on the tier's memory that is
// enforced even if capacity is larger.
func WithMemoryCache(capacity, limit int64) Option {
	return func(o *options) {
		o.memoryCacheBytes = capacity
		o.memoryLimitBytes = limit
	}
}

// WithIOLimit caps backend write throughput in bytes per second.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimitBytesPerSec = bytesPerSec
	}
}

// WithMaxConcurrentWrites bounds the backend writes a single Put issues at
// once. Zero means unbounded.
func WithMaxConcurrentWrites(n int) Option {
	return func(o *options) {
		o.maxConcurrentWrites = n
	}
}
