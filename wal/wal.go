// Package wal implements the append-only, batch-framed, CRC-protected write
// ahead log described in spec.md §4.3: every mutation is durably recorded
// before the engine applies it to the MemTable.
//
// The write path (append/flush/async and sync durability modes) is ported
// from hupe1980-vecgo/wal/wal.go, but the on-disk frame shape is rewritten
// to spec.md's exact RECORD_BEGIN/RECORD_PUT*/RECORD_COMMIT layout instead
// of the teacher's own prepare/commit vector-entry format.
package wal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/raipankaj/KoreDB/model"
)

// Sentinel errors surfaced to callers per spec.md §7's error taxonomy.
var (
	// ErrCorruptWAL is not returned by Replay: Decode stops quietly at the
	// first damaged or truncated record.
	ErrCorruptWAL   = errors.New("wal: corrupt or truncated record")
	ErrEmptyBatch   = errors.New("wal: batch must not be empty")
	ErrClosed       = errors.New("wal: log is closed")
	ErrFieldTooLong = errors.New("wal: field exceeds safety limit")
)

// MaxFieldSize is the safety limit on a single key/value field size
// (spec.md §4.3: "a size exceeding the safety limit, >= 50MB per field").
const MaxFieldSize = 50 * 1024 * 1024

const fileName = "kore.wal"
const backupSuffix = ".old"

// WAL is the single active write-ahead log for one engine instance.
type WAL struct {
	mu         sync.Mutex
	dir        string
	file       *os.File
	bufw       *bufio.Writer
	compressed bool
	compressor *zstd.Encoder
	dataOffset int64

	durability DurabilityMode
}

// DurabilityMode controls when AppendBatch forces data to the device absent
// an explicit per-call urgent=true override.
type DurabilityMode int

const (
	// DurabilityAsync never forces a sync on its own.
	DurabilityAsync DurabilityMode = iota
	// DurabilitySync forces a sync after every batch.
	DurabilitySync
)

// Options configures a new WAL. Mirrors the functional-options shape used
// throughout this codebase (engine.Option, kore.Option, ...).
type Options struct {
	// Compress wraps the entry stream in a zstd stream when true. Disabled
	// by default so the on-disk bytes are exactly the frame layout spec.md
	// §4.3 specifies, byte for byte, starting at offset 0.
	Compress bool

	// Durability is the ambient sync policy; an explicit urgent=true on
	// AppendBatch always forces a sync regardless of this setting.
	Durability DurabilityMode
}

// DefaultOptions matches spec.md's implied defaults: uncompressed, async
// (the Coordinator decides urgency per batch).
var DefaultOptions = Options{
	Compress:   false,
	Durability: DurabilityAsync,
}

// Option mutates Options.
type Option func(*Options)

// WithCompression enables zstd stream compression of the WAL file.
func WithCompression(enabled bool) Option {
	return func(o *Options) { o.Compress = enabled }
}

// WithDurability sets the ambient sync policy.
func WithDurability(m DurabilityMode) Option {
	return func(o *Options) { o.Durability = m }
}

const (
	streamMagic      = 0x574B4C30 // "0LKW" little-endian tag for a compressed stream
	streamHeaderSize = 8
)

// Open opens (or creates) the active WAL file at dir/kore.wal.
func Open(dir string, optFns ...Option) (*WAL, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return openAt(filepathJoin(dir, fileName), opts, dir)
}

func openAt(path string, opts Options, dir string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	w := &WAL{dir: dir, file: f, durability: opts.Durability}

	if st.Size() == 0 {
		if err := w.writeHeader(opts.Compress); err != nil {
			_ = f.Close()
			return nil, err
		}
	} else {
		if err := w.readHeader(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := w.attachWriter(); err != nil {
		_ = f.Close()
		return nil, err
	}

	return w, nil
}

func (w *WAL) writeHeader(compress bool) error {
	if !compress {
		w.compressed = false
		w.dataOffset = 0
		return nil
	}
	var hdr [streamHeaderSize]byte
	putU32(hdr[0:4], streamMagic)
	if compress {
		hdr[4] = 1
	}
	if _, err := w.file.Write(hdr[:]); err != nil {
		return err
	}
	w.compressed = true
	w.dataOffset = streamHeaderSize
	return nil
}

func (w *WAL) readHeader() error {
	var hdr [streamHeaderSize]byte
	n, err := w.file.ReadAt(hdr[:], 0)
	if err != nil && err != io.EOF {
		return err
	}
	if n == streamHeaderSize && getU32(hdr[0:4]) == streamMagic {
		w.compressed = hdr[4] != 0
		w.dataOffset = streamHeaderSize
		return nil
	}
	w.compressed = false
	w.dataOffset = 0
	return nil
}

func (w *WAL) attachWriter() error {
	if w.compressed {
		enc, err := zstd.NewWriter(w.file)
		if err != nil {
			return err
		}
		w.compressor = enc
		w.bufw = bufio.NewWriter(enc)
		return nil
	}
	w.bufw = bufio.NewWriter(w.file)
	return nil
}

// AppendBatch serializes batch into a single contiguous frame and writes it
// once. If urgent, the write is forced to the device before returning.
func (w *WAL) AppendBatch(batch model.Batch, urgent bool) error {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}
	for _, r := range batch {
		if len(r.Key) > MaxFieldSize || len(r.Value) > MaxFieldSize {
			return ErrFieldTooLong
		}
	}

	frame := EncodeBatch(batch)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return ErrClosed
	}

	if _, err := w.bufw.Write(frame); err != nil {
		return fmt.Errorf("wal: write batch: %w", err)
	}

	if err := w.bufw.Flush(); err != nil {
		return fmt.Errorf("wal: flush buffer: %w", err)
	}
	if w.compressor != nil {
		// zstd.Encoder needs an explicit flush to make buffered frames
		// visible in the underlying file without closing the stream.
		if err := w.compressor.Flush(); err != nil {
			return fmt.Errorf("wal: flush compressor: %w", err)
		}
	}

	if urgent || w.durability == DurabilitySync {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("wal: sync: %w", err)
		}
	}

	return nil
}

// Flush forces any buffered writes to the device.
func (w *WAL) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return ErrClosed
	}
	if err := w.bufw.Flush(); err != nil {
		return err
	}
	if w.compressor != nil {
		if err := w.compressor.Flush(); err != nil {
			return err
		}
	}
	return w.file.Sync()
}

// Replay reads the WAL from the start of its entry stream, handing each
// fully-committed batch to sink in order. See Decode for the stop-on-error
// semantics required by spec.md §4.3.
func (w *WAL) Replay(sink func(model.Batch) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(w.dataOffset, io.SeekStart); err != nil {
		return err
	}

	var r io.Reader = w.file
	if w.compressed {
		dec, err := zstd.NewReader(w.file)
		if err != nil {
			return err
		}
		defer dec.Close()
		r = dec
	}

	return Decode(bufio.NewReader(r), sink)
}

// Close flushes and closes the WAL file. Idempotent.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	var errs []error
	if w.bufw != nil {
		errs = append(errs, w.bufw.Flush())
	}
	if w.compressor != nil {
		errs = append(errs, w.compressor.Close())
	}
	errs = append(errs, w.file.Close())
	w.file = nil
	return errors.Join(errs...)
}

// Rotate closes the current file, renames it to a backup path, and opens a
// fresh empty WAL at the canonical path — spec.md §4.8 step "Rotate WAL".
// The caller is responsible for deleting the backup once it is no longer
// needed for crash recovery of the just-completed flush.
func (w *WAL) Rotate(opts Options) (backupPath string, err error) {
	w.mu.Lock()
	path := filepathJoin(w.dir, fileName)
	backup := path + backupSuffix
	w.mu.Unlock()

	if err := w.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(path, backup); err != nil {
		return "", fmt.Errorf("wal: rotate rename: %w", err)
	}
	if err := syncDir(w.dir); err != nil {
		return "", err
	}

	fresh, err := openAt(path, opts, w.dir)
	if err != nil {
		return "", err
	}
	if err := syncDir(w.dir); err != nil {
		return "", err
	}

	*w = *fresh
	return backup, nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

func filepathJoin(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + string(os.PathSeparator) + name
}

func putU32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func getU32(src []byte) uint32 {
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
}
