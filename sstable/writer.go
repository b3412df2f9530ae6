package sstable

import (
	"bufio"
	"fmt"
	"os"

	"github.com/raipankaj/KoreDB/bloom"
	"github.com/raipankaj/KoreDB/codec"
)

// Source is anything the writer can drain in ascending key order; satisfied
// by *memtable.MemTable's IterAll and by the compactor's merge iterator.
type Source interface {
	IterAll(fn func(key, value []byte) bool)
	Len() int
}

// Write serializes src to path as a new segment: the data section in
// ascending key order, a bloom filter built from every key, and the fixed
// footer (spec.md §4.5). The file is forced to the device and closed before
// returning.
func Write(src Source, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("sstable: create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	filter := bloom.New(max(src.Len(), 1), 0.01)

	var offset int64
	var iterErr error
	var hdr [8]byte

	src.IterAll(func(key, value []byte) bool {
		codec.PutUint32(hdr[0:4], uint32(len(key)))
		codec.PutUint32(hdr[4:8], uint32(len(value)))
		if _, err := w.Write(hdr[:]); err != nil {
			iterErr = err
			return false
		}
		if _, err := w.Write(key); err != nil {
			iterErr = err
			return false
		}
		if _, err := w.Write(value); err != nil {
			iterErr = err
			return false
		}
		filter.Add(key)
		offset += 8 + int64(len(key)) + int64(len(value))
		return true
	})
	if iterErr != nil {
		_ = f.Close()
		return fmt.Errorf("sstable: write data: %w", iterErr)
	}

	bloomOffset := uint64(offset)
	if _, err := w.Write(filter.Serialize()); err != nil {
		_ = f.Close()
		return fmt.Errorf("sstable: write filter: %w", err)
	}

	var footer [FooterSize]byte
	codec.PutUint64(footer[0:8], bloomOffset)
	codec.PutUint32(footer[8:12], Version)
	codec.PutUint32(footer[12:16], Magic)
	if _, err := w.Write(footer[:]); err != nil {
		_ = f.Close()
		return fmt.Errorf("sstable: write footer: %w", err)
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sstable: flush: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sstable: sync: %w", err)
	}
	return f.Close()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
