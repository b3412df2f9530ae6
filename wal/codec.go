package wal

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/raipankaj/KoreDB/model"
)

// Frame tags, spec.md §4.3.
const (
	tagRecordBegin  uint32 = 1
	tagRecordPut    uint32 = 2
	tagRecordCommit uint32 = 3
)

// EncodeBatch serializes batch into a single contiguous frame:
//
//	RECORD_BEGIN
//	{ RECORD_PUT key_size value_size crc32 key value }*
//	RECORD_COMMIT
func EncodeBatch(batch model.Batch) []byte {
	size := 4 // RECORD_BEGIN
	for _, r := range batch {
		size += 4 + 4 + 4 + 8 + len(r.Key) + len(r.Value)
	}
	size += 4 // RECORD_COMMIT

	buf := make([]byte, 0, size)
	buf = appendU32(buf, tagRecordBegin)
	for _, r := range batch {
		buf = appendU32(buf, tagRecordPut)
		buf = appendU32(buf, uint32(len(r.Key)))
		buf = appendU32(buf, uint32(len(r.Value)))
		buf = appendU64(buf, uint64(recordCRC(r.Key, r.Value)))
		buf = append(buf, r.Key...)
		buf = append(buf, r.Value...)
	}
	buf = appendU32(buf, tagRecordCommit)
	return buf
}

// recordCRC computes the CRC32 of key‖value, as required by spec.md §4.3.
func recordCRC(key, value []byte) uint32 {
	h := crc32.NewIEEE()
	_, _ = h.Write(key)
	_, _ = h.Write(value)
	return h.Sum32()
}

// Decode reads consecutive batches from r, handing each fully-committed
// batch to sink in order. On any framing or CRC failure, a field exceeding
// MaxFieldSize, truncated data, or an unrecognized tag, decoding stops
// without invoking sink for the incomplete batch; batches already handed to
// sink remain valid (spec.md §4.3 guarantee (b)).
func Decode(r *bufio.Reader, sink func(model.Batch) error) error {
	var pending model.Batch

	for {
		tag, err := readU32(r)
		if err != nil {
			return nil // clean EOF or truncated tag: stop quietly
		}

		switch tag {
		case tagRecordBegin:
			pending = pending[:0]

		case tagRecordPut:
			rec, ok, err := readPut(r)
			if err != nil {
				return nil
			}
			if !ok {
				return nil
			}
			pending = append(pending, rec)

		case tagRecordCommit:
			batch := append(model.Batch(nil), pending...)
			pending = pending[:0]
			if len(batch) == 0 {
				continue
			}
			if err := sink(batch); err != nil {
				return err
			}

		default:
			return nil // unknown tag: stop
		}
	}
}

func readPut(r *bufio.Reader) (model.Record, bool, error) {
	keySize, err := readU32(r)
	if err != nil {
		return model.Record{}, false, err
	}
	valSize, err := readU32(r)
	if err != nil {
		return model.Record{}, false, err
	}
	if keySize > MaxFieldSize || valSize > MaxFieldSize {
		return model.Record{}, false, nil
	}

	crc, err := readU64(r)
	if err != nil {
		return model.Record{}, false, err
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return model.Record{}, false, err
	}
	val := make([]byte, valSize)
	if _, err := io.ReadFull(r, val); err != nil {
		return model.Record{}, false, err
	}

	if uint64(recordCRC(key, val)) != crc {
		return model.Record{}, false, nil
	}

	return model.Record{Key: key, Value: val}, true, nil
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func appendU32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendU64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}
