// Package telemetry records operator-facing mining/retargeting events to a
// local goleveldb store. It is write-only from the engine's perspective and
// read-only from the CLI; it never feeds back into consensus decisions and
// holds no chain data.
package telemetry

import (
	"encoding/binary"
	"encoding/json"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"

	"powconsensus/logger"
)

// Kind discriminates the event a Sample records.
type Kind string

const (
	KindRetarget Kind = "retarget"
	KindFallback Kind = "fallback"
	KindHashrate Kind = "hashrate"
)

// Sample is one recorded telemetry event.
type Sample struct {
	Kind       Kind    `json:"kind"`
	BlockNum   uint64  `json:"block_num"`
	Difficulty uint32  `json:"difficulty,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	HashRate   float64 `json:"hash_rate,omitempty"`
	Timestamp  float64 `json:"timestamp"`
}

// Store is a small append-only log of Samples, ordered by insertion.
type Store struct {
	db  *leveldb.DB
	seq uint64
}

// Open opens (or creates) the telemetry store at path. Corruption is
// recovered the same way the teacher's chain database recovers: attempt a
// recovery pass before giving up.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		if errors.IsCorrupted(err) {
			db, err = leveldb.RecoverFile(path, nil)
		}
		if err != nil {
			return nil, err
		}
	}

	seq, err := lastSeq(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, seq: seq}, nil
}

// lastSeq returns the sequence number of the last recorded sample, so that
// numbering picks up where a previous run left off instead of resetting to 0
// and overwriting existing keys.
func lastSeq(db *leveldb.DB) (uint64, error) {
	it := db.NewIterator(nil, nil)
	defer it.Release()

	if !it.Last() {
		return 0, it.Error()
	}

	key := it.Key()
	if len(key) != 8 {
		return 0, it.Error()
	}
	return binary.BigEndian.Uint64(key), it.Error()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends a sample. Write failures are logged and otherwise
// swallowed: telemetry is best-effort and must never interrupt mining or
// publishing.
func (s *Store) Record(sample Sample) {
	s.seq++
	key := seqKey(s.seq)

	value, err := json.Marshal(sample)
	if err != nil {
		logger.WithField("error", err).Warning("telemetry: failed to encode sample")
		return
	}

	if err := s.db.Put(key, value, nil); err != nil {
		logger.WithField("error", err).Warning("telemetry: failed to record sample")
	}
}

// Recent returns up to n most recently recorded samples, newest first.
func (s *Store) Recent(n int) ([]Sample, error) {
	it := s.db.NewIterator(nil, nil)
	defer it.Release()

	var all []Sample
	for it.Next() {
		var sample Sample
		if err := json.Unmarshal(it.Value(), &sample); err != nil {
			continue
		}
		all = append(all, sample)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}

	if n > len(all) {
		n = len(all)
	}

	out := make([]Sample, n)
	for i := 0; i < n; i++ {
		out[i] = all[len(all)-1-i]
	}
	return out, nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
