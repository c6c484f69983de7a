package statestore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pierrec/lz4"
)

const (
	checkpointPrefix = "ckpt/"
	latestKey        = "meta/latest"

	// Values below this size are stored raw; lz4 block overhead would
	// exceed the saving.
	minCompressSize = 128

	flagRaw  byte = 0
	flagLZ4  byte = 1
	cacheLen      = 64
)

// PebbleStore persists checkpoints in a pebble keyspace with lz4-compressed
// values and an LRU read cache keyed by height.
type PebbleStore struct {
	mu     sync.RWMutex
	db     *pebble.DB
	cache  *lru.Cache[uint64, *Checkpoint]
	closed bool
}

// OpenPebble opens (or creates) a checkpoint store at path.
func OpenPebble(path string) (*PebbleStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create statestore dir %s: %w", path, err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open statestore at %s: %w", path, err)
	}
	cache, err := lru.New[uint64, *Checkpoint](cacheLen)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &PebbleStore{db: db, cache: cache}, nil
}

func checkpointKey(height uint64) []byte {
	key := make([]byte, len(checkpointPrefix)+8)
	copy(key, checkpointPrefix)
	binary.BigEndian.PutUint64(key[len(checkpointPrefix):], height)
	return key
}

// encode serializes and conditionally compresses a checkpoint. The first
// byte of the stored value flags the compression scheme.
func encode(cp *Checkpoint) ([]byte, error) {
	raw, err := json.Marshal(cp)
	if err != nil {
		return nil, err
	}
	if len(raw) < minCompressSize {
		return append([]byte{flagRaw}, raw...), nil
	}
	compressed := make([]byte, lz4.CompressBlockBound(len(raw))+9)
	compressed[0] = flagLZ4
	binary.BigEndian.PutUint64(compressed[1:9], uint64(len(raw)))
	n, err := lz4.CompressBlock(raw, compressed[9:], nil)
	if err != nil {
		return nil, fmt.Errorf("compress checkpoint: %w", err)
	}
	if n == 0 || n >= len(raw) {
		// Incompressible, store raw.
		return append([]byte{flagRaw}, raw...), nil
	}
	return compressed[:9+n], nil
}

func decode(value []byte) (*Checkpoint, error) {
	if len(value) == 0 {
		return nil, fmt.Errorf("empty checkpoint value")
	}
	var raw []byte
	switch value[0] {
	case flagRaw:
		raw = value[1:]
	case flagLZ4:
		if len(value) < 9 {
			return nil, fmt.Errorf("truncated compressed checkpoint")
		}
		size := binary.BigEndian.Uint64(value[1:9])
		raw = make([]byte, size)
		n, err := lz4.UncompressBlock(value[9:], raw)
		if err != nil {
			return nil, fmt.Errorf("decompress checkpoint: %w", err)
		}
		raw = raw[:n]
	default:
		return nil, fmt.Errorf("unknown checkpoint encoding flag %d", value[0])
	}
	var cp Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *PebbleStore) Save(cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	value, err := encode(cp)
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(checkpointKey(cp.Height), value, nil); err != nil {
		return err
	}
	if cp.Height >= s.latestHeightLocked() {
		var h [8]byte
		binary.BigEndian.PutUint64(h[:], cp.Height)
		if err := batch.Set([]byte(latestKey), h[:], nil); err != nil {
			return err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit checkpoint %d: %w", cp.Height, err)
	}
	s.cache.Add(cp.Height, cp)
	return nil
}

func (s *PebbleStore) latestHeightLocked() uint64 {
	value, closer, err := s.db.Get([]byte(latestKey))
	if err != nil {
		return 0
	}
	defer closer.Close()
	if len(value) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(value)
}

func (s *PebbleStore) Load(height uint64) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if cp, ok := s.cache.Get(height); ok {
		return cp, nil
	}

	value, closer, err := s.db.Get(checkpointKey(height))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	cp, err := decode(value)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %d: %w", height, err)
	}
	s.cache.Add(height, cp)
	return cp, nil
}

func (s *PebbleStore) Latest() (*Checkpoint, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	value, closer, err := s.db.Get([]byte(latestKey))
	if err == pebble.ErrNotFound {
		s.mu.RUnlock()
		return nil, ErrNotFound
	}
	if err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	height := binary.BigEndian.Uint64(value)
	closer.Close()
	s.mu.RUnlock()

	return s.Load(height)
}

func (s *PebbleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
