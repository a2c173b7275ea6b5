package cache

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const renderCategory = "html"

// RenderStore memoizes markdown renders across builds. Records live in a BoltDB
// file; large outputs are compressed into the content-addressed Store.
type RenderStore struct {
	db     *bolt.DB
	store  *Store
	hits   atomic.Int64
	misses atomic.Int64
}

// OpenRenderStore opens or creates the store below dir.
func OpenRenderStore(dir string) (*RenderStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	opts := &bolt.Options{
		Timeout:      2 * time.Second,
		FreelistType: bolt.FreelistArrayType,
		NoGrowSync:   true,
	}
	db, err := bolt.Open(filepath.Join(dir, "renders.db"), 0644, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	store, err := NewStore(filepath.Join(dir, "store"))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	s := &RenderStore{db: db, store: store}
	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *RenderStore) initSchema() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets() {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		meta := tx.Bucket([]byte(BucketMeta))
		v := meta.Get([]byte(KeySchemaVersion))
		if v != nil && binary.BigEndian.Uint32(v) == SchemaVersion {
			return nil
		}
		// Unknown or missing schema: start over.
		if err := tx.DeleteBucket([]byte(BucketRenders)); err != nil {
			return err
		}
		if _, err := tx.CreateBucket([]byte(BucketRenders)); err != nil {
			return err
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, SchemaVersion)
		return meta.Put([]byte(KeySchemaVersion), buf)
	})
}

func (s *RenderStore) Close() error {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the memoized render for key.
func (s *RenderStore) Get(key string) (string, bool) {
	var rec *RenderRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(BucketRenders)).Get([]byte(key))
		if data == nil {
			return nil
		}
		var r RenderRecord
		if err := Decode(data, &r); err != nil {
			return err
		}
		rec = &r
		return nil
	})
	if err != nil || rec == nil {
		s.misses.Add(1)
		return "", false
	}

	if rec.Hash == "" {
		s.hits.Add(1)
		return string(rec.Inline), true
	}
	data, err := s.store.Get(renderCategory, rec.Hash, rec.Compression)
	if err != nil {
		// unreadable blob: drop it so the next Put rewrites it
		s.store.Delete(renderCategory, rec.Hash)
		s.misses.Add(1)
		return "", false
	}
	s.hits.Add(1)
	return string(data), true
}

// Put memoizes html under key.
func (s *RenderStore) Put(key, html string) error {
	rec := RenderRecord{
		Key:       key,
		Size:      len(html),
		CreatedAt: time.Now().Unix(),
	}
	if len(html) < InlineHTMLThreshold {
		rec.Inline = []byte(html)
	} else {
		hash, ct, err := s.store.Put(renderCategory, []byte(html))
		if err != nil {
			return err
		}
		rec.Hash = hash
		rec.Compression = ct
	}

	data, err := Encode(&rec)
	if err != nil {
		return fmt.Errorf("failed to encode render record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketRenders)).Put([]byte(key), data)
	})
}

// Len returns the number of memoized renders.
func (s *RenderStore) Len() int {
	n := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(BucketRenders)).Stats().KeyN
		return nil
	})
	return n
}

// Stats returns hit and miss counts since the store was opened.
func (s *RenderStore) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}
