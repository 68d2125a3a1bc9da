package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"monitor/internal/types"
)

var (
	bucketBaselines    = []byte("activity_baselines")
	bucketLastActivity = []byte("last_activity")
)

// baselineSchemaVersion prefixes every baseline key. Bumping it makes old
// entries unreachable, so a format change reads as "absent" rather than an
// error.
const baselineSchemaVersion = "v2"

// Store is the persisted key/value resource behind activity baselines and
// last-user-activity timestamps. Reads degrade to absent on any decode
// failure.
type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketBaselines); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketLastActivity); err != nil {
			return err
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BaselineKey identifies one persisted baseline.
type BaselineKey struct {
	Kind        string
	WorkspaceID string
	SessionID   string
}

func (k BaselineKey) encode() []byte {
	return []byte(baselineSchemaVersion + "|" + k.Kind + "|" + k.WorkspaceID + "|" + k.SessionID)
}

// Baseline reads a persisted baseline. Missing or malformed entries report
// absent, never an error.
func (s *Store) Baseline(key BaselineKey) (types.ActivityBaseline, bool) {
	if s == nil || s.db == nil {
		return types.ActivityBaseline{}, false
	}
	var baseline types.ActivityBaseline
	found := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBaselines)
		if b == nil {
			return nil
		}
		raw := b.Get(key.encode())
		if len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, &baseline); err != nil {
			return nil
		}
		if baseline.OpenedAt <= 0 {
			return nil
		}
		found = true
		return nil
	})
	if !found {
		return types.ActivityBaseline{}, false
	}
	return baseline, true
}

func (s *Store) PutBaseline(key BaselineKey, baseline types.ActivityBaseline) error {
	if s == nil || s.db == nil {
		return errors.New("store is closed")
	}
	raw, err := json.Marshal(baseline)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBaselines)
		if b == nil {
			return errors.New("baseline bucket missing")
		}
		return b.Put(key.encode(), raw)
	})
}

func (s *Store) DeleteBaseline(key BaselineKey) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBaselines)
		if b == nil {
			return nil
		}
		return b.Delete(key.encode())
	})
}

// LastActivity returns the per-session last-user-activity timestamps (unix
// milliseconds) recorded for a workspace. Malformed entries read as empty.
func (s *Store) LastActivity(workspaceID string) map[string]int64 {
	out := map[string]int64{}
	if s == nil || s.db == nil {
		return out
	}
	_ = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLastActivity)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(workspaceID))
		if len(raw) == 0 {
			return nil
		}
		var decoded map[string]int64
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil
		}
		out = decoded
		return nil
	})
	return out
}

func (s *Store) PutLastActivity(workspaceID string, activity map[string]int64) error {
	if s == nil || s.db == nil {
		return errors.New("store is closed")
	}
	raw, err := json.Marshal(activity)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLastActivity)
		if b == nil {
			return errors.New("last activity bucket missing")
		}
		return b.Put([]byte(workspaceID), raw)
	})
}
