package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"potencialize/internal/models"
)

// Pending is an event whose delivery to one sink failed.
type Pending struct {
	Sink     string       `json:"sink"`
	Event    models.Event `json:"event"`
	Attempts int          `json:"attempts"`
	LastErr  string       `json:"last_error"`
	QueuedAt time.Time    `json:"queued_at"`

	key []byte
}

// Outbox persists undelivered notifications in a BoltDB file so they survive
// restarts.
type Outbox struct {
	db     *bolt.DB
	bucket []byte
}

func OpenOutbox(path string) (*Outbox, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	bucket := []byte("outbox")
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &Outbox{db: db, bucket: bucket}, nil
}

func pendingKey(p Pending) []byte {
	return []byte(fmt.Sprintf("%020d_%s_%s", p.QueuedAt.UnixNano(), p.Sink, p.Event.ID))
}

func (o *Outbox) Enqueue(p Pending) error {
	if o == nil || o.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if p.QueuedAt.IsZero() {
		p.QueuedAt = time.Now()
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return o.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(o.bucket).Put(pendingKey(p), payload)
	})
}

// Batch returns up to limit entries, oldest first, without removing them.
func (o *Outbox) Batch(limit int) ([]Pending, error) {
	if o == nil || o.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}
	var out []Pending
	err := o.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(o.bucket).Cursor()
		for k, v := c.First(); k != nil && len(out) < limit; k, v = c.Next() {
			var p Pending
			if err := json.Unmarshal(v, &p); err != nil {
				continue
			}
			p.key = append([]byte(nil), k...)
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

func (o *Outbox) Remove(p Pending) error {
	if len(p.key) == 0 {
		p.key = pendingKey(p)
	}
	return o.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(o.bucket).Delete(p.key)
	})
}

func (o *Outbox) Size() (int, error) {
	if o == nil || o.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var n int
	err := o.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(o.bucket).Stats().KeyN
		return nil
	})
	return n, err
}

func (o *Outbox) Close() error {
	if o == nil || o.db == nil {
		return nil
	}
	return o.db.Close()
}
