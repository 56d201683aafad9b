package mockhost

import (
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/prysmsh/tpsdk/pkg/protocol"
)

var settingsBucket = []byte("settings")

// Store keeps host-persisted settings per plugin across mock host runs,
// the way the real host remembers settingUpdate values between restarts.
type Store struct {
	db *bolt.DB
}

// OpenStore opens or creates the settings database at path.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(settingsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init settings store: %w", err)
	}
	return &Store{db: db}, nil
}

// Put records one setting value for pluginID.
func (s *Store) Put(pluginID, name, value string) error {
	if pluginID == "" {
		return fmt.Errorf("put setting %q: no plugin id", name)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(settingsBucket).CreateBucketIfNotExists([]byte(pluginID))
		if err != nil {
			return err
		}
		return b.Put([]byte(name), []byte(value))
	})
}

// Settings returns every stored value for pluginID.
func (s *Store) Settings(pluginID string) (protocol.SettingValues, error) {
	out := protocol.SettingValues{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(settingsBucket).Bucket([]byte(pluginID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			out[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read settings of %q: %w", pluginID, err)
	}
	return out, nil
}

// Reset forgets everything stored for pluginID.
func (s *Store) Reset(pluginID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket(settingsBucket).DeleteBucket([]byte(pluginID))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}
