package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket  = []byte("config")   // index schema version, timestamps
	ProfileBucket = []byte("profiles") // name -> Entry (JSON)
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
)

const schemaVersion = "1"

var ErrNotInitialized = errors.New("index not initialized")

// Entry is the unencrypted summary of one profile
type Entry struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	CipherKind  string    `json:"cipher_kind"`
	Description string    `json:"description,omitempty"`
	Records     int       `json:"records"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Index is a BBolt database of profile summaries
type Index struct {
	db *bolt.DB
}

// Open opens or creates an index database
func Open(path string) (*Index, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	return &Index{db: db}, nil
}

// Close closes the database
func (x *Index) Close() error {
	return x.db.Close()
}

// Path returns the database file path
func (x *Index) Path() string {
	return x.db.Path()
}

// Initialize creates the bucket structure if missing
func (x *Index) Initialize() error {
	return x.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, ProfileBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte(schemaVersion)); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// IsInitialized checks if the database has been initialized
func (x *Index) IsInitialized() (bool, error) {
	var initialized bool
	err := x.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil && tx.Bucket(ProfileBucket) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

func touch(tx *bolt.Tx) error {
	modified, _ := time.Now().MarshalBinary()
	return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
}

// GetModified retrieves the last modified timestamp
func (x *Index) GetModified() (time.Time, error) {
	var modified time.Time
	err := x.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// Put adds or replaces a profile entry
func (x *Index) Put(e Entry) error {
	if e.Name == "" {
		return fmt.Errorf("entry name is empty")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return x.db.Update(func(tx *bolt.Tx) error {
		profiles := tx.Bucket(ProfileBucket)
		if profiles == nil {
			return ErrNotInitialized
		}
		if err := profiles.Put([]byte(e.Name), data); err != nil {
			return err
		}
		return touch(tx)
	})
}

// Delete removes a profile entry. Deleting a missing entry is not an error.
func (x *Index) Delete(name string) error {
	return x.db.Update(func(tx *bolt.Tx) error {
		profiles := tx.Bucket(ProfileBucket)
		if profiles == nil {
			return ErrNotInitialized
		}
		if err := profiles.Delete([]byte(name)); err != nil {
			return err
		}
		return touch(tx)
	})
}

// Get returns a single entry, or nil if the profile is not indexed
func (x *Index) Get(name string) (*Entry, error) {
	var entry *Entry
	err := x.db.View(func(tx *bolt.Tx) error {
		profiles := tx.Bucket(ProfileBucket)
		if profiles == nil {
			return ErrNotInitialized
		}
		data := profiles.Get([]byte(name))
		if data == nil {
			return nil
		}
		entry = &Entry{}
		return json.Unmarshal(data, entry)
	})
	return entry, err
}

// List returns all entries ordered by name
func (x *Index) List() ([]Entry, error) {
	var entries []Entry
	err := x.db.View(func(tx *bolt.Tx) error {
		profiles := tx.Bucket(ProfileBucket)
		if profiles == nil {
			return ErrNotInitialized
		}
		return profiles.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("corrupt entry %s: %w", k, err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

// Reset replaces every entry with entries in one transaction
func (x *Index) Reset(entries []Entry) error {
	return x.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(ProfileBucket) != nil {
			if err := tx.DeleteBucket(ProfileBucket); err != nil {
				return err
			}
		}
		profiles, err := tx.CreateBucket(ProfileBucket)
		if err != nil {
			return err
		}
		for _, e := range entries {
			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := profiles.Put([]byte(e.Name), data); err != nil {
				return err
			}
		}
		return touch(tx)
	})
}

// Compact creates a compacted copy of the database, removing unused space.
// Useful after many profiles have been deleted.
func (x *Index) Compact() error {
	srcPath := x.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	err = x.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := x.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	x.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
