package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/illarion/envvault/internal/cipher"
	"github.com/illarion/envvault/internal/env"
	"github.com/illarion/envvault/internal/security"
	"github.com/illarion/envvault/internal/storage"
	"go.uber.org/zap"
)

const (
	FileSuffix = ".env.json"
	IndexFile  = "index.db"

	// UnknownRecords marks index entries rebuilt without decrypting.
	UnknownRecords = -1

	// MaxNameLen leaves room for FileSuffix within the file name limit.
	MaxNameLen = security.MaxNameLen - len(FileSuffix)
)

// ValidateName checks that name can be used as a profile name, including
// the length of its container file name.
func ValidateName(name string) error {
	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: longer than %d bytes", security.ErrInvalidName, MaxNameLen)
	}
	return security.ValidateName(name)
}

// Store manages the profiles kept in one directory, plus the index that
// summarizes them.
type Store struct {
	dir  *security.ProfileDir
	opts options
	log  *zap.Logger
}

// NewStore opens (and creates if needed) a profiles directory.
func NewStore(dir string, opts ...Option) (*Store, error) {
	d, err := security.OpenProfileDir(dir)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &Store{dir: d, opts: o, log: o.log.With(zap.String("dir", d.Path()))}, nil
}

// Close releases the directory handle.
func (s *Store) Close() error {
	return s.dir.Close()
}

// Dir returns the absolute profiles directory.
func (s *Store) Dir() string {
	return s.dir.Path()
}

// Path returns the container path for name.
func (s *Store) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return s.dir.Resolve(name + FileSuffix)
}

// Exists reports whether a profile called name is on disk.
func (s *Store) Exists(name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	return s.dir.Exists(name + FileSuffix)
}

// Create writes a new profile. It fails with ErrAlreadyExists if the name
// is taken. The store owns c from here on, even on error.
func (s *Store) Create(name string, description *string, envs *env.Map, c cipher.Cipher) (*Profile, error) {
	if c == nil {
		return nil, cipher.ErrKeyRequired
	}
	path, err := s.Path(name)
	if err != nil {
		c.Destroy()
		return nil, err
	}
	exists, err := s.dir.Exists(name + FileSuffix)
	if err != nil {
		c.Destroy()
		return nil, fmt.Errorf("failed to check profile: %w", err)
	}
	if exists {
		c.Destroy()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}

	now := s.opts.clock()
	meta := Metadata{
		Name:        name,
		Version:     SoftwareVersion,
		Description: description,
		FilePath:    path,
		CipherKind:  c.Kind(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p := newProfile(meta, envs, c, s.opts)
	p.onSave = s.indexProfile

	if err := p.save(now); err != nil {
		p.Close()
		return nil, err
	}
	s.log.Info("created profile", zap.String("profile", name), zap.Stringer("cipher", c.Kind()))
	return p, nil
}

// Get loads the profile called name.
func (s *Store) Get(name string, keys KeySupplier) (*Profile, error) {
	exists, err := s.Exists(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	data, err := s.dir.ReadFile(name + FileSuffix)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	path, _ := s.Path(name)

	p, err := decodeContainer(path, data, keys, s.opts)
	if err != nil {
		return nil, err
	}
	p.onSave = s.indexProfile
	return p, nil
}

// Load loads a profile by path. Profiles outside the store directory are
// not indexed.
func (s *Store) Load(path string, keys KeySupplier) (*Profile, error) {
	p, err := Load(path, keys, s.loadOptions()...)
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(path); err == nil && filepath.Dir(abs) == s.Dir() {
		p.onSave = s.indexProfile
	}
	return p, nil
}

func (s *Store) loadOptions() []Option {
	return []Option{
		WithLogger(s.opts.log),
		WithCipherOptions(s.opts.cipherOpts...),
		WithClock(s.opts.clock),
	}
}

// Delete removes the profile file and its index entry.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := s.dir.Remove(name + FileSuffix); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	s.updateIndex(func(x *storage.Index) error { return x.Delete(name) })
	s.log.Info("deleted profile", zap.String("profile", name))
	return nil
}

// List returns the index entries, rebuilding the index first if it is
// missing.
func (s *Store) List() ([]storage.Entry, error) {
	x, err := s.openIndex()
	if err != nil {
		return nil, err
	}
	initialized, err := x.IsInitialized()
	if err == nil && initialized {
		entries, err := x.List()
		x.Close()
		if err == nil {
			return entries, nil
		}
		s.log.Warn("index unreadable, rebuilding", zap.Error(err))
	} else {
		x.Close()
	}
	return s.Reindex()
}

// Reindex scans the directory and rebuilds the index from the clear-text
// metadata of each container. Nothing is decrypted.
func (s *Store) Reindex() ([]storage.Entry, error) {
	files, err := s.dir.Glob(FileSuffix)
	if err != nil {
		return nil, err
	}

	x, err := s.openIndex()
	if err != nil {
		return nil, err
	}
	defer x.Close()
	if err := x.Initialize(); err != nil {
		return nil, err
	}

	entries := make([]storage.Entry, 0, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(file, FileSuffix)
		if ValidateName(name) != nil {
			continue
		}
		data, err := s.dir.ReadFile(file)
		if err != nil {
			s.log.Warn("skipping unreadable profile", zap.String("file", file), zap.Error(err))
			continue
		}
		meta, err := PeekMetadata(data)
		if err != nil {
			s.log.Warn("skipping invalid profile", zap.String("file", file), zap.Error(err))
			continue
		}
		meta.FilePath, _ = s.dir.Resolve(file)
		meta.Name = name

		entry := entryFor(meta, UnknownRecords)
		if old, err := x.Get(name); err == nil && old != nil && old.UpdatedAt.Equal(meta.UpdatedAt) {
			entry.Records = old.Records
		}
		entries = append(entries, entry)
	}

	if err := x.Reset(entries); err != nil {
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}
	s.log.Debug("rebuilt index", zap.Int("profiles", len(entries)))
	return entries, nil
}

// Compact compacts the index database.
func (s *Store) Compact() error {
	x, err := s.openIndex()
	if err != nil {
		return err
	}
	defer x.Close()
	return x.Compact()
}

// PeekMetadata decodes only the clear-text metadata of a container.
func PeekMetadata(data []byte) (Metadata, error) {
	var head struct {
		Metadata *Metadata `json:"metadata"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Metadata{}, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	if head.Metadata == nil {
		return Metadata{}, fmt.Errorf("%w: missing metadata", ErrSerialization)
	}
	return *head.Metadata, nil
}

func entryFor(meta Metadata, records int) storage.Entry {
	e := storage.Entry{
		Name:       meta.Name,
		Path:       meta.FilePath,
		CipherKind: meta.CipherKind.String(),
		Records:    records,
		CreatedAt:  meta.CreatedAt,
		UpdatedAt:  meta.UpdatedAt,
	}
	if meta.Description != nil {
		e.Description = *meta.Description
	}
	return e
}

func (s *Store) openIndex() (*storage.Index, error) {
	path, err := s.dir.Resolve(IndexFile)
	if err != nil {
		return nil, err
	}
	return storage.Open(path)
}

// updateIndex applies fn to the index. The index is a cache, so failures
// are logged rather than returned.
func (s *Store) updateIndex(fn func(*storage.Index) error) {
	x, err := s.openIndex()
	if err == nil {
		defer x.Close()
		if err = x.Initialize(); err == nil {
			err = fn(x)
		}
	}
	if err != nil {
		s.log.Warn("failed to update index", zap.Error(err))
	}
}

func (s *Store) indexProfile(p *Profile) {
	entry := entryFor(p.Metadata, p.Envs.Len())
	s.updateIndex(func(x *storage.Index) error { return x.Put(entry) })
}
