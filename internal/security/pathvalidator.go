package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes = errors.New("name escapes profiles directory")
	ErrInvalidName = errors.New("invalid profile name")
	ErrEmptyName   = errors.New("empty profile name")
)

// MaxNameLen is the longest file name accepted, in bytes.
const MaxNameLen = 128

// ValidateName checks that name can be used as a profile file name.
// It rejects:
// - Empty names
// - Names with path separators or that are not local (filepath.IsLocal)
// - Names starting with a dot, which would be hidden files
// - Control characters
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, MaxNameLen)
	}
	if strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %s", ErrInvalidName, name)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: control character in %q", ErrInvalidName, name)
		}
	}
	return nil
}

// ProfileDir confines file operations on profiles to one directory
// using Go 1.24's os.Root API.
type ProfileDir struct {
	root *os.Root
	path string
}

// OpenProfileDir creates dir with owner-only permissions if needed and
// opens it as a root.
func OpenProfileDir(dir string) (*ProfileDir, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0700); err != nil {
		return nil, fmt.Errorf("failed to create profiles directory: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open profiles directory: %w", err)
	}

	return &ProfileDir{root: root, path: absPath}, nil
}

// Close releases the root handle.
func (d *ProfileDir) Close() error {
	if d.root != nil {
		return d.root.Close()
	}
	return nil
}

// Path returns the absolute directory path.
func (d *ProfileDir) Path() string {
	return d.path
}

// Resolve validates file as a single element and returns its absolute path
// inside the directory.
func (d *ProfileDir) Resolve(file string) (string, error) {
	if err := ValidateName(file); err != nil {
		return "", err
	}
	return filepath.Join(d.path, file), nil
}

// Exists reports whether file is present in the directory.
func (d *ProfileDir) Exists(file string) (bool, error) {
	if err := ValidateName(file); err != nil {
		return false, err
	}
	_, err := d.root.Stat(file)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ReadFile reads file through the root.
func (d *ProfileDir) ReadFile(file string) ([]byte, error) {
	if err := ValidateName(file); err != nil {
		return nil, err
	}
	return fs.ReadFile(d.root.FS(), file)
}

// Remove deletes file from the directory.
func (d *ProfileDir) Remove(file string) error {
	if err := ValidateName(file); err != nil {
		return err
	}
	return d.root.Remove(file)
}

// Glob lists file names in the directory ending with suffix, sorted.
func (d *ProfileDir) Glob(suffix string) ([]string, error) {
	entries, err := fs.ReadDir(d.root.FS(), ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), suffix) && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
