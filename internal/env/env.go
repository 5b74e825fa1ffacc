package env

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"
	"unicode/utf8"
)

var (
	ErrNotFound    = errors.New("env not found")
	ErrInvalidDate = errors.New("invalid date")
	ErrEmptyName   = errors.New("env name is empty")

	// ErrInvalidUTF8 is returned for text that JSON cannot carry unchanged.
	ErrInvalidUTF8 = errors.New("env is not valid UTF-8")
)

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// DateOf returns the date t falls on, in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Env is a single environment variable. Name uniqueness is enforced by Map.
type Env struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Comment        *string `json:"comment"`
	ExpirationDate *Date   `json:"expiration_date"`
}

// New returns an Env with no comment and no expiration date.
func New(name, value string) Env {
	return Env{Name: name, Value: value}
}

// WithComment returns a copy of e carrying comment.
func (e Env) WithComment(comment string) Env {
	e.Comment = &comment
	return e
}

// WithExpiration returns a copy of e expiring on d.
func (e Env) WithExpiration(d Date) Env {
	e.ExpirationDate = &d
	return e
}

// Expired reports whether the expiration date lies before today.
func (e Env) Expired(today Date) bool {
	return e.ExpirationDate != nil && e.ExpirationDate.Before(today)
}

// Validate checks that e has a name and that every text field is valid
// UTF-8, so the record survives serialization byte for byte.
func (e Env) Validate() error {
	if e.Name == "" {
		return ErrEmptyName
	}
	if !utf8.ValidString(e.Name) || !utf8.ValidString(e.Value) {
		return fmt.Errorf("%w: %q", ErrInvalidUTF8, e.Name)
	}
	if e.Comment != nil && !utf8.ValidString(*e.Comment) {
		return fmt.Errorf("%w: comment of %q", ErrInvalidUTF8, e.Name)
	}
	return nil
}

// Equal compares every field, including absent comment and expiration.
func (e Env) Equal(o Env) bool {
	if e.Name != o.Name || e.Value != o.Value {
		return false
	}
	if (e.Comment == nil) != (o.Comment == nil) {
		return false
	}
	if e.Comment != nil && *e.Comment != *o.Comment {
		return false
	}
	if (e.ExpirationDate == nil) != (o.ExpirationDate == nil) {
		return false
	}
	return e.ExpirationDate == nil || *e.ExpirationDate == *o.ExpirationDate
}

// clone deep-copies optional fields so maps never share pointers.
func (e Env) clone() Env {
	if e.Comment != nil {
		c := *e.Comment
		e.Comment = &c
	}
	if e.ExpirationDate != nil {
		d := *e.ExpirationDate
		e.ExpirationDate = &d
	}
	return e
}

// Map is an insertion-ordered set of Env keyed by name.
// The zero value is ready to use.
type Map struct {
	envs  []Env
	index map[string]int
}

// NewMap builds a map from envs. Later duplicates replace earlier ones.
func NewMap(envs ...Env) *Map {
	m := &Map{}
	for _, e := range envs {
		m.Insert(e)
	}
	return m
}

func (m *Map) reindex() {
	m.index = make(map[string]int, len(m.envs))
	for i, e := range m.envs {
		m.index[e.Name] = i
	}
}

func (m *Map) lookup(name string) (int, bool) {
	if m.index == nil {
		m.reindex()
	}
	i, ok := m.index[name]
	return i, ok
}

// Set inserts name=value, or replaces the value of an existing record,
// keeping its comment, expiration date and position.
func (m *Map) Set(name, value string) {
	if i, ok := m.lookup(name); ok {
		m.envs[i].Value = value
		return
	}
	m.Insert(New(name, value))
}

// Insert adds e, or overwrites the record with the same name in place.
func (m *Map) Insert(e Env) {
	e = e.clone()
	if i, ok := m.lookup(e.Name); ok {
		m.envs[i] = e
		return
	}
	m.envs = append(m.envs, e)
	m.index[e.Name] = len(m.envs) - 1
}

// Remove deletes name. It returns ErrNotFound if name is absent.
func (m *Map) Remove(name string) error {
	i, ok := m.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	m.envs = append(m.envs[:i], m.envs[i+1:]...)
	m.reindex()
	return nil
}

// Get returns a copy of the record for name.
func (m *Map) Get(name string) (Env, bool) {
	i, ok := m.lookup(name)
	if !ok {
		return Env{}, false
	}
	return m.envs[i].clone(), true
}

// Has reports whether name is present.
func (m *Map) Has(name string) bool {
	_, ok := m.lookup(name)
	return ok
}

// Len returns the number of records.
func (m *Map) Len() int {
	return len(m.envs)
}

// Keys returns names in insertion order.
func (m *Map) Keys() []string {
	keys := make([]string, len(m.envs))
	for i, e := range m.envs {
		keys[i] = e.Name
	}
	return keys
}

// Envs returns copies of all records in insertion order.
func (m *Map) Envs() []Env {
	out := make([]Env, len(m.envs))
	for i, e := range m.envs {
		out[i] = e.clone()
	}
	return out
}

// All iterates over copies of the records in insertion order.
func (m *Map) All() iter.Seq[Env] {
	return func(yield func(Env) bool) {
		for _, e := range m.envs {
			if !yield(e.clone()) {
				return
			}
		}
	}
}

// Each calls fn for every record in insertion order.
func (m *Map) Each(fn func(e Env)) {
	for e := range m.All() {
		fn(e)
	}
}

// Update calls fn for every record in order, allowing in-place edits.
// Renaming inside fn is not allowed; the original name is restored.
func (m *Map) Update(fn func(e *Env)) {
	for i := range m.envs {
		name := m.envs[i].Name
		fn(&m.envs[i])
		m.envs[i].Name = name
	}
}

// Expired returns the records whose expiration date is before today.
func (m *Map) Expired(today Date) []Env {
	var out []Env
	for _, e := range m.envs {
		if e.Expired(today) {
			out = append(out, e.clone())
		}
	}
	return out
}

// Equal reports whether both maps hold equal records in the same order.
// A nil o is never equal.
func (m *Map) Equal(o *Map) bool {
	if o == nil || m.Len() != o.Len() {
		return false
	}
	for i := range m.envs {
		if !m.envs[i].Equal(o.envs[i]) {
			return false
		}
	}
	return true
}

// Validate checks every record with Env.Validate.
func (m *Map) Validate() error {
	for _, e := range m.envs {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON encodes the map as an ordered array of records. Records that
// would not round-trip exactly are rejected.
func (m *Map) MarshalJSON() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	envs := m.envs
	if envs == nil {
		envs = []Env{}
	}
	return json.Marshal(envs)
}

// UnmarshalJSON decodes an array of records, rejecting unnamed ones.
func (m *Map) UnmarshalJSON(b []byte) error {
	var envs []Env
	if err := json.Unmarshal(b, &envs); err != nil {
		return err
	}
	fresh := Map{}
	for _, e := range envs {
		if e.Name == "" {
			return ErrEmptyName
		}
		fresh.Insert(e)
	}
	*m = fresh
	return nil
}

// MarshalBinary returns the canonical plaintext form fed to ciphers.
func (m *Map) MarshalBinary() ([]byte, error) {
	return m.MarshalJSON()
}

// UnmarshalBinary parses the canonical plaintext form.
func (m *Map) UnmarshalBinary(b []byte) error {
	return m.UnmarshalJSON(b)
}
