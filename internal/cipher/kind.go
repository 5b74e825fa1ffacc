package cipher

import (
	"fmt"
	"strings"
)

// Kind selects the cipher protecting a profile.
type Kind int

const (
	KindNone Kind = iota
	KindPassphrase
	KindGPG
	KindAge
)

var kindNames = [...]string{
	KindNone:       "none",
	KindPassphrase: "passphrase",
	KindGPG:        "gpg",
	KindAge:        "age",
}

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{KindNone, KindPassphrase, KindGPG, KindAge}
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// RequiresSecret reports whether the kind needs a passphrase to decrypt.
func (k Kind) RequiresSecret() bool {
	return k == KindPassphrase || k == KindAge
}

// ParseKind parses a kind name, ignoring case and surrounding space.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
