package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/illarion/envvault/internal/crypto"
	"golang.org/x/term"
)

// EnvPassphrase names the variable read by FromEnv
const EnvPassphrase = "ENVVAULT_PASSPHRASE"

var (
	ErrMismatch    = errors.New("passphrases do not match")
	ErrNotTerminal = errors.New("stdin is not a terminal")
)

// ReadPassphrase reads a passphrase from the terminal without echoing
func ReadPassphrase(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}

	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}

	return passphrase, nil
}

// ReadPassphraseConfirm reads a passphrase twice and ensures they match
func ReadPassphraseConfirm() ([]byte, error) {
	return confirm(ReadPassphrase)
}

func confirm(read func(prompt string) ([]byte, error)) ([]byte, error) {
	first, err := read("Enter passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(first)

	second, err := read("Confirm passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(second)

	if !crypto.ConstantTimeCompare(first, second) {
		return nil, ErrMismatch
	}

	result := make([]byte, len(first))
	copy(result, first)
	return result, nil
}

// FromEnv reads the passphrase from ENVVAULT_PASSPHRASE, or nil if unset
func FromEnv() []byte {
	passphrase := os.Getenv(EnvPassphrase)
	if passphrase == "" {
		return nil
	}
	return []byte(passphrase)
}

// ReadLine reads one line of plain input, used for non-secret values
func ReadLine(r io.Reader) (string, error) {
	var (
		buf [1]byte
		out []byte
	)
	for {
		n, err := r.Read(buf[:])
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			out = append(out, buf[0])
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(out) > 0 {
				break
			}
			return "", err
		}
	}
	if l := len(out); l > 0 && out[l-1] == '\r' {
		out = out[:l-1]
	}
	return string(out), nil
}
