package gpg

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

var (
	ErrNoRecipient = errors.New("gpg recipient fingerprint required")
	ErrGPG         = errors.New("gpg failed")
)

// Key is a secret key usable as a recipient
type Key struct {
	Label       string
	Fingerprint string
}

// Agent performs OpenPGP operations on behalf of the cipher
type Agent interface {
	Encrypt(plaintext []byte, fingerprint string) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
	Keys() ([]Key, error)
}

// CLI is an Agent backed by the gpg binary
type CLI struct {
	binary string
}

// NewCLI returns an agent running binary, or "gpg" from PATH when empty
func NewCLI(binary string) *CLI {
	if binary == "" {
		binary = "gpg"
	}
	return &CLI{binary: binary}
}

func (c *CLI) run(stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.Command(c.binary, append([]string{"--batch", "--yes", "--quiet"}, args...)...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%w: %v", ErrGPG, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrGPG, msg)
	}
	return out, nil
}

// Encrypt encrypts plaintext to the key with the given fingerprint
func (c *CLI) Encrypt(plaintext []byte, fingerprint string) ([]byte, error) {
	if fingerprint == "" {
		return nil, ErrNoRecipient
	}
	return c.run(plaintext, "--trust-model", "always", "--encrypt", "--recipient", fingerprint)
}

// Decrypt decrypts ciphertext with whatever secret key gpg-agent holds
func (c *CLI) Decrypt(ciphertext []byte) ([]byte, error) {
	return c.run(ciphertext, "--decrypt")
}

// Keys lists the secret keys in the default keyring
func (c *CLI) Keys() ([]Key, error) {
	out, err := c.run(nil, "--list-secret-keys", "--with-colons", "--fingerprint")
	if err != nil {
		return nil, err
	}
	return ParseColons(bytes.NewReader(out))
}

// ParseColons parses `--with-colons` key listings. Each sec record yields
// one key, labelled with its first uid.
func ParseColons(r io.Reader) ([]Key, error) {
	var (
		keys    []Key
		current *Key
		// fpr records follow both sec and ssb; only the primary one counts
		wantFpr bool
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ":")
		if len(fields) < 10 {
			continue
		}

		switch fields[0] {
		case "sec":
			keys = append(keys, Key{})
			current = &keys[len(keys)-1]
			wantFpr = true
		case "ssb":
			wantFpr = false
		case "fpr":
			if current != nil && wantFpr {
				current.Fingerprint = fields[9]
				wantFpr = false
			}
		case "uid":
			if current != nil && current.Label == "" {
				current.Label = unescapeColons(fields[9])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read key listing: %w", err)
	}

	result := keys[:0]
	for _, k := range keys {
		if k.Fingerprint == "" {
			continue
		}
		if k.Label == "" {
			k.Label = k.Fingerprint
		}
		result = append(result, k)
	}
	return result, nil
}

// unescapeColons decodes the \xNN escapes gpg uses in colon output
func unescapeColons(s string) string {
	if !strings.Contains(s, `\x`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && s[i+1] == 'x' {
			var v byte
			if _, err := fmt.Sscanf(s[i+2:i+4], "%02x", &v); err == nil {
				b.WriteByte(v)
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
