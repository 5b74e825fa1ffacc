package gpg

import (
	"errors"
	"strings"
	"testing"
)

const listing = `sec:u:255:22:AAAABBBBCCCCDDDD:1700000000:::u:::scESC:::+:::ed25519:::0:
fpr:::::::::0123456789ABCDEF0123456789ABCDEFAAAABBBB:
grp:::::::::1111:
uid:u::::1700000000::HASH::Alice Example <alice@example.com>::::::::::0:
ssb:u:255:18:EEEEFFFF00001111:1700000000::::::e:::+:::cv25519::
fpr:::::::::FFFFFFFFFFFFFFFFFFFFFFFFEEEEFFFF00001111:
sec:u:4096:1:1234567812345678:1600000000:::u:::scESC:::+:::::0:
fpr:::::::::99999999999999999999999999991234567812345678:
uid:u::::1600000000::HASH::Bob \x3a Colon <bob@example.com>::::::::::0:
uid:u::::1600000000::HASH::Bob Second <bob2@example.com>::::::::::0:
`

func TestParseColons(t *testing.T) {
	keys, err := ParseColons(strings.NewReader(listing))
	if err != nil {
		t.Fatalf("ParseColons failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2: %+v", len(keys), keys)
	}

	if keys[0].Fingerprint != "0123456789ABCDEF0123456789ABCDEFAAAABBBB" {
		t.Errorf("subkey fingerprint leaked into primary: %s", keys[0].Fingerprint)
	}
	if keys[0].Label != "Alice Example <alice@example.com>" {
		t.Errorf("label = %q", keys[0].Label)
	}
	if keys[1].Label != "Bob : Colon <bob@example.com>" {
		t.Errorf("first uid should be used and unescaped, got %q", keys[1].Label)
	}
}

func TestParseColonsEmpty(t *testing.T) {
	keys, err := ParseColons(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParseColons failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys, got %+v", keys)
	}
}

func TestEncryptRequiresRecipient(t *testing.T) {
	c := NewCLI("")
	if _, err := c.Encrypt([]byte("x"), ""); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("expected ErrNoRecipient, got %v", err)
	}
}

func TestMissingBinary(t *testing.T) {
	c := NewCLI("/nonexistent/gpg-binary")
	if _, err := c.Decrypt([]byte("x")); !errors.Is(err, ErrGPG) {
		t.Errorf("expected ErrGPG, got %v", err)
	}
}
