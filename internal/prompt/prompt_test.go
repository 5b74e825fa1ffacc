package prompt

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func scripted(answers ...string) func(string) ([]byte, error) {
	return func(string) ([]byte, error) {
		if len(answers) == 0 {
			return nil, io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
}

func TestConfirm(t *testing.T) {
	got, err := confirm(scripted("s3cret", "s3cret"))
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if string(got) != "s3cret" {
		t.Errorf("got %q", got)
	}

	if _, err := confirm(scripted("one", "two")); !errors.Is(err, ErrMismatch) {
		t.Errorf("expected ErrMismatch, got %v", err)
	}
	if _, err := confirm(scripted("only")); !errors.Is(err, io.EOF) {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	if FromEnv() != nil {
		t.Error("empty variable should yield nil")
	}
	t.Setenv(EnvPassphrase, "from-env")
	if string(FromEnv()) != "from-env" {
		t.Error("variable not read")
	}
}

func TestReadLine(t *testing.T) {
	r := strings.NewReader("first value\r\nsecond\nlast")
	for _, want := range []string{"first value", "second", "last"} {
		got, err := ReadLine(r)
		if err != nil {
			t.Fatalf("ReadLine failed: %v", err)
		}
		if got != want {
			t.Errorf("ReadLine = %q, want %q", got, want)
		}
	}
	if _, err := ReadLine(r); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}
