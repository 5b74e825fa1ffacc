package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/illarion/envvault/internal/cipher"
	"github.com/illarion/envvault/internal/crypto"
	"github.com/illarion/envvault/internal/gpg"
	"github.com/illarion/envvault/internal/keyring"
	"github.com/illarion/envvault/internal/profile"
	"github.com/illarion/envvault/internal/prompt"
	"github.com/illarion/envvault/internal/security"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var activeSpinner *spinner.Spinner

// HandleError prints err with a hint where one helps, then exits 1
func HandleError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	hint := func(msg string) {
		fmt.Fprintln(os.Stderr, color.CyanString("→")+" "+msg)
	}

	switch {
	case errors.Is(err, cipher.ErrKeyRequired):
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
		hint("Pass --gpg-key for gpg profiles, or set " + prompt.EnvPassphrase)
	case errors.Is(err, cipher.ErrUnknownVersion):
		fmt.Fprintf(os.Stderr, "%s profile was written by a newer envvault\n", red("Error:"))
	case errors.Is(err, cipher.ErrCipher):
		fmt.Fprintf(os.Stderr, "%s decryption failed (wrong passphrase or damaged profile)\n", red("Error:"))
	case errors.Is(err, prompt.ErrNotTerminal):
		fmt.Fprintf(os.Stderr, "%s passphrase required\n", red("Error:"))
		hint("Set " + prompt.EnvPassphrase + " when not running in a terminal")
	case errors.Is(err, prompt.ErrMismatch):
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
	case errors.Is(err, profile.ErrNotFound):
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
		hint("Use 'envvault ls' to see existing profiles")
	case errors.Is(err, profile.ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
		hint("Use 'envvault set' to change it, or 'envvault delete' first")
	case errors.Is(err, profile.ErrRecordNotFound):
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
		hint("Use 'envvault show' to list the records")
	case errors.Is(err, profile.ErrConflict):
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
		hint("Use --on-conflict replace, keep or ask")
	case errors.Is(err, profile.ErrEmptyProfile):
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
	case errors.Is(err, profile.ErrSerialization):
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
		hint("Run 'envvault reindex' to skip damaged files in listings")
	case errors.Is(err, security.ErrInvalidName), errors.Is(err, security.ErrEmptyName):
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
		hint("Profile names are plain file names without slashes or a leading dot")
	case errors.Is(err, gpg.ErrGPG):
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
		hint("Use 'envvault gpg-keys' to list usable keys")
	default:
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
	}
	os.Exit(1)
}

// supplyKey looks for a profile passphrase in the environment, then the
// keyring, then asks on the terminal.
func supplyKey(meta profile.Metadata) (string, error) {
	if p := prompt.FromEnv(); p != nil {
		defer crypto.ClearBytes(p)
		Logger.Debug("using passphrase from environment", zap.String("profile", meta.Name))
		return string(p), nil
	}

	if cfg.UseKeyring {
		key, err := keyring.GetPassphrase(meta.Name)
		if err == nil {
			Logger.Debug("using passphrase from keyring", zap.String("profile", meta.Name))
			return key, nil
		}
		if !errors.Is(err, keyring.ErrNotFound) {
			Logger.Warn("keyring unavailable", zap.Error(err))
		}
	}

	resume := pauseSpinner()
	defer resume()

	p, err := prompt.ReadPassphrase(fmt.Sprintf("Passphrase for %s: ", meta.Name))
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(p)
	return string(p), nil
}

// newCipher builds a cipher for a new or re-keyed profile. Passphrases are
// confirmed when typed. With allowEnv unset the environment passphrase is
// ignored.
func newCipher(kind cipher.Kind, gpgKey string, allowEnv bool) (cipher.Cipher, string, error) {
	var key string
	switch kind {
	case cipher.KindPassphrase, cipher.KindAge:
		if p := prompt.FromEnv(); allowEnv && p != nil {
			key = string(p)
			crypto.ClearBytes(p)
			break
		}
		p, err := prompt.ReadPassphraseConfirm()
		if err != nil {
			return nil, "", err
		}
		key = string(p)
		crypto.ClearBytes(p)
	case cipher.KindGPG:
		if gpgKey == "" {
			return nil, "", fmt.Errorf("%w: --gpg-key is required", cipher.ErrKeyRequired)
		}
		key = gpgKey
	}

	c, err := cipher.New(kind, key, cipherOptions()...)
	if err != nil {
		return nil, "", err
	}
	if !kind.RequiresSecret() {
		key = ""
	}
	return c, key, nil
}

// rememberKey stores the passphrase when the keyring is enabled. Failures
// are warnings; the profile is already saved.
func rememberKey(name, key string) {
	if !cfg.UseKeyring || key == "" {
		return
	}
	if err := keyring.SavePassphrase(name, key); err != nil {
		Logger.Warn("failed to save passphrase to keyring", zap.String("profile", name), zap.Error(err))
		return
	}
	Logger.Info("saved passphrase to keyring", zap.String("profile", name))
}

// startSpinner shows message on stderr until the returned func is called.
// Verbose and debug runs log instead so the spinner does not garble output.
func startSpinner(message string) func() {
	if verbose || debug || !term.IsTerminal(int(os.Stderr.Fd())) {
		Logger.Info(strings.TrimSuffix(message, "..."))
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	if err := s.Color("cyan"); err != nil {
		Logger.Debug("failed to set spinner color", zap.Error(err))
	}
	s.Start()
	activeSpinner = s

	return func() {
		s.Stop()
		activeSpinner = nil
	}
}

// pauseSpinner stops the running spinner, if any, for a prompt.
func pauseSpinner() func() {
	s := activeSpinner
	if s == nil || !s.Active() {
		return func() {}
	}
	s.Stop()
	return s.Start
}

// confirmAction asks a yes/no question on stderr, defaulting to no
func confirmAction(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	answer, err := prompt.ReadLine(os.Stdin)
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func success(format string, args ...any) {
	fmt.Println(color.GreenString("✓") + " " + fmt.Sprintf(format, args...))
}

func warn(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.YellowString("!")+" "+fmt.Sprintf(format, args...))
}
