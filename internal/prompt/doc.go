// Package prompt reads passphrases from the terminal or the
// ENVVAULT_PASSPHRASE environment variable.
package prompt
