// Package keyring caches profile passphrases in the OS keyring
// (macOS Keychain, Secret Service, Windows Credential Manager).
// Entries are keyed by profile name under the "envvault" service.
package keyring
