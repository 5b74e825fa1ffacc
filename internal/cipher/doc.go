// Package cipher turns a record set into an encrypted envelope and back.
//
// Four variants exist and New is the only place that maps a Kind to one:
//
//   - none: records are stored as plain JSON in the container
//   - passphrase: Argon2id and XChaCha20-Poly1305 STREAM, versioned
//   - gpg: delegated to an OpenPGP agent, recipient stored as metadata
//   - age: age scrypt recipient
//
// Passphrase formats live in a Registry. Encryption always uses the newest
// version and records its tag in the metadata; decryption looks the tag up,
// so files written by older versions stay readable.
//
// Every cryptographic failure is reported as ErrCipher, with no detail.
package cipher
