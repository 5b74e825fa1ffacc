// Package crypto provides cryptographic primitives for envvault.
//
// Bulk encryption uses the STREAM construction over XChaCha20-Poly1305:
//   - 1024-byte plaintext chunks, each carrying a 16-byte Poly1305 tag
//   - 24-byte nonce = 19-byte random prefix || 4-byte big-endian counter || last flag
//   - the last chunk is always sealed with the flag set, so truncation fails
//
// Key derivation uses Argon2id with:
//   - 16-byte random salt (stored unencrypted)
//   - 2 passes, 19 MiB memory, 1 lane
//
// Memory safety:
//   - Key material lives in a Secret (memguard locked buffer)
//   - Secret.Use hands out a temporary copy that is wiped afterwards
//   - NewStream clears the derived key once the AEAD is built
package crypto
