// Package storage keeps a BBolt index of the profiles in a directory.
//
// Database structure uses two buckets:
//   - config: schema version and timestamps
//   - profiles: name, path, cipher kind, record count and timestamps
//
// The index holds nothing secret. It lets envvault ls work without
// decrypting any profile, and it can always be rebuilt from the container
// files, which remain the source of truth.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
