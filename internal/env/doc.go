// Package env holds the record model: Env, a single named variable with an
// optional comment and expiration date, and Map, an insertion-ordered
// collection that keeps names unique.
//
// Map.MarshalBinary is the canonical plaintext handed to ciphers. It is a
// JSON array, so values containing '=' or newlines round-trip exactly.
// The KEY=VALUE form is only produced on export.
package env
