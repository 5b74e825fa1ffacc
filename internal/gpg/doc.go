// Package gpg talks to a local OpenPGP implementation for the gpg cipher.
//
// The cipher only needs three things from it: encrypt to a fingerprint,
// decrypt with whatever secret key is available, and list secret keys.
// CLI provides them by running the gpg binary.
package gpg
