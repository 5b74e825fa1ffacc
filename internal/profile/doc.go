// Package profile persists named record sets in encrypted JSON containers.
//
// A container holds clear-text metadata (name, cipher kind, timestamps),
// the cipher's envelope, and any non-secret cipher parameters:
//
//	{
//	  "metadata": {"name": "ci", "cipher_kind": "passphrase", ...},
//	  "encrypted_content": "base64...",
//	  "cipher_metadata": {"version": "1", "salt": "...", "nonce": "..."}
//	}
//
// Load picks the cipher from the stored kind and asks the KeySupplier for a
// secret only when that cipher needs one. Mutations stay in memory until
// Save, which re-encrypts and replaces the file atomically.
//
// Store adds a directory of profiles and a BBolt index that lists them
// without decrypting.
package profile
