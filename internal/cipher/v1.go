package cipher

import (
	"encoding/base64"
	"encoding/json"

	"github.com/illarion/envvault/internal/crypto"
)

const tagV1 = "1"

// metadataV1 holds the parameters of the first passphrase format.
// Salt is unpadded base64; the KDF runs over its decoded bytes.
type metadataV1 struct {
	Version string `json:"version"`
	Salt    string `json:"salt"`
	Nonce   string `json:"nonce"`
}

// versionV1 is Argon2id key derivation followed by XChaCha20-Poly1305 in
// STREAM mode with 1024 byte chunks.
func versionV1() Version {
	return Version{
		Tag:     tagV1,
		Encrypt: encryptV1,
		Decrypt: decryptV1,
	}
}

func encryptV1(passphrase, plaintext []byte) ([]byte, any, error) {
	salt, err := crypto.GenerateRandom(crypto.SaltSize)
	if err != nil {
		return nil, nil, ErrCipher
	}
	prefix, err := crypto.GenerateRandom(crypto.NoncePrefixSize)
	if err != nil {
		return nil, nil, ErrCipher
	}

	key, err := crypto.DefaultKDF.DeriveKey(passphrase, salt)
	if err != nil {
		return nil, nil, ErrCipher
	}
	ct, err := crypto.Seal(key, prefix, plaintext)
	if err != nil {
		return nil, nil, ErrCipher
	}

	return ct, metadataV1{
		Version: tagV1,
		Salt:    base64.RawStdEncoding.EncodeToString(salt),
		Nonce:   base64.StdEncoding.EncodeToString(prefix),
	}, nil
}

func decryptV1(passphrase []byte, params json.RawMessage, ciphertext []byte) ([]byte, error) {
	var meta metadataV1
	if err := json.Unmarshal(params, &meta); err != nil {
		return nil, ErrCipher
	}

	salt, err := base64.RawStdEncoding.DecodeString(meta.Salt)
	if err != nil || len(salt) == 0 {
		return nil, ErrCipher
	}
	prefix, err := base64.StdEncoding.DecodeString(meta.Nonce)
	if err != nil || len(prefix) != crypto.NoncePrefixSize {
		return nil, ErrCipher
	}

	key, err := crypto.DefaultKDF.DeriveKey(passphrase, salt)
	if err != nil {
		return nil, ErrCipher
	}
	pt, err := crypto.Open(key, prefix, ciphertext)
	if err != nil {
		return nil, ErrCipher
	}
	return pt, nil
}
