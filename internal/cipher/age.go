package cipher

import (
	"bytes"
	"encoding/json"
	"io"

	"filippo.io/age"
	"github.com/illarion/envvault/internal/crypto"
	"github.com/illarion/envvault/internal/env"
	"go.uber.org/zap"
)

const defaultAgeWorkFactor = 18

// Age encrypts to an age scrypt (passphrase) recipient. The age header
// carries its own salt and work factor, so there is no metadata.
type Age struct {
	secret     *crypto.Secret
	workFactor int
	log        *zap.Logger
}

// NewAge builds an age cipher for passphrase.
func NewAge(passphrase string, opts ...Option) *Age {
	return newAge(passphrase, buildOptions(opts))
}

func newAge(passphrase string, o options) *Age {
	return &Age{
		secret:     crypto.NewSecretString(passphrase),
		workFactor: o.ageWorkFactor,
		log:        o.log,
	}
}

func (a *Age) Kind() Kind { return KindAge }

// age takes the passphrase as a string, which cannot be wiped. The copy
// lives only for the duration of one call.
func (a *Age) Encrypt(m *env.Map) (Content, error) {
	plaintext, err := encode(m)
	if err != nil {
		return Content{}, err
	}
	defer crypto.ClearBytes(plaintext)

	var out bytes.Buffer
	err = a.secret.Use(func(key []byte) error {
		r, err := age.NewScryptRecipient(string(key))
		if err != nil {
			return err
		}
		r.SetWorkFactor(a.workFactor)

		w, err := age.Encrypt(&out, r)
		if err != nil {
			return err
		}
		if _, err := w.Write(plaintext); err != nil {
			return err
		}
		return w.Close()
	})
	if err != nil {
		a.log.Debug("age encryption failed", zap.Error(err))
		return Content{}, ErrCipher
	}
	return BytesContent(out.Bytes()), nil
}

func (a *Age) Decrypt(c Content) (*env.Map, error) {
	ct, ok := c.Bytes()
	if !ok {
		return nil, ErrCipher
	}

	var plaintext []byte
	err := a.secret.Use(func(key []byte) error {
		id, err := age.NewScryptIdentity(string(key))
		if err != nil {
			return err
		}
		r, err := age.Decrypt(bytes.NewReader(ct), id)
		if err != nil {
			return err
		}
		plaintext, err = io.ReadAll(r)
		return err
	})
	if err != nil {
		crypto.ClearBytes(plaintext)
		return nil, ErrCipher
	}
	defer crypto.ClearBytes(plaintext)

	return decode(plaintext)
}

func (*Age) ExportMetadata() (json.RawMessage, error) { return nil, nil }

func (*Age) ImportMetadata(json.RawMessage) error { return nil }

func (a *Age) Destroy() {
	a.secret.Destroy()
}
