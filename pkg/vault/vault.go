package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const envelopePrefix = "v1:"

// Vault encrypts stored OAuth credentials as versioned envelopes of the
// form v1:<iv>:<authTag>:<ciphertext> (hex fields, AES-256-GCM). Values
// written before the envelope format (base64 nonce||ciphertext) still
// decrypt through a legacy path, and anything that matches neither form
// is passed through as already-plaintext so older records keep working
// during migration. Both degradation paths are logged.
type Vault struct {
	key []byte
}

// New derives the encryption key from the deployment master secret. An
// empty secret enables plaintext passthrough, which is refused outright
// in production.
func New(secret, environment string) (*Vault, error) {
	if secret == "" {
		if environment == "production" {
			return nil, errors.New("vault: master secret is required in production")
		}
		slog.Warn("vault: no master secret configured, credentials will be stored unencrypted")
		return &Vault{}, nil
	}
	sum := sha256.Sum256([]byte(secret))
	return &Vault{key: sum[:]}, nil
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	if v.key == nil {
		return plaintext, nil
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	sealed := aesGCM.Seal(nil, nonce, []byte(plaintext), nil)
	tagSize := aesGCM.Overhead()
	ciphertext := sealed[:len(sealed)-tagSize]
	authTag := sealed[len(sealed)-tagSize:]

	return fmt.Sprintf("%s%s:%s:%s", envelopePrefix,
		hex.EncodeToString(nonce),
		hex.EncodeToString(authTag),
		hex.EncodeToString(ciphertext)), nil
}

// Decrypt never returns an error for unrecognized input: a value that is
// neither a v1 envelope nor a legacy record is returned unchanged.
func (v *Vault) Decrypt(value string) (string, error) {
	if v.key == nil {
		return value, nil
	}

	if strings.HasPrefix(value, envelopePrefix) {
		plaintext, err := v.openEnvelope(value)
		if err != nil {
			slog.Warn("vault: envelope decrypt failed, treating value as plaintext", "error", err.Error())
			return value, nil
		}
		return plaintext, nil
	}

	plaintext, err := v.decryptLegacy(value)
	if err != nil {
		slog.Warn("vault: value is neither envelope nor legacy format, treating as plaintext")
		return value, nil
	}
	slog.Warn("vault: decrypted legacy-format credential, re-encrypt on next write")
	return plaintext, nil
}

func (v *Vault) openEnvelope(value string) (string, error) {
	parts := strings.Split(strings.TrimPrefix(value, envelopePrefix), ":")
	if len(parts) != 3 {
		return "", errors.New("malformed envelope")
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", err
	}
	authTag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", err
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(nonce) != aesGCM.NonceSize() || len(authTag) != aesGCM.Overhead() {
		return "", errors.New("malformed envelope")
	}

	plaintext, err := aesGCM.Open(nil, nonce, append(ciphertext, authTag...), nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (v *Vault) decryptLegacy(value string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
