package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/felipeadeildo/insper-sync/internal/syncerr"
)

// PasswordEncryptor applies the portal's PKCS#1 v1.5 RSA encryption
// scheme to plaintext passwords, using the key served by a
// PublicKeyCache.
type PasswordEncryptor struct {
	keys *PublicKeyCache
}

// NewPasswordEncryptor builds an encryptor backed by keys.
func NewPasswordEncryptor(keys *PublicKeyCache) *PasswordEncryptor {
	return &PasswordEncryptor{keys: keys}
}

// Encrypt RSA-encrypts plaintext under the cached public key using
// PKCS#1 v1.5 padding (the portal requires v1.5, not OAEP), and
// returns the ciphertext base64-encoded with the standard alphabet.
func (e *PasswordEncryptor) Encrypt(plaintext string) (string, error) {
	pemBytes, err := e.keys.GetPublicKey()
	if err != nil {
		return "", err
	}

	pub, err := parsePublicKey(pemBytes)
	if err != nil {
		return "", syncerr.NewCryptoError("parse public key", err)
	}

	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(plaintext))
	if err != nil {
		return "", syncerr.NewCryptoError("encrypt password", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func parsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in public key")
	}

	if pub, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is not RSA")
		}
		return rsaPub, nil
	}

	// Some portals serve a bare PKCS#1 public key rather than the
	// PKIX/SubjectPublicKeyInfo wrapper.
	rsaPub, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse RSA public key: %w", err)
	}
	return rsaPub, nil
}
