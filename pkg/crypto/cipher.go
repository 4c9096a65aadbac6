// Package crypto encrypts tenant database credentials at rest.
//
// The wire format is "<hex-iv>:<hex-ciphertext>" (AES-256-CBC). Rows written
// before encryption was introduced hold plaintext; Decrypt passes anything that
// does not parse as the wire format through unchanged so those rows keep
// working. Callers must judge a decrypted value by whether the connection built
// from it works, not by any error channel here.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/scrypt"
)

const (
	// keySalt is the fixed application-wide scrypt salt. Changing it orphans
	// every ciphertext already stored.
	keySalt = "dialdesk-credential-salt"

	scryptN = 16384
	scryptR = 8
	scryptP = 1

	keyLen = 32
	ivLen  = aes.BlockSize
)

// ErrEmptySecret is returned when the cipher is constructed without a secret.
var ErrEmptySecret = errors.New("encryption secret must not be empty")

// Cipher provides symmetric encryption for credential strings.
// The scrypt key derivation runs once in the constructor; a Cipher is built per
// process and shared.
type Cipher struct {
	key    []byte
	logger *zap.Logger
}

// NewCipher derives the AES key from the configured secret and returns a ready
// cipher. A nil logger is replaced with a no-op logger.
func NewCipher(secret string, logger *zap.Logger) (*Cipher, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	key, err := scrypt.Key([]byte(secret), []byte(keySalt), scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("derive encryption key: %w", err)
	}

	return &Cipher{key: key, logger: logger}, nil
}

// Encrypt returns "<hex-iv>:<hex-ciphertext>" for the given plaintext.
// Empty input encrypts to the empty string.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Anything that does not parse as the wire format,
// including pre-encryption plaintext rows and raw service-key JWTs, is returned
// unchanged. Cipher failures (wrong key, corrupted ciphertext) also return the
// input unchanged after logging a warning; decryption failure is deliberately
// not observable to callers.
func (c *Cipher) Decrypt(encrypted string) string {
	if encrypted == "" {
		return ""
	}

	// Service keys are JWTs and were stored raw before encryption landed.
	if strings.HasPrefix(encrypted, "eyJ") {
		return encrypted
	}

	ivHex, ctHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		c.logger.Warn("credential value is not in encrypted format, passing through as legacy plaintext")
		return encrypted
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivLen {
		c.logger.Warn("credential value has a malformed iv segment, passing through")
		return encrypted
	}

	ciphertext, err := hex.DecodeString(ctHex)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		c.logger.Warn("credential value has a malformed ciphertext segment, passing through")
		return encrypted
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		c.logger.Warn("failed to initialize cipher for decryption, passing through", zap.Error(err))
		return encrypted
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		c.logger.Warn("credential decryption failed, passing value through", zap.Error(err))
		return encrypted
	}

	return string(unpadded)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, errors.New("invalid padding byte")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}
