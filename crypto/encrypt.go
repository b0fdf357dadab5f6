package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// Maximum size of each encrypted chunk of data. NaCl is recommended for
	// encrypting "small" messages, so large data is split into 16KB chunks.
	chunkSize = 16 * 1024 // 16KB
	nonceSize = 24
	// KeySize is the size of secret keys in bytes.
	KeySize = 32
)

// ErrDecrypt is returned when ciphertext can't be authenticated with the key.
var ErrDecrypt = errors.New("failed decrypting data")

// EncryptSym performs symmetric encryption of the plaintext data using NaCl
// primitives (XSalsa20 and Poly1305). Each chunk is prefixed with a random
// nonce.
func EncryptSym(plaintext []byte, secretKey *[KeySize]byte) ([]byte, error) {
	numChunks := (len(plaintext) + chunkSize - 1) / chunkSize
	out := make([]byte, 0, len(plaintext)+numChunks*(nonceSize+secretbox.Overhead))

	for start := 0; start < len(plaintext); start += chunkSize {
		end := min(start+chunkSize, len(plaintext))

		nonce, err := generateNonce()
		if err != nil {
			return nil, fmt.Errorf("failed generating nonce: %w", err)
		}

		out = append(out, nonce[:]...)
		out = secretbox.Seal(out, plaintext[start:end], nonce, secretKey)
	}

	return out, nil
}

// DecryptSym performs symmetric decryption of ciphertext produced by
// EncryptSym.
func DecryptSym(ciphertext []byte, secretKey *[KeySize]byte) ([]byte, error) {
	const sealedChunk = nonceSize + chunkSize + secretbox.Overhead

	out := make([]byte, 0, len(ciphertext))
	for start := 0; start < len(ciphertext); start += sealedChunk {
		end := min(start+sealedChunk, len(ciphertext))
		chunk := ciphertext[start:end]
		if len(chunk) < nonceSize+secretbox.Overhead {
			return nil, ErrDecrypt
		}

		var nonce [nonceSize]byte
		copy(nonce[:], chunk[:nonceSize])

		var ok bool
		out, ok = secretbox.Open(out, chunk[nonceSize:], &nonce, secretKey)
		if !ok {
			return nil, ErrDecrypt
		}
	}

	return out, nil
}

// DecodeHexKey decodes and validates a hex encoded secret key.
func DecodeHexKey(keyHex string) (*[KeySize]byte, error) {
	keyDec, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, err
	}
	if len(keyDec) != KeySize {
		return nil, fmt.Errorf("expected key length of %d; got %d", KeySize, len(keyDec))
	}

	var key [KeySize]byte
	copy(key[:], keyDec)

	return &key, nil
}

func generateNonce() (*[nonceSize]byte, error) {
	nonce := new([nonceSize]byte)
	_, err := io.ReadFull(rand.Reader, nonce[:])
	if err != nil {
		return nil, err
	}

	return nonce, nil
}
