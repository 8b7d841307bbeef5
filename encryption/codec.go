// Package encryption - data encryption codec
package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
)

// KeyLen required symmetric key length in bytes
const KeyLen = 32

// NonceLen AEAD nonce length in bytes
const NonceLen = 12

// ErrAuthenticationFailed returned when the authentication tag does not verify.
//
// Tampered ciphertext, a wrong key, and a wrong nonce are indistinguishable
// here; none of them yield any plaintext.
var ErrAuthenticationFailed = errors.New("ciphertext authentication failed")

/*
Codec the system's cryptography codec. It is solely responsible for all
cryptographic operations in the system.

Every encryption draws a fresh random nonce internally; callers can not
supply one, which structurally rules out nonce reuse under the process key.
*/
type Codec interface {
	/*
		Encrypt encrypt plain text with the process key

			@param ctx context.Context - execution context
			@param plainText []byte - the plain text to encrypt
			@param aad []byte - optional associated data bound into the tag
			@return the fresh nonce used, and the cipher text with appended tag
	*/
	Encrypt(ctx context.Context, plainText []byte, aad []byte) ([]byte, []byte, error)

	/*
		Decrypt decrypt cipher text with the process key

			@param ctx context.Context - execution context
			@param nonce []byte - the nonce used during encryption
			@param cipherText []byte - the cipher text with appended tag
			@param aad []byte - associated data bound into the tag, if any
			@return the plain text
	*/
	Decrypt(ctx context.Context, nonce []byte, cipherText []byte, aad []byte) ([]byte, error)
}

// aeadCodec implements Codec with AES-256-GCM
type aeadCodec struct {
	goutils.Component
	aead cipher.AEAD
}

/*
NewAESGCMCodec define new AES-256-GCM codec

	@param key []byte - the 256-bit process encryption key
	@returns codec instance
*/
func NewAESGCMCodec(key []byte) (Codec, error) {
	if len(key) != KeyLen {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeyLen, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare AES block cipher [%w]", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare GCM mode [%w]", err)
	}

	logTags := log.Fields{"module": "encryption", "component": "aes-gcm-codec"}

	return &aeadCodec{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		aead: aead,
	}, nil
}

/*
Encrypt encrypt plain text with the process key

	@param ctx context.Context - execution context
	@param plainText []byte - the plain text to encrypt
	@param aad []byte - optional associated data bound into the tag
	@return the fresh nonce used, and the cipher text with appended tag
*/
func (c *aeadCodec) Encrypt(
	_ context.Context, plainText []byte, aad []byte,
) ([]byte, []byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to draw encryption nonce [%w]", err)
	}

	cipherText := c.aead.Seal(nil, nonce, plainText, aad)
	return nonce, cipherText, nil
}

/*
Decrypt decrypt cipher text with the process key

	@param ctx context.Context - execution context
	@param nonce []byte - the nonce used during encryption
	@param cipherText []byte - the cipher text with appended tag
	@param aad []byte - associated data bound into the tag, if any
	@return the plain text
*/
func (c *aeadCodec) Decrypt(
	_ context.Context, nonce []byte, cipherText []byte, aad []byte,
) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, fmt.Errorf(
			"nonce must be %d bytes, got %d [%w]", c.aead.NonceSize(), len(nonce),
			ErrAuthenticationFailed,
		)
	}

	plainText, err := c.aead.Open(nil, nonce, cipherText, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt cipher text [%w]", ErrAuthenticationFailed)
	}

	return plainText, nil
}
