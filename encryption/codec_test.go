package encryption_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"testing"

	"github.com/apex/log"
	"github.com/kaviselvaram-dev/docvault/encryption"
	"github.com/stretchr/testify/assert"
)

func testKey(t *testing.T) []byte {
	key := make([]byte, encryption.KeyLen)
	_, err := rand.Read(key)
	assert.Nil(t, err)
	return key
}

func TestCodecInit(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	// Case 0: no key
	{
		_, err := encryption.NewAESGCMCodec(nil)
		assert.Error(err)
	}

	// Case 1: short key
	{
		_, err := encryption.NewAESGCMCodec(make([]byte, 16))
		assert.Error(err)
	}

	// Case 2: proper 256-bit key
	{
		_, err := encryption.NewAESGCMCodec(testKey(t))
		assert.Nil(err)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	uut, err := encryption.NewAESGCMCodec(testKey(t))
	assert.Nil(err)

	// -------------------------------------------------------------------------
	// 1 – Empty payload
	{
		nonce, cipherText, err := uut.Encrypt(utCtx, []byte{}, nil)
		assert.Nil(err)
		assert.Len(nonce, encryption.NonceLen)

		plainText, err := uut.Decrypt(utCtx, nonce, cipherText, nil)
		assert.Nil(err)
		assert.Empty(plainText)
	}

	// -------------------------------------------------------------------------
	// 2 – Small payload
	{
		payload := []byte("hello world")
		nonce, cipherText, err := uut.Encrypt(utCtx, payload, nil)
		assert.Nil(err)

		plainText, err := uut.Decrypt(utCtx, nonce, cipherText, nil)
		assert.Nil(err)
		assert.Equal(payload, plainText)
	}

	// -------------------------------------------------------------------------
	// 3 – Multi-MB payload
	{
		payload := make([]byte, 4*1024*1024)
		_, err := rand.Read(payload)
		assert.Nil(err)

		nonce, cipherText, err := uut.Encrypt(utCtx, payload, nil)
		assert.Nil(err)

		plainText, err := uut.Decrypt(utCtx, nonce, cipherText, nil)
		assert.Nil(err)
		assert.Equal(payload, plainText)
	}

	// -------------------------------------------------------------------------
	// 4 – Associated data is bound into the tag
	{
		payload := []byte("with associated data")
		aad := []byte("document-context")
		nonce, cipherText, err := uut.Encrypt(utCtx, payload, aad)
		assert.Nil(err)

		plainText, err := uut.Decrypt(utCtx, nonce, cipherText, aad)
		assert.Nil(err)
		assert.Equal(payload, plainText)

		// Wrong AAD must not verify
		_, err = uut.Decrypt(utCtx, nonce, cipherText, []byte("other-context"))
		assert.ErrorIs(err, encryption.ErrAuthenticationFailed)
	}
}

func TestCodecNonceUniqueness(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	uut, err := encryption.NewAESGCMCodec(testKey(t))
	assert.Nil(err)

	payload := []byte("same message")

	// Successive encryptions of the same payload must differ in both
	// nonce and ciphertext
	nonce1, cipherText1, err := uut.Encrypt(utCtx, payload, nil)
	assert.Nil(err)
	nonce2, cipherText2, err := uut.Encrypt(utCtx, payload, nil)
	assert.Nil(err)

	assert.False(bytes.Equal(nonce1, nonce2))
	assert.False(bytes.Equal(cipherText1, cipherText2))

	seen := map[string]bool{}
	for i := 0; i < 256; i++ {
		nonce, _, err := uut.Encrypt(utCtx, payload, nil)
		assert.Nil(err)
		assert.False(seen[string(nonce)])
		seen[string(nonce)] = true
	}
}

func TestCodecTamperDetection(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	key := testKey(t)
	uut, err := encryption.NewAESGCMCodec(key)
	assert.Nil(err)

	payload := []byte("sensitive document content")
	nonce, cipherText, err := uut.Encrypt(utCtx, payload, nil)
	assert.Nil(err)

	// -------------------------------------------------------------------------
	// 1 – Flip one bit anywhere in the ciphertext
	for idx := 0; idx < len(cipherText); idx++ {
		altered := make([]byte, len(cipherText))
		copy(altered, cipherText)
		altered[idx] ^= 0x01

		_, err := uut.Decrypt(utCtx, nonce, altered, nil)
		assert.ErrorIs(err, encryption.ErrAuthenticationFailed)
	}

	// -------------------------------------------------------------------------
	// 2 – Flip one bit anywhere in the nonce
	for idx := 0; idx < len(nonce); idx++ {
		altered := make([]byte, len(nonce))
		copy(altered, nonce)
		altered[idx] ^= 0x01

		_, err := uut.Decrypt(utCtx, altered, cipherText, nil)
		assert.ErrorIs(err, encryption.ErrAuthenticationFailed)
	}

	// -------------------------------------------------------------------------
	// 3 – Truncated nonce
	{
		_, err := uut.Decrypt(utCtx, nonce[:encryption.NonceLen-1], cipherText, nil)
		assert.ErrorIs(err, encryption.ErrAuthenticationFailed)
	}

	// -------------------------------------------------------------------------
	// 4 – Wrong key
	{
		otherKey := testKey(t)
		assert.False(bytes.Equal(key, otherKey))

		other, err := encryption.NewAESGCMCodec(otherKey)
		assert.Nil(err)

		_, err = other.Decrypt(utCtx, nonce, cipherText, nil)
		assert.ErrorIs(err, encryption.ErrAuthenticationFailed)
	}
}
