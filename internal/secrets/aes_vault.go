package secrets

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"github.com/conveyor-engine/conveyor/pkg/schema"
)

// pbkdf2Iterations is the PBKDF2-SHA256 iteration count for deriving the
// vault key from the passphrase.
const pbkdf2Iterations = 100_000

// AESVault encrypts credential payloads with AES-256-GCM before they reach
// the store. The key is derived from a passphrase and the store's
// persisted salt, so the same passphrase reopens the same vault.
type AESVault struct {
	store SecretStore
	aead  cipher.AEAD
}

// Open is the one-call constructor used by the CLI and the creds task: it
// opens the libSQL-backed store at path and keys the vault from the
// passphrase plus the salt persisted in the store.
func Open(ctx context.Context, path, passphrase string) (*AESVault, error) {
	store, err := OpenStore(ctx, path)
	if err != nil {
		return nil, err
	}
	salt, err := store.Salt(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return NewAESVault(store, passphrase, salt)
}

// NewAESVault creates a vault over an existing store, deriving the AES key
// from the passphrase and salt.
func NewAESVault(store SecretStore, passphrase string, salt []byte) (*AESVault, error) {
	if passphrase == "" {
		return nil, schema.NewError(schema.ErrCodeVault, "vault passphrase is empty")
	}
	if len(salt) == 0 {
		return nil, schema.NewError(schema.ErrCodeVault, "vault salt is empty")
	}

	key, err := pbkdf2.Key(sha256.New, passphrase, salt, pbkdf2Iterations, 32)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeVault, "derive key: %s", err.Error()).WithCause(err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &AESVault{store: store, aead: aead}, nil
}

func (v *AESVault) encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (v *AESVault) decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := v.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, schema.NewError(schema.ErrCodeVault, "ciphertext too short")
	}
	nonce := ciphertext[:nonceSize]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeVault, "decrypt failed: %s", err.Error())
	}
	return plaintext, nil
}

// Store encrypts and persists a raw payload under a target name.
func (v *AESVault) Store(ctx context.Context, target string, value []byte) error {
	encrypted, err := v.encrypt(value)
	if err != nil {
		return err
	}
	return v.store.StoreSecret(ctx, target, encrypted)
}

// Resolve returns the decrypted payload stored under a target name.
func (v *AESVault) Resolve(ctx context.Context, target string) ([]byte, error) {
	encrypted, err := v.store.GetSecret(ctx, target)
	if err != nil {
		return nil, err
	}
	return v.decrypt(encrypted)
}

func (v *AESVault) Delete(ctx context.Context, target string) error {
	return v.store.DeleteSecret(ctx, target)
}

func (v *AESVault) List(ctx context.Context) ([]string, error) {
	return v.store.ListSecrets(ctx)
}

// Close releases the backing store when it owns resources.
func (v *AESVault) Close() error {
	if closer, ok := v.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// StoreCredential serializes and stores a username/password pair.
func (v *AESVault) StoreCredential(ctx context.Context, target string, cred Credential) error {
	payload, err := json.Marshal(cred)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeVault,
			"serialize credential %q: %s", target, err.Error()).WithCause(err)
	}
	return v.Store(ctx, target, payload)
}

// ResolveCredential returns the decrypted username/password pair under a
// target name.
func (v *AESVault) ResolveCredential(ctx context.Context, target string) (Credential, error) {
	raw, err := v.Resolve(ctx, target)
	if err != nil {
		return Credential{}, err
	}
	var cred Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return Credential{}, schema.NewErrorf(schema.ErrCodeVault,
			"credential %q has a malformed payload", target).WithCause(err)
	}
	return cred, nil
}
