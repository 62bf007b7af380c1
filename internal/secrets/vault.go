package secrets

import "context"

// Credential is a decrypted username/password pair stored under a vault
// target name.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Vault stores and resolves named credentials. Payloads are encrypted at
// rest (AES-256-GCM) and decrypted in-memory only.
type Vault interface {
	Resolve(ctx context.Context, target string) ([]byte, error)
	Store(ctx context.Context, target string, value []byte) error
	Delete(ctx context.Context, target string) error
	List(ctx context.Context) ([]string, error)

	StoreCredential(ctx context.Context, target string, cred Credential) error
	ResolveCredential(ctx context.Context, target string) (Credential, error)

	// Close releases the backing store.
	Close() error
}

// SecretStore is the minimal persistence interface needed by the vault.
// Satisfied by CredsStore.
type SecretStore interface {
	StoreSecret(ctx context.Context, target string, value []byte) error
	GetSecret(ctx context.Context, target string) ([]byte, error)
	DeleteSecret(ctx context.Context, target string) error
	ListSecrets(ctx context.Context) ([]string, error)
}
