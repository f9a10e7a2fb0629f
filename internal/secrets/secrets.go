// Package secrets provides encrypted credential storage for catalog and
// sync accounts, layered on the library database.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/gorm"

	"github.com/dominicmauro/dulcinea/internal/crypto"
	"github.com/dominicmauro/dulcinea/internal/library"
)

const (
	// EnvEncryptionKey is the environment variable holding the passphrase.
	EnvEncryptionKey = "DULCINEA_ENCRYPTION_KEY"

	// DefaultKeyFileName is the default name for the passphrase file.
	DefaultKeyFileName = ".dulcinea-key"

	// derivationSalt keeps derived keys stable across runs. Changing it
	// invalidates every stored secret.
	derivationSalt = "dulcinea-secrets-v1"
)

// Store encrypts credentials before persisting them as library secrets.
type Store struct {
	db        *gorm.DB
	encryptor *crypto.Encryptor
}

// Config holds configuration for the secret store.
type Config struct {
	// Passphrase is the encryption passphrase. If empty, it is loaded
	// from the environment or the key file.
	Passphrase string

	// KeyFilePath is the path to the passphrase file.
	// If empty, defaults to ~/.dulcinea-key.
	KeyFilePath string
}

// New creates a secret store on top of an opened library store.
func New(lib *library.Store, cfg Config) (*Store, error) {
	passphrase, err := resolvePassphrase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve encryption passphrase: %w", err)
	}

	encryptor, err := crypto.NewEncryptor(crypto.DeriveKey([]byte(passphrase), []byte(derivationSalt)))
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}

	return &Store{
		db:        lib.DB(),
		encryptor: encryptor,
	}, nil
}

// resolvePassphrase determines the passphrase from various sources
func resolvePassphrase(cfg Config) (string, error) {
	// Priority 1: Explicitly provided passphrase
	if cfg.Passphrase != "" {
		return cfg.Passphrase, nil
	}

	// Priority 2: Environment variable
	if envKey := os.Getenv(EnvEncryptionKey); envKey != "" {
		return envKey, nil
	}

	// Priority 3: Key file
	keyFilePath := cfg.KeyFilePath
	if keyFilePath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		keyFilePath = filepath.Join(homeDir, DefaultKeyFileName)
	}

	if data, err := os.ReadFile(keyFilePath); err == nil && len(data) > 0 {
		return string(data), nil
	}

	// Generate a new passphrase and save it
	passphrase, err := crypto.GeneratePassphrase()
	if err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}

	if err := os.WriteFile(keyFilePath, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase to %s: %w", keyFilePath, err)
	}

	return passphrase, nil
}

// Set encrypts and stores a secret under the given key.
func (s *Store) Set(key, value string) error {
	encrypted, err := s.encryptor.Encrypt(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt secret %q: %w", key, err)
	}

	secret := &library.Secret{Key: key, Value: encrypted}
	result := s.db.Where("key = ?", key).
		Assign(map[string]interface{}{"value": encrypted}).
		FirstOrCreate(secret)
	if result.Error != nil {
		return fmt.Errorf("failed to save secret %q: %w", key, result.Error)
	}

	return nil
}

// Get retrieves and decrypts a secret. A missing key returns "" with no error.
func (s *Store) Get(key string) (string, error) {
	var secret library.Secret
	result := s.db.Where("key = ?", key).First(&secret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get secret %q: %w", key, result.Error)
	}

	value, err := s.encryptor.Decrypt(secret.Value)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt secret %q: %w", key, err)
	}
	return value, nil
}

// Delete removes a secret from storage.
func (s *Store) Delete(key string) error {
	result := s.db.Where("key = ?", key).Delete(&library.Secret{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete secret %q: %w", key, result.Error)
	}
	return nil
}

// KeyFilePath returns the passphrase file path that will be used.
func KeyFilePath(customPath string) string {
	if customPath != "" {
		return customPath
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultKeyFileName
	}
	return filepath.Join(homeDir, DefaultKeyFileName)
}
