package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"

	"github.com/dmitrijs2005/mailkeeper/internal/filex"
)

const keyringService = "mailkeeper"

// KeyringStore keeps each namespace as one JSON item in the OS keyring, or
// in an encrypted file keyring when no OS keyring is available.
type KeyringStore struct {
	ring keyring.Keyring
}

func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

// keyringOpen is a seam for tests.
var keyringOpen = keyring.Open

// OpenKeyringStore opens the platform keyring. The file backend under dir is
// encrypted with password.
func OpenKeyringStore(dir, password string) (*KeyringStore, error) {
	dir, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	ring, err := keyringOpen(keyring.Config{
		ServiceName:      keyringService,
		FileDir:          dir,
		FilePasswordFunc: keyring.FixedStringPrompt(password),
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return NewKeyringStore(ring), nil
}

func (s *KeyringStore) GetAll(_ context.Context, namespace string) (map[string]string, error) {
	item, err := s.ring.Get(namespace)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keyring get: %w", err)
	}

	values := map[string]string{}
	if err := json.Unmarshal(item.Data, &values); err != nil {
		return nil, fmt.Errorf("keyring item %s: %w", namespace, err)
	}
	return values, nil
}

func (s *KeyringStore) ReplaceAll(_ context.Context, namespace string, values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	err = s.ring.Set(keyring.Item{
		Key:   namespace,
		Data:  data,
		Label: "mailkeeper " + namespace,
	})
	if err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

func (s *KeyringStore) Destroy(_ context.Context, namespace string) error {
	err := s.ring.Remove(namespace)
	// the file backend reports a missing item as a missing file
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("keyring remove: %w", err)
	}
	return nil
}
