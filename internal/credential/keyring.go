package credential

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
	"github.com/charmbracelet/log"
)

const serviceName = "card-statements"

// ErrNotFound is returned for keys the keyring does not hold.
var ErrNotFound = errors.New("secret not found in keyring")

func openSystemKeyring() (keyring.Keyring, error) {
	return keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/card-statements/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("card-statements-file-key"),
		KeychainTrustApplication: true,
	})
}

// Vault holds statement secrets in the system keyring. The keyring is
// opened on first use and shared by every later call, so a run touches
// the backend once no matter how many statements it reads.
type Vault struct {
	open   func() (keyring.Keyring, error)
	logger *log.Logger

	once sync.Once
	ring keyring.Keyring
	err  error
}

// NewVault returns a Vault over the system keyring.
func NewVault(logger *log.Logger) *Vault {
	return &Vault{open: openSystemKeyring, logger: logger.WithPrefix("keyring")}
}

// NewVaultFrom returns a Vault over an already opened keyring.
func NewVaultFrom(ring keyring.Keyring, logger *log.Logger) *Vault {
	return &Vault{
		open:   func() (keyring.Keyring, error) { return ring, nil },
		logger: logger.WithPrefix("keyring"),
	}
}

func (v *Vault) keyring() (keyring.Keyring, error) {
	v.once.Do(func() {
		v.ring, v.err = v.open()
		if v.err != nil {
			v.err = fmt.Errorf("opening keyring: %w", v.err)
			v.logger.Warn("keyring unavailable, using environment only", "err", v.err)
			return
		}
		v.logger.Debug("keyring opened", "service", serviceName)
	})
	return v.ring, v.err
}

// Get returns the secret stored under key.
func (v *Vault) Get(key string) (string, error) {
	ring, err := v.keyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("getting secret %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores value under key.
func (v *Vault) Set(key, value string) error {
	ring, err := v.keyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting secret %q: %w", key, err)
	}

	return nil
}

// Delete removes key. Deleting a key that is not stored returns
// ErrNotFound.
func (v *Vault) Delete(key string) error {
	ring, err := v.keyring()
	if err != nil {
		return err
	}

	if _, err := ring.Get(key); errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err := ring.Remove(key); err != nil {
		return fmt.Errorf("deleting secret %q: %w", key, err)
	}

	return nil
}
