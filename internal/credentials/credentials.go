// Package credentials resolves the Typefully API key from an explicit value,
// the environment, or the OS keychain.
package credentials

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// EnvVar is the environment variable holding the API key.
	EnvVar = "TYPEFULLY_API_KEY"

	// Service and Account address the key in the OS keychain.
	Service = "typefully-mcp-server"
	Account = "api_key"
)

// ErrNotFound is returned when no source yields a non-empty key.
var ErrNotFound = errors.New("typefully api key not found")

// Source identifies where a key was resolved from.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceEnv      Source = "environment"
	SourceKeychain Source = "keychain"
)

// SecretStore is a platform secret store keyed by (service, account).
// Get returns "" and a nil error when no secret is stored.
type SecretStore interface {
	Get(service, account string) (string, error)
	Set(service, account, secret string) error
	Delete(service, account string) error
}

// keyringStore is the SecretStore backed by the OS keychain.
type keyringStore struct{}

// Keyring returns the SecretStore backed by the OS keychain
// (macOS Keychain, Secret Service on Linux, Windows Credential Manager).
func Keyring() SecretStore {
	return keyringStore{}
}

func (keyringStore) Get(service, account string) (string, error) {
	secret, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return secret, err
}

func (keyringStore) Set(service, account, secret string) error {
	return keyring.Set(service, account, secret)
}

func (keyringStore) Delete(service, account string) error {
	err := keyring.Delete(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// Resolver looks up the API key. It holds no cached key: every Resolve
// re-reads all sources so a rotated key is picked up on the next call.
type Resolver struct {
	// Explicit is checked first (e.g. a --api-key flag).
	Explicit string

	// LookupEnv reads the environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Store is the keychain. nil disables the keychain lookup.
	Store SecretStore

	// Logger receives source and failure messages. Defaults to log.Default().
	Logger *log.Logger
}

// NewResolver returns a Resolver reading the process environment and the OS keychain.
func NewResolver(explicit string) *Resolver {
	return &Resolver{
		Explicit:  explicit,
		LookupEnv: os.LookupEnv,
		Store:     Keyring(),
	}
}

// Resolve returns the first non-empty key, or ErrNotFound.
func (r *Resolver) Resolve() (string, error) {
	key, _, err := r.ResolveSource()
	return key, err
}

// ResolveSource is Resolve that also reports which source the key came from.
func (r *Resolver) ResolveSource() (string, Source, error) {
	if key := strings.TrimSpace(r.Explicit); key != "" {
		return key, SourceExplicit, nil
	}

	lookup := r.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvVar); ok {
		if key := strings.TrimSpace(v); key != "" {
			r.logger().Printf("using api key from environment variable %s", EnvVar)
			return key, SourceEnv, nil
		}
	}

	if r.Store != nil {
		v, err := r.Store.Get(Service, Account)
		if err != nil {
			// Keychain failures are a soft miss.
			r.logger().Printf("WARNING: failed to read api key from keychain: %v", err)
		} else if key := strings.TrimSpace(v); key != "" {
			r.logger().Printf("using api key from keychain")
			return key, SourceKeychain, nil
		}
	}

	return "", "", ErrNotFound
}

// StoreKey saves key in the keychain.
func (r *Resolver) StoreKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key is empty")
	}
	if r.Store == nil {
		return errors.New("no keychain configured")
	}
	return r.Store.Set(Service, Account, key)
}

// DeleteKey removes the key from the keychain. Deleting a missing key is not an error.
func (r *Resolver) DeleteKey() error {
	if r.Store == nil {
		return errors.New("no keychain configured")
	}
	return r.Store.Delete(Service, Account)
}

func (r *Resolver) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}
