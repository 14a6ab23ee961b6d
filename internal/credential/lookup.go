package credential

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/nhle/card-statements/internal/model"
	"github.com/nhle/card-statements/internal/source"
)

// Environment variable names.
const (
	EnvEmailAddress  = "EMAIL_ADDRESS"
	EnvEmailPassword = "EMAIL_PASSWORD"
)

// Keyring keys.
const (
	KeyEmailAddress  = "email-address"
	KeyEmailPassword = "email-password"
)

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding values that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// Resolver looks up secrets in the environment first and the keyring second.
type Resolver struct {
	getenv     func(string) string
	keyringGet func(string) (string, error)
}

// NewResolver returns a Resolver backed by os.Getenv and vault.
func NewResolver(vault *Vault) *Resolver {
	return &Resolver{getenv: os.Getenv, keyringGet: vault.Get}
}

// Origin says where a secret was found.
type Origin string

const (
	OriginEnv     Origin = "env"
	OriginKeyring Origin = "keyring"
	OriginMissing Origin = "missing"
)

// Lookup returns the value of envKey, falling back to keyringKey. Lookup
// failures yield "".
func (r *Resolver) Lookup(envKey, keyringKey string) string {
	v, _ := r.resolve(envKey, keyringKey)
	return v
}

// Origin reports which source would supply the secret without returning it.
func (r *Resolver) Origin(envKey, keyringKey string) Origin {
	_, o := r.resolve(envKey, keyringKey)
	return o
}

func (r *Resolver) resolve(envKey, keyringKey string) (string, Origin) {
	if v := strings.TrimSpace(r.getenv(envKey)); v != "" {
		return v, OriginEnv
	}
	if keyringKey == "" || r.keyringGet == nil {
		return "", OriginMissing
	}
	v, err := r.keyringGet(keyringKey)
	if v = strings.TrimSpace(v); err != nil || v == "" {
		return "", OriginMissing
	}
	return v, OriginKeyring
}

// Mailbox returns the login for the mail server.
func (r *Resolver) Mailbox() source.Credentials {
	return source.Credentials{
		Address:  r.Lookup(EnvEmailAddress, KeyEmailAddress),
		Password: r.Lookup(EnvEmailPassword, KeyEmailPassword),
	}
}

// PDFPasswordEnv returns the environment variable holding the PDF password
// of bank, e.g. HDFC_PDF_PASSWORD.
func PDFPasswordEnv(bank model.Bank) string {
	return string(bank) + "_PDF_PASSWORD"
}

// PDFPasswordKey returns the keyring key holding the PDF password of bank.
func PDFPasswordKey(bank model.Bank) string {
	return "pdf-" + strings.ToLower(string(bank))
}

// PDFPassword returns the statement password for bank, or "".
func (r *Resolver) PDFPassword(bank model.Bank) string {
	return r.Lookup(PDFPasswordEnv(bank), PDFPasswordKey(bank))
}

// Presence renders whether a secret is set without revealing it.
func Presence(v string) string {
	if v == "" {
		return "missing"
	}
	return "set"
}
