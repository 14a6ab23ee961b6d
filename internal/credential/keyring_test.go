package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/card-statements/internal/model"
	"github.com/nhle/card-statements/internal/testutil"
)

func TestVault_OpensKeyringOnce(t *testing.T) {
	ring := keyring.NewArrayKeyring([]keyring.Item{
		{Key: "pdf-hdfc", Data: []byte("hdfc123")},
		{Key: "pdf-idfc", Data: []byte("idfc456")},
	})
	opens := 0
	v := &Vault{
		open: func() (keyring.Keyring, error) {
			opens++
			return ring, nil
		},
		logger: testutil.DiscardLogger(),
	}
	r := &Resolver{getenv: func(string) string { return "" }, keyringGet: v.Get}

	for range 3 {
		assert.Equal(t, "hdfc123", r.PDFPassword(model.BankHDFC))
		assert.Equal(t, "idfc456", r.PDFPassword(model.BankIDFC))
	}
	assert.Equal(t, 1, opens)
}

func TestVault_OpenFailureIsRemembered(t *testing.T) {
	opens := 0
	v := &Vault{
		open: func() (keyring.Keyring, error) {
			opens++
			return nil, errors.New("no backend")
		},
		logger: testutil.DiscardLogger(),
	}

	_, err := v.Get("pdf-hdfc")
	assert.ErrorContains(t, err, "opening keyring")
	assert.ErrorContains(t, v.Set("pdf-hdfc", "x"), "no backend")
	assert.Equal(t, 1, opens)

	r := NewResolver(v)
	assert.Equal(t, OriginMissing, r.Origin(PDFPasswordEnv(model.BankHDFC), "pdf-hdfc"))
}

func TestVault_SetGetDelete(t *testing.T) {
	v := NewVaultFrom(keyring.NewArrayKeyring(nil), testutil.DiscardLogger())

	_, err := v.Get(KeyEmailPassword)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, v.Set(KeyEmailPassword, "app-pass"))
	got, err := v.Get(KeyEmailPassword)
	require.NoError(t, err)
	assert.Equal(t, "app-pass", got)

	require.NoError(t, v.Delete(KeyEmailPassword))
	assert.ErrorIs(t, v.Delete(KeyEmailPassword), ErrNotFound)
}

func TestResolver_Origin(t *testing.T) {
	t.Setenv(EnvEmailAddress, "me@example.com")
	t.Setenv(EnvEmailPassword, "")

	v := NewVaultFrom(keyring.NewArrayKeyring([]keyring.Item{
		{Key: KeyEmailAddress, Data: []byte("ring@example.com")},
		{Key: KeyEmailPassword, Data: []byte("app-pass")},
	}), testutil.DiscardLogger())
	r := NewResolver(v)

	assert.Equal(t, OriginEnv, r.Origin(EnvEmailAddress, KeyEmailAddress))
	assert.Equal(t, OriginKeyring, r.Origin(EnvEmailPassword, KeyEmailPassword))
	assert.Equal(t, OriginMissing, r.Origin("IDFC_PDF_PASSWORD", "pdf-idfc"))

	creds := r.Mailbox()
	assert.Equal(t, "me@example.com", creds.Address)
	assert.Equal(t, "app-pass", creds.Password)
}
