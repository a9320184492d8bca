package credstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/bookstore/pkg/db"
	"github.com/Skotchmaster/bookstore/pkg/tokens"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()

	dir := t.TempDir()
	gdb, err := db.Open(context.Background(), "sqlite://"+filepath.Join(dir, "creds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	gs, err := NewGormStore(context.Background(), gdb, "")
	require.NoError(t, err)

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(dir, "nested", "credentials.json"), ""),
		"gorm":   gs,
	}
}

func TestStores_Contract(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(ctx)
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Clear(ctx), "clear on empty store is a no-op")

			first := &Credential{AccessToken: "T1", RefreshToken: "R1", Scheme: "Bearer", Identity: Identity{Email: "a@b.c", Role: "user"}}
			require.NoError(t, store.Save(ctx, first))

			got, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, first, got)

			second := &Credential{AccessToken: "T2", RefreshToken: "R2"}
			require.NoError(t, store.Save(ctx, second))
			got, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, second, got, "save replaces the whole record")

			require.NoError(t, store.Clear(ctx))
			_, err = store.Load(ctx)
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	cred := &Credential{AccessToken: "T1"}
	require.NoError(t, s.Save(ctx, cred))

	cred.AccessToken = "mutated"
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T1", got.AccessToken)
}

func TestFileStore_KeepsOtherKeysAndPermissions(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")

	users := NewFileStore(path, "user")
	other := NewFileStore(path, "other")
	require.NoError(t, other.Save(ctx, &Credential{AccessToken: "O"}))
	require.NoError(t, users.Save(ctx, &Credential{AccessToken: "U"}))
	require.NoError(t, users.Clear(ctx))

	got, err := other.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "O", got.AccessToken)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path, "").Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestCredential_WithTokensKeepsIdentityAndScheme(t *testing.T) {
	cred := Credential{AccessToken: "T1", RefreshToken: "R1", Scheme: "Token", Identity: Identity{Email: "a@b.c", Role: "admin"}}

	next := cred.WithTokens("T2", "R2")
	assert.Equal(t, "T2", next.AccessToken)
	assert.Equal(t, "R2", next.RefreshToken)
	assert.Equal(t, "Token", next.Scheme)
	assert.Equal(t, cred.Identity, next.Identity)
	assert.Equal(t, "T1", cred.AccessToken, "original is untouched")

	kept := cred.WithTokens("T3", "")
	assert.Equal(t, "R1", kept.RefreshToken)
}

func TestCredential_HeaderAndIdentity(t *testing.T) {
	token, err := tokens.SignAccessToken("boss@example.com", tokens.RoleAdmin, time.Now().Add(time.Hour), []byte("k"))
	require.NoError(t, err)

	cred := &Credential{AccessToken: token}
	assert.Equal(t, "Bearer "+token, cred.AuthorizationValue())

	cred.FillIdentity()
	assert.Equal(t, "boss@example.com", cred.Email)
	assert.True(t, cred.IsAdmin())

	cred.Scheme = "Token"
	assert.Equal(t, "Token "+token, cred.AuthorizationValue())
}
