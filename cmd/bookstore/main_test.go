package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/bookstore/internal/api"
	"github.com/Skotchmaster/bookstore/internal/devserver"
	"github.com/Skotchmaster/bookstore/internal/models"
	"github.com/Skotchmaster/bookstore/pkg/db"
	"github.com/Skotchmaster/bookstore/pkg/logging"
)

func startDevServer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	gdb, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	require.NoError(t, devserver.Migrate(ctx, gdb))
	require.NoError(t, devserver.Seed(ctx, gdb, &devserver.SeedAdmin{Email: "admin@example.com", Password: "admin-pass"}))

	srv := httptest.NewServer(devserver.New(gdb, devserver.Options{
		JWTSecret:     []byte("cli-access"),
		RefreshSecret: []byte("cli-refresh"),
		AccessTTL:     time.Minute,
	}, logging.Discard()))
	t.Cleanup(srv.Close)
	return srv.URL
}

func setupEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("API_BASE_URL", baseURL)
	t.Setenv("CREDENTIAL_STORE", "file")
	t.Setenv("CREDENTIAL_PATH", filepath.Join(t.TempDir(), "creds.json"))
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("ES_URL", "")
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd, closeApp := rootCmd()
	defer func() { assert.NoError(t, closeApp()) }()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "bookstore "+Version+"\n", out)
}

func TestSessionCommands(t *testing.T) {
	setupEnv(t, startDevServer(t))

	out, _, err := run(t, "admin-pass\n", "login", "--email", "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Signed in as admin@example.com (admin)\n", out)

	out, _, err = run(t, "", "whoami")
	require.NoError(t, err)
	var info api.UserInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.True(t, info.Authenticated)
	assert.True(t, info.IsAdmin)

	out, _, err = run(t, "", "users", "list")
	require.NoError(t, err)
	var users []models.User
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	assert.Len(t, users, 1)

	out, _, err = run(t, "", "logout")
	require.NoError(t, err)
	assert.Equal(t, "Signed out\n", out)

	_, _, err = run(t, "", "users", "list")
	assert.Error(t, err)
}

func TestCatalogCommands(t *testing.T) {
	setupEnv(t, startDevServer(t))

	out, _, err := run(t, "", "products", "list", "--size", "2")
	require.NoError(t, err)
	var page models.Page[models.Product]
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Len(t, page.Data, 2)
	assert.EqualValues(t, 3, page.Meta.Total)

	out, _, err = run(t, "", "categories", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Fiction")

	_, _, err = run(t, "", "products", "get", "zero")
	assert.EqualError(t, err, `invalid id "zero"`)

	_, _, err = run(t, "", "products", "search", "dune")
	assert.EqualError(t, err, "ES_URL is not set")
}

func TestReadPassword(t *testing.T) {
	pw, err := readPassword(strings.NewReader("ignored\n"), "flag")
	require.NoError(t, err)
	assert.Equal(t, "flag", pw)

	pw, err = readPassword(strings.NewReader("secret\r\n"), "")
	require.NoError(t, err)
	assert.Equal(t, "secret", pw)

	pw, err = readPassword(strings.NewReader("no-newline"), "")
	require.NoError(t, err)
	assert.Equal(t, "no-newline", pw)
}
