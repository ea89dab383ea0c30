package localfiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

const validAccount = `{
  "token": "local-token",
  "serverInfo": {"name": "Local", "url": "http://localhost:3000"},
  "userInfo": {"id": "u1", "name": "Local User", "email": "local@example.com"}
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadAccounts_Recursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), validAccount)
	writeFile(t, filepath.Join(dir, "nested", "deeper", "b.JSON"), validAccount)
	writeFile(t, filepath.Join(dir, "notes.txt"), validAccount)

	accounts := LoadAccounts(dir, arbor.NewLogger())
	require.Len(t, accounts, 2)
	assert.Equal(t, "local@example.com", accounts[0].UserInfo.Email)
	assert.Equal(t, "local-token", accounts[1].Token)
}

func TestLoadAccounts_SkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.json"), validAccount)
	writeFile(t, filepath.Join(dir, "broken.json"), `{"token": `)
	writeFile(t, filepath.Join(dir, "no-name.json"), `{
  "token": "t",
  "serverInfo": {"name": "Local", "url": "http://localhost:3000"},
  "userInfo": {"id": "u1", "email": "local@example.com"}
}`)
	writeFile(t, filepath.Join(dir, "no-server.json"), `{
  "token": "t",
  "userInfo": {"id": "u1", "name": "n", "email": "local@example.com"}
}`)

	accounts := LoadAccounts(dir, arbor.NewLogger())
	require.Len(t, accounts, 1)
	assert.True(t, accounts[0].IsComplete())
}

func TestLoadAccounts_MissingDirectory(t *testing.T) {
	accounts := LoadAccounts(filepath.Join(t.TempDir(), "missing"), arbor.NewLogger())
	assert.Empty(t, accounts)
	assert.NotNil(t, accounts)

	assert.Empty(t, LoadAccounts("", arbor.NewLogger()))
}
