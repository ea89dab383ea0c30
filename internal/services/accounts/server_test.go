package accounts

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDefaultServerURL(t *testing.T) {
	env := setupTestService(t)
	t.Setenv(ServerEnvVar, "")

	assert.Equal(t, "https://app.speckle.systems", env.service.ResolveDefaultServerURL())

	serverFile := filepath.Join(env.config.SpeckleDir, "server")
	require.NoError(t, os.WriteFile(serverFile, []byte("https://file.example/\n"), 0644))
	assert.Equal(t, "https://file.example", env.service.ResolveDefaultServerURL())

	t.Setenv(ServerEnvVar, "https://env.example")
	assert.Equal(t, "https://env.example", env.service.ResolveDefaultServerURL(), "environment wins over file")

	t.Setenv(ServerEnvVar, "not a url")
	assert.Equal(t, "https://file.example", env.service.ResolveDefaultServerURL(), "invalid overrides are ignored")

	require.NoError(t, os.WriteFile(serverFile, []byte("relative/path"), 0644))
	assert.Equal(t, "https://app.speckle.systems", env.service.ResolveDefaultServerURL())
}

func TestGenerateChallenge(t *testing.T) {
	allowed := regexp.MustCompile(`^[\w.@-]+$`)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		challenge, err := GenerateChallenge()
		require.NoError(t, err)
		assert.Regexp(t, allowed, challenge)
		assert.GreaterOrEqual(t, len(challenge), 30)
		assert.False(t, seen[challenge])
		seen[challenge] = true
	}
}
