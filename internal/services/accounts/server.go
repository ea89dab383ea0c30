package accounts

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ServerEnvVar overrides the default server url
const ServerEnvVar = "SPECKLE_SERVER"

var challengeStrip = regexp.MustCompile(`[^\w.@-]`)

// ResolveDefaultServerURL picks the server used when none is given: the
// SPECKLE_SERVER variable, else the "server" file in the Speckle directory,
// else the configured default. Overrides must be absolute urls.
func (s *Service) ResolveDefaultServerURL() string {
	resolved := ""

	if data, err := os.ReadFile(filepath.Join(s.config.SpeckleDir, "server")); err == nil {
		if candidate := strings.TrimSpace(string(data)); isAbsoluteURL(candidate) {
			resolved = candidate
		} else if candidate != "" {
			s.logger.Warn().Str("value", candidate).Msg("Ignoring invalid server override file")
		}
	}

	if candidate := strings.TrimSpace(os.Getenv(ServerEnvVar)); isAbsoluteURL(candidate) {
		resolved = candidate
	} else if candidate != "" {
		s.logger.Warn().Str("value", candidate).Msg("Ignoring invalid " + ServerEnvVar)
	}

	if resolved == "" {
		resolved = s.config.Server.DefaultURL
	}
	return strings.TrimRight(resolved, "/")
}

// GenerateChallenge returns a random url-safe login challenge
func GenerateChallenge() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate challenge: %w", err)
	}
	return challengeStrip.ReplaceAllString(base64.StdEncoding.EncodeToString(buf), ""), nil
}

func isAbsoluteURL(value string) bool {
	if value == "" {
		return false
	}
	u, err := url.Parse(value)
	return err == nil && u.Scheme != "" && u.Host != ""
}
