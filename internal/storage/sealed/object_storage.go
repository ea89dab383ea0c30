// Package sealed encrypts stored objects at rest with age.
//
// Content is encrypted to the X25519 recipient of a local identity file and
// stored as standard base64. Objects that are still plaintext JSON are returned
// unchanged on read, so an existing store can be sealed without a migration
// step: every write re-seals the record.
package sealed

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filippo.io/age"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/interfaces"
)

// ObjectStorage wraps another ObjectStorage and seals its content
type ObjectStorage struct {
	inner     interfaces.ObjectStorage
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
	logger    arbor.ILogger
}

// NewObjectStorage wraps inner, loading the identity from identityFile or
// creating it (mode 0600) when the file does not exist yet.
func NewObjectStorage(inner interfaces.ObjectStorage, identityFile string, logger arbor.ILogger) (interfaces.ObjectStorage, error) {
	identity, err := LoadOrCreateIdentity(identityFile, logger)
	if err != nil {
		return nil, err
	}

	return &ObjectStorage{
		inner:     inner,
		identity:  identity,
		recipient: identity.Recipient(),
		logger:    logger,
	}, nil
}

// LoadOrCreateIdentity reads an age identity file in age-keygen format
func LoadOrCreateIdentity(path string, logger arbor.ILogger) (*age.X25519Identity, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return createIdentity(path, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("reading identity file %s: %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		identity, err := age.ParseX25519Identity(line)
		if err != nil {
			return nil, fmt.Errorf("parsing identity file %s: %w", path, err)
		}
		return identity, nil
	}

	return nil, fmt.Errorf("identity file %s contains no key", path)
}

func createIdentity(path string, logger arbor.ILogger) (*age.X25519Identity, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating identity directory: %w", err)
	}

	content := fmt.Sprintf("# created: %s\n# public key: %s\n%s\n",
		time.Now().Format(time.RFC3339), identity.Recipient().String(), identity.String())
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return nil, fmt.Errorf("writing identity file %s: %w", path, err)
	}

	logger.Info().Str("path", path).Msg("Created account store identity")
	return identity, nil
}

func (s *ObjectStorage) Scope() string {
	return s.inner.Scope()
}

func (s *ObjectStorage) GetAllObjects(ctx context.Context) ([]string, error) {
	sealed, err := s.inner.GetAllObjects(ctx)
	if err != nil {
		return nil, err
	}

	contents := make([]string, 0, len(sealed))
	for _, item := range sealed {
		content, err := s.open(item)
		if err != nil {
			// Unreadable entries are surfaced as-is; callers treat them as corrupt
			s.logger.Warn().Err(err).Str("scope", s.Scope()).Msg("Failed to open sealed object")
			contents = append(contents, item)
			continue
		}
		contents = append(contents, content)
	}
	return contents, nil
}

func (s *ObjectStorage) GetObject(ctx context.Context, id string) (string, error) {
	item, err := s.inner.GetObject(ctx, id)
	if err != nil {
		return "", err
	}
	return s.open(item)
}

func (s *ObjectStorage) SaveObject(ctx context.Context, id string, content string) error {
	sealed, err := s.seal(content)
	if err != nil {
		return err
	}
	return s.inner.SaveObject(ctx, id, sealed)
}

func (s *ObjectStorage) UpdateObject(ctx context.Context, id string, content string) error {
	sealed, err := s.seal(content)
	if err != nil {
		return err
	}
	return s.inner.UpdateObject(ctx, id, sealed)
}

func (s *ObjectStorage) DeleteObject(ctx context.Context, id string) error {
	return s.inner.DeleteObject(ctx, id)
}

func (s *ObjectStorage) seal(content string) (string, error) {
	var buffer bytes.Buffer
	writer, err := age.Encrypt(&buffer, s.recipient)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := io.WriteString(writer, content); err != nil {
		return "", fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buffer.Bytes()), nil
}

func (s *ObjectStorage) open(item string) (string, error) {
	if isPlaintext(item) {
		return item, nil
	}

	raw, err := base64.StdEncoding.DecodeString(item)
	if err != nil {
		return "", fmt.Errorf("decoding base64 ciphertext: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(raw), s.identity)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	return string(plaintext), nil
}

func isPlaintext(item string) bool {
	trimmed := strings.TrimSpace(item)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}
