// -----------------------------------------------------------------------
// Load Accounts from Files - standalone JSON account files
// -----------------------------------------------------------------------
//
// Accounts written by hand (or by other Speckle tooling) live as *.json
// files anywhere below the accounts directory. They are read-only from this
// module's point of view: never written back, never deleted.

package localfiles

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/models"
)

// LoadAccounts scans dirPath recursively for *.json files and returns every
// file that parses as an Account and passes ValidateLocal. Unreadable,
// unparseable or incomplete files are skipped.
func LoadAccounts(dirPath string, logger arbor.ILogger) []*models.Account {
	accounts := []*models.Account{}

	if dirPath == "" {
		return accounts
	}
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		logger.Debug().Str("path", dirPath).Msg("Accounts directory not found, skipping file loading")
		return accounts
	}

	loadedCount := 0
	skippedCount := 0

	err := filepath.WalkDir(dirPath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to walk accounts directory entry")
			return nil
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			return nil
		}

		account, err := loadAccountFile(path)
		if err != nil {
			logger.Debug().Err(err).Str("file", entry.Name()).Msg("Skipping account file")
			skippedCount++
			return nil
		}

		accounts = append(accounts, account)
		loadedCount++
		return nil
	})
	if err != nil {
		logger.Warn().Err(err).Str("path", dirPath).Msg("Failed to scan accounts directory")
	}

	logger.Debug().
		Int("loaded", loadedCount).
		Int("skipped", skippedCount).
		Str("path", dirPath).
		Msg("Finished loading accounts from files")

	return accounts
}

func loadAccountFile(path string) (*models.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var account models.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}

	if err := account.ValidateLocal(); err != nil {
		return nil, err
	}

	return &account, nil
}
