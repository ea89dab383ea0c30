package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the settings that matter at startup
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("Speckle Accounts", GetVersion())

	logger.Debug().
		Str("version", GetFullVersion()).
		Str("speckle_dir", config.SpeckleDir).
		Str("accounts_dir", config.Accounts.Dir).
		Str("storage", config.Storage.Type).
		Bool("sealed", config.Storage.Sealed.IdentityFile != "").
		Int("callback_port", config.Auth.CallbackPort).
		Msg("Startup configuration")
}
