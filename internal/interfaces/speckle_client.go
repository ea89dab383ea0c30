package interfaces

import (
	"context"

	"github.com/ternarybob/speckle-accounts/internal/models"
)

// SpeckleClient talks to a Speckle server's GraphQL and auth endpoints
type SpeckleClient interface {
	GetServerInfo(ctx context.Context, serverURL string) (*models.ServerInfo, error)
	GetUserInfo(ctx context.Context, serverURL, token string) (*models.UserInfo, error)
	GetUserServerInfo(ctx context.Context, serverURL, token string) (*models.UserServerInfo, error)

	StreamGet(ctx context.Context, serverURL, token, streamID string) (*models.Stream, error)
	// BranchGet returns nil without error when the branch does not exist
	BranchGet(ctx context.Context, serverURL, token, streamID, branchName string) (*models.Branch, error)

	ExchangeAccessCode(ctx context.Context, serverURL, accessCode, challenge string) (*models.TokenPair, error)
	RefreshToken(ctx context.Context, serverURL, refreshToken string) (*models.TokenPair, error)

	// Ping fails only when the server cannot be reached at all
	Ping(ctx context.Context, serverURL string) error
}
