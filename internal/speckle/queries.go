package speckle

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/speckle-accounts/internal/models"
)

const serverInfoQuery = `query { serverInfo { name company version adminContact description migration { movedFrom movedTo } } }`

const userInfoQuery = `query { user { id name email company avatar } }`

const userServerInfoQuery = `query {
  user {
    id name email company avatar
    streams { totalCount }
    commits { totalCount }
  }
  serverInfo { name company version adminContact description migration { movedFrom movedTo } }
}`

const streamQuery = `query Stream($id: String!) { stream(id: $id) { id name } }`

const branchQuery = `query Branch($streamId: String!, $branchName: String!) {
  stream(id: $streamId) { branch(name: $branchName) { id name description } }
}`

type serverInfoData struct {
	ServerInfo *models.ServerInfo `json:"serverInfo"`
}

type userInfoData struct {
	User *models.UserInfo `json:"user"`
}

type userServerInfoData struct {
	User       *models.UserInfo   `json:"user"`
	ServerInfo *models.ServerInfo `json:"serverInfo"`
}

type streamData struct {
	Stream *models.Stream `json:"stream"`
}

type branchData struct {
	Stream *struct {
		Branch *models.Branch `json:"branch"`
	} `json:"stream"`
}

// GetServerInfo fetches the server's public info. The returned URL is the one queried.
func (c *Client) GetServerInfo(ctx context.Context, serverURL string) (*models.ServerInfo, error) {
	data, err := query[serverInfoData](ctx, c, serverURL, "", serverInfoQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch server info: %w", err)
	}
	if data.ServerInfo == nil {
		return nil, fmt.Errorf("failed to fetch server info: server returned no serverInfo")
	}

	info := data.ServerInfo
	info.URL = strings.TrimRight(serverURL, "/")
	info.Frontend2 = c.isFrontend2(ctx, info.URL)
	return info, nil
}

// GetUserInfo fetches the user the token authenticates as
func (c *Client) GetUserInfo(ctx context.Context, serverURL, token string) (*models.UserInfo, error) {
	data, err := query[userInfoData](ctx, c, serverURL, token, userInfoQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	if data.User == nil {
		return nil, fmt.Errorf("failed to fetch user info: token is not associated with a user")
	}
	return data.User, nil
}

// GetUserServerInfo fetches the user and the server info in one query
func (c *Client) GetUserServerInfo(ctx context.Context, serverURL, token string) (*models.UserServerInfo, error) {
	data, err := query[userServerInfoData](ctx, c, serverURL, token, userServerInfoQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user and server info: %w", err)
	}
	if data.User == nil || data.ServerInfo == nil {
		return nil, fmt.Errorf("failed to fetch user and server info: incomplete response")
	}

	data.ServerInfo.URL = strings.TrimRight(serverURL, "/")
	data.ServerInfo.Frontend2 = c.isFrontend2(ctx, data.ServerInfo.URL)
	return &models.UserServerInfo{User: data.User, ServerInfo: data.ServerInfo}, nil
}

// StreamGet fetches a stream, failing when it does not exist or the token lacks access
func (c *Client) StreamGet(ctx context.Context, serverURL, token, streamID string) (*models.Stream, error) {
	data, err := query[streamData](ctx, c, serverURL, token, streamQuery, map[string]interface{}{"id": streamID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stream %s: %w", streamID, err)
	}
	if data.Stream == nil {
		return nil, fmt.Errorf("failed to fetch stream %s: stream not found", streamID)
	}
	return data.Stream, nil
}

// BranchGet fetches a branch by name; a missing branch is (nil, nil)
func (c *Client) BranchGet(ctx context.Context, serverURL, token, streamID, branchName string) (*models.Branch, error) {
	data, err := query[branchData](ctx, c, serverURL, token, branchQuery, map[string]interface{}{
		"streamId":   streamID,
		"branchName": branchName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch branch %s of stream %s: %w", branchName, streamID, err)
	}
	if data.Stream == nil {
		return nil, fmt.Errorf("failed to fetch branch %s: stream %s not found", branchName, streamID)
	}
	return data.Stream.Branch, nil
}
