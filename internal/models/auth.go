package models

// TokenPair is the response of the server's /auth/token endpoint
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// TokenExchangeRequest exchanges a login access code for a token pair
type TokenExchangeRequest struct {
	AppID      string `json:"appId"`
	AppSecret  string `json:"appSecret"`
	AccessCode string `json:"accessCode"`
	Challenge  string `json:"challenge"`
}

// TokenRefreshRequest trades a refresh token for a new token pair
type TokenRefreshRequest struct {
	AppID        string `json:"appId"`
	AppSecret    string `json:"appSecret"`
	RefreshToken string `json:"refreshToken"`
}

// UserServerInfo is the combined result of the activeUser + serverInfo query
type UserServerInfo struct {
	User       *UserInfo   `json:"user"`
	ServerInfo *ServerInfo `json:"serverInfo"`
}

// Stream is the minimal stream shape needed to confirm access
type Stream struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Branch is the minimal branch shape needed to confirm existence
type Branch struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
