package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fivetwenty-io/restwrap/internal/constants"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Static errors for err113 compliance.
var (
	ErrNoValidCredentials = errors.New("no valid credentials available")
)

// OAuth2Config holds the credentials used to obtain tokens. The grant is
// picked from what is set: refresh token, then password, then client
// credentials.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	RefreshToken string
	AccessToken  string
	Scopes       []string
	HTTPClient   *http.Client
}

// OAuth2TokenManager obtains and refreshes tokens from an OAuth2 token endpoint.
type OAuth2TokenManager struct {
	config *OAuth2Config
	store  *TokenStore
	mutex  sync.Mutex
}

// NewOAuth2TokenManager creates a manager. A configured AccessToken is used
// until it is rejected or refreshed.
func NewOAuth2TokenManager(config *OAuth2Config) *OAuth2TokenManager {
	manager := &OAuth2TokenManager{
		config: config,
		store:  NewTokenStore(),
	}

	if config.AccessToken != "" {
		manager.store.Set(&Token{
			AccessToken:  config.AccessToken,
			RefreshToken: config.RefreshToken,
			TokenType:    "bearer",
		})
	}

	return manager
}

// GetToken returns a valid access token, fetching a new one if necessary.
func (m *OAuth2TokenManager) GetToken(ctx context.Context) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	token := m.store.Get()
	if token.Valid() {
		return token.AccessToken, nil
	}

	token, err := m.fetch(ctx, token)
	if err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

// RefreshToken forces a new token to be fetched.
func (m *OAuth2TokenManager) RefreshToken(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	_, err := m.fetch(ctx, m.store.Get())

	return err
}

// SetToken manually sets the access token, keeping any refresh token.
func (m *OAuth2TokenManager) SetToken(token string, expiresAt time.Time) {
	refresh := m.config.RefreshToken
	if current := m.store.Get(); current != nil && current.RefreshToken != "" {
		refresh = current.RefreshToken
	}

	m.store.Set(&Token{
		AccessToken:  token,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresAt:    expiresAt,
	})
}

func (m *OAuth2TokenManager) fetch(ctx context.Context, current *Token) (*Token, error) {
	httpClient := m.config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.ShortHTTPTimeout}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)

	oauthConfig := &oauth2.Config{
		ClientID:     m.config.ClientID,
		ClientSecret: m.config.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  m.config.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		Scopes: m.config.Scopes,
	}

	refresh := m.config.RefreshToken
	if current != nil && current.RefreshToken != "" {
		refresh = current.RefreshToken
	}

	var (
		result *oauth2.Token
		err    error
	)

	switch {
	case refresh != "":
		result, err = oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}).Token()
		if err != nil && m.hasGrantCredentials() {
			result, err = m.grant(ctx, oauthConfig)
		}
	case m.hasGrantCredentials():
		result, err = m.grant(ctx, oauthConfig)
	default:
		return nil, ErrNoValidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("failed to obtain token: %w", err)
	}

	token := fromOAuth2(result)
	if token.RefreshToken == "" {
		token.RefreshToken = refresh
	}

	m.store.Set(token)

	return token, nil
}

func (m *OAuth2TokenManager) hasGrantCredentials() bool {
	return m.config.Username != "" || m.config.ClientID != ""
}

func (m *OAuth2TokenManager) grant(ctx context.Context, oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	if m.config.Username != "" {
		return oauthConfig.PasswordCredentialsToken(ctx, m.config.Username, m.config.Password)
	}

	credentials := &clientcredentials.Config{
		ClientID:     m.config.ClientID,
		ClientSecret: m.config.ClientSecret,
		TokenURL:     m.config.TokenURL,
		Scopes:       m.config.Scopes,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	return credentials.Token(ctx)
}

func fromOAuth2(token *oauth2.Token) *Token {
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}

	return &Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    int(token.ExpiresIn),
		TokenType:    tokenType,
		ExpiresAt:    token.Expiry,
	}
}
