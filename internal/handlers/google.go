package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"doctor-portal-server/internal/config"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleVerifier implements ExternalAuthVerifier against Google's OAuth2
// endpoints using the authorization-code flow.
type GoogleVerifier struct {
	cfg    config.GoogleOAuthConfig
	client *http.Client
}

// NewGoogleVerifier creates a GoogleVerifier, or nil when the client ID is
// not configured so callers can disable the Google routes gracefully.
func NewGoogleVerifier(cfg config.GoogleOAuthConfig) *GoogleVerifier {
	if cfg.ClientID == "" {
		return nil
	}
	return &GoogleVerifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthURL returns the Google consent page URL for the given state.
func (v *GoogleVerifier) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", v.cfg.ClientID)
	q.Set("redirect_uri", v.cfg.CallbackURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	return googleAuthURL + "?" + q.Encode()
}

// Verify exchanges the authorization code for an access token and fetches
// the user's profile.
func (v *GoogleVerifier) Verify(code string) (*ExternalProfile, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", v.cfg.ClientID)
	form.Set("client_secret", v.cfg.ClientSecret)
	form.Set("redirect_uri", v.cfg.CallbackURL)
	form.Set("grant_type", "authorization_code")

	resp, err := v.client.Post(googleTokenURL, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchanging code: unexpected status %d", resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}

	req, err := http.NewRequest(http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	infoResp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching user info: %w", err)
	}
	defer infoResp.Body.Close()
	if infoResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching user info: unexpected status %d", infoResp.StatusCode)
	}

	var info struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(infoResp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding user info: %w", err)
	}

	return &ExternalProfile{ExternalID: info.ID, Email: info.Email, Name: info.Name}, nil
}
