package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubUser is the slice of the GitHub /user response this app reads.
type GitHubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"` // empty if the user hides it
	AvatarURL string `json:"avatar_url"`
}

// GitHubProvider runs the GitHub authorization-code flow for federated
// sign-in. The code-for-token exchange happens server to server; the
// access token never reaches the browser.
type GitHubProvider struct {
	config *oauth2.Config
}

// NewGitHubProvider creates a GitHubProvider. callbackURL must match the
// OAuth app's configured callback exactly.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
	}
}

// AuthURL returns the authorization URL to redirect the user to. state
// must be an unguessable value verified again on callback.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for the authenticated GitHub user's
// profile.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	client := p.config.Client(ctx, oauthToken)
	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var user GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub user: %w", err)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub user response has no id")
	}

	return &user, nil
}
