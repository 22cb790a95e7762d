package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

const facebookMeURL = "https://graph.facebook.com/v19.0/me"

type facebookProvider struct {
	cfg *oauth2.Config
}

func NewFacebook(clientID, clientSecret, redirectURL string) Provider {
	return &facebookProvider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     facebook.Endpoint,
		},
	}
}

func (f *facebookProvider) Name() string { return "facebook" }

func (f *facebookProvider) AuthURL(state string) string {
	return f.cfg.AuthCodeURL(state)
}

// Exchange swaps the code for an access token and fetches the profile from
// the Graph API. Facebook accounts can exist without an email; those are
// rejected because the account model keys federated identities on email.
func (f *facebookProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	tok, err := f.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("facebook code exchange failed: %w", err)
	}

	q := url.Values{}
	q.Set("fields", "id,name,email")
	q.Set("access_token", tok.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, facebookMeURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Graph API request: %w", err)
	}
	resp, err := oauth2.NewClient(ctx, nil).Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph API profile fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph API returned status %d", resp.StatusCode)
	}

	var profile struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode Graph API profile: %w", err)
	}
	if profile.ID == "" {
		return nil, errors.New("graph API profile missing id")
	}
	if profile.Email == "" {
		return nil, errors.New("facebook account has no email")
	}

	return &Identity{
		Subject:  profile.ID,
		Email:    profile.Email,
		Name:     profile.Name,
		Provider: f.Name(),
		// Facebook only returns addresses it has confirmed.
		EmailVerified: true,
	}, nil
}
