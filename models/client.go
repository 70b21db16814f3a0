package models

import "crypto/subtle"

// Client a registered OAuth client application.
// Records are created at provisioning/seed time and treated as immutable
// except for secret rotation and redirect URI set replacement.
type Client struct {
	ID                     string
	Secret                 string
	DisplayName            string
	RedirectURIs           []string
	PostLogoutRedirectURIs []string
	Public                 bool
}

// GetID client id
func (c *Client) GetID() string {
	return c.ID
}

// GetSecret client secret
func (c *Client) GetSecret() string {
	return c.Secret
}

// GetDisplayName human readable client name
func (c *Client) GetDisplayName() string {
	return c.DisplayName
}

// GetRedirectURIs registered redirect uris
func (c *Client) GetRedirectURIs() []string {
	return c.RedirectURIs
}

// GetPostLogoutRedirectURIs registered post-logout redirect uris
func (c *Client) GetPostLogoutRedirectURIs() []string {
	return c.PostLogoutRedirectURIs
}

// IsPublic public client (no secret)
func (c *Client) IsPublic() bool {
	return c.Public
}

// VerifySecret compares the provided secret against the stored one in
// constant time to resist timing attacks.
func (c *Client) VerifySecret(secret string) bool {
	return subtle.ConstantTimeCompare([]byte(c.Secret), []byte(secret)) == 1
}

// HasRedirectURI reports whether uri exactly matches one of the registered
// redirect uris. Matching is ordinal and case sensitive.
func (c *Client) HasRedirectURI(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

// HasPostLogoutRedirectURI reports whether uri exactly matches one of the
// registered post-logout redirect uris.
func (c *Client) HasPostLogoutRedirectURI(uri string) bool {
	for _, u := range c.PostLogoutRedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}
