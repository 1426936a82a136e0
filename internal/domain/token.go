package domain

import "time"

// OAuthToken is the stored Cafe24 OAuth credential pair for one mall
type OAuthToken struct {
	MallID                string    `json:"mall_id" bson:"mallId"`
	AccessToken           string    `json:"access_token" bson:"accessToken"`
	RefreshToken          string    `json:"refresh_token" bson:"refreshToken"`
	ExpiresAt             time.Time `json:"expires_at" bson:"expiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at" bson:"refreshTokenExpiresAt"`
	Scopes                []string  `json:"scopes,omitempty" bson:"scopes,omitempty"`
	UpdatedAt             time.Time `json:"updated_at" bson:"updatedAt"`
}

// AccessExpired reports whether the access token is expired, or will be
// within skew, at now.
func (t *OAuthToken) AccessExpired(now time.Time, skew time.Duration) bool {
	return !now.Add(skew).Before(t.ExpiresAt)
}

// RefreshExpired reports whether the refresh token can no longer be used.
// A zero expiry means the provider did not report one.
func (t *OAuthToken) RefreshExpired(now time.Time) bool {
	return !t.RefreshTokenExpiresAt.IsZero() && !now.Before(t.RefreshTokenExpiresAt)
}
