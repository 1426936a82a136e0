package cafe24

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/pkg/logging"
	"github.com/shopops/backoffice/pkg/metrics"
)

const (
	operationTokenRefresh  = "oauth.refresh"
	operationTokenExchange = "oauth.exchange"

	// tokenTimeLayout is the provider's timestamp format. Times carry no zone
	// and are Korean Standard Time.
	tokenTimeLayout = "2006-01-02T15:04:05.000"

	// DefaultTokenSkew refreshes access tokens this long before they expire
	DefaultTokenSkew = 5 * time.Minute
)

var kst = time.FixedZone("KST", 9*60*60)

// TokenRefresher exchanges a refresh token for a new token pair
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*domain.OAuthToken, error)
}

type tokenResponse struct {
	AccessToken           string   `json:"access_token"`
	ExpiresAt             string   `json:"expires_at"`
	RefreshToken          string   `json:"refresh_token"`
	RefreshTokenExpiresAt string   `json:"refresh_token_expires_at"`
	MallID                string   `json:"mall_id"`
	Scopes                []string `json:"scopes"`
}

// OAuth talks to the token endpoint with the app's client credentials
type OAuth struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

func NewOAuth(cfg Config, logger *logging.Logger, m *metrics.Metrics) *OAuth {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &OAuth{
		cfg:        cfg,
		baseURL:    cfg.baseURL(),
		httpClient: &http.Client{Timeout: cfg.timeout()},
		logger:     logger.WithComponent("cafe24-oauth"),
		metrics:    m,
	}
}

// Refresh trades refreshToken for a new token pair
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*domain.OAuthToken, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return o.requestToken(ctx, operationTokenRefresh, form)
}

// Exchange trades an authorization code for the first token pair
func (o *OAuth) Exchange(ctx context.Context, code string) (*domain.OAuthToken, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", o.cfg.RedirectURI)
	return o.requestToken(ctx, operationTokenExchange, form)
}

func (o *OAuth) requestToken(ctx context.Context, operation string, form url.Values) (*domain.OAuthToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(o.cfg.ClientID, o.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := o.httpClient.Do(req)
	if err != nil {
		o.metrics.RecordCafe24Request(operation, 0, time.Since(start))
		return nil, &domain.RemoteCallError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	o.metrics.RecordCafe24Request(operation, resp.StatusCode, time.Since(start))
	o.logger.ExternalCall(ctx, "cafe24", operation, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.RemoteCallError{Operation: operation, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseError(operation, resp.StatusCode, raw)
	}

	var body tokenResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return body.toDomain(o.cfg.MallID)
}

func (r tokenResponse) toDomain(mallID string) (*domain.OAuthToken, error) {
	expiresAt, err := parseTokenTime(r.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("invalid expires_at: %w", err)
	}
	refreshExpiresAt, err := parseTokenTime(r.RefreshTokenExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh_token_expires_at: %w", err)
	}

	if r.MallID != "" {
		mallID = r.MallID
	}
	return &domain.OAuthToken{
		MallID:                mallID,
		AccessToken:           r.AccessToken,
		RefreshToken:          r.RefreshToken,
		ExpiresAt:             expiresAt,
		RefreshTokenExpiresAt: refreshExpiresAt,
		Scopes:                r.Scopes,
	}, nil
}

func parseTokenTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(tokenTimeLayout, value, kst)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// StoredTokenProvider serves the access token kept in the token store and
// refreshes it shortly before it expires. Refreshed tokens are written back.
type StoredTokenProvider struct {
	mallID    string
	store     domain.TokenStore
	refresher TokenRefresher
	clock     clockz.Clock
	skew      time.Duration
	logger    *logging.Logger

	mu     sync.Mutex
	cached *domain.OAuthToken
}

func NewStoredTokenProvider(mallID string, store domain.TokenStore, refresher TokenRefresher, logger *logging.Logger) *StoredTokenProvider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StoredTokenProvider{
		mallID:    mallID,
		store:     store,
		refresher: refresher,
		clock:     clockz.RealClock,
		skew:      DefaultTokenSkew,
		logger:    logger.WithComponent("token-provider"),
	}
}

// AccessToken implements domain.TokenProvider
func (p *StoredTokenProvider) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached == nil {
		token, err := p.store.FindByMallID(ctx, p.mallID)
		if err != nil {
			return "", err
		}
		p.cached = token
	}

	now := p.clock.Now()
	if !p.cached.AccessExpired(now, p.skew) {
		return p.cached.AccessToken, nil
	}
	if p.cached.RefreshExpired(now) {
		return "", domain.ErrTokenExpired
	}

	fresh, err := p.refresher.Refresh(ctx, p.cached.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh access token: %w", err)
	}
	fresh.MallID = p.mallID
	fresh.UpdatedAt = now.UTC()

	if err := p.store.Save(ctx, fresh); err != nil {
		return "", fmt.Errorf("failed to store refreshed token: %w", err)
	}
	p.cached = fresh
	p.logger.Info("Refreshed access token", "mall_id", p.mallID, "expires_at", fresh.ExpiresAt)
	return fresh.AccessToken, nil
}

// Store saves a token obtained out of band and makes it current
func (p *StoredTokenProvider) Store(ctx context.Context, token *domain.OAuthToken) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	token.MallID = p.mallID
	token.UpdatedAt = p.clock.Now().UTC()
	if err := p.store.Save(ctx, token); err != nil {
		return err
	}
	p.cached = token
	return nil
}
