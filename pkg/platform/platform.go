package platform

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/syncdeck/syncdeck/pkg/config"
)

// Client talks to the external integration platform. It mints the access
// tokens downstream platform calls require, verifies the signed tokens the
// platform attaches to webhooks, and fetches records during pulls.
type Client struct {
	apiURL     string
	secret     []byte
	tokenTTL   time.Duration
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		apiURL:   cfg.PlatformAPIURL,
		secret:   []byte(cfg.PlatformSecret),
		tokenTTL: cfg.PlatformTokenTTL,
		httpClient: &http.Client{
			Timeout: cfg.PlatformTimeout,
		},
	}
}

// AccessClaims are the claims carried by a platform access token. Tokens are
// short-lived and scoped to one user; they must never be cached beyond the
// request that minted them.
type AccessClaims struct {
	UserID   int    `json:"user_id"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// MintAccessToken creates a short-lived access token for the given user.
func (c *Client) MintAccessToken(userID int, fullName string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID:   userID,
		FullName: fullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(c.secret)
	if err != nil {
		return "", errors.WithStack(err)
	}

	return signedToken, nil
}

// WebhookClaims are the claims carried by a platform-signed webhook token.
type WebhookClaims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// VerifyWebhookToken validates a signed webhook token and returns its claims.
func (c *Client) VerifyWebhookToken(tokenString string) (*WebhookClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &WebhookClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	claims, ok := token.Claims.(*WebhookClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
