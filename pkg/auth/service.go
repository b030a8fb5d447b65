package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/syncdeck/syncdeck/pkg/models"
	"github.com/syncdeck/syncdeck/pkg/platform"
	"github.com/uptrace/bun"
)

// SessionExpiry is how long session tokens are valid.
const SessionExpiry = 7 * 24 * time.Hour

// SessionClaims are the claims carried by a session token issued for the
// dashboard. AuthUserID is the external identity the session belongs to.
type SessionClaims struct {
	AuthUserID string  `json:"auth_user_id"`
	FullName   string  `json:"full_name"`
	Email      *string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the resolved caller of a request: the external identity, the
// persisted user row, and a platform access token scoped to that user. The
// access token is request-scoped and must not be cached.
type Identity struct {
	AuthUserID  string  `json:"auth_user_id"`
	UserID      int     `json:"db_user_id"`
	FullName    string  `json:"full_name"`
	Email       *string `json:"email,omitempty"`
	AccessToken string  `json:"-"`
}

// Service resolves authenticated sessions to persisted users.
type Service struct {
	db            *bun.DB
	platform      *platform.Client
	sessionSecret []byte
}

func NewService(db *bun.DB, platformClient *platform.Client, sessionSecret string) *Service {
	return &Service{
		db:            db,
		platform:      platformClient,
		sessionSecret: []byte(sessionSecret),
	}
}

// GenerateSessionToken creates a session token for an external identity.
func (s *Service) GenerateSessionToken(authUserID, fullName string, email *string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		AuthUserID: authUserID,
		FullName:   fullName,
		Email:      email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.sessionSecret)
	if err != nil {
		return "", errors.WithStack(err)
	}

	return signedToken, nil
}

// ValidateSessionToken validates a session token and returns its claims.
func (s *Service) ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.sessionSecret, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// ResolveIdentity maps validated session claims to a persisted user, creating
// the user on first sight, and mints a platform access token for the request.
func (s *Service) ResolveIdentity(ctx context.Context, claims *SessionClaims) (*Identity, error) {
	user, err := s.findOrCreateUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.platform.MintAccessToken(user.ID, user.FullName)
	if err != nil {
		return nil, err
	}

	return &Identity{
		AuthUserID:  user.AuthUserID,
		UserID:      user.ID,
		FullName:    user.FullName,
		Email:       user.Email,
		AccessToken: accessToken,
	}, nil
}

func (s *Service) findOrCreateUser(ctx context.Context, claims *SessionClaims) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("u.auth_user_id = ?", claims.AuthUserID).
		Scan(ctx)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithStack(err)
	}

	now := time.Now()
	user = &models.User{
		CreatedAt:  now,
		UpdatedAt:  now,
		AuthUserID: claims.AuthUserID,
		FullName:   claims.FullName,
		Email:      claims.Email,
	}
	_, err = s.db.NewInsert().Model(user).Exec(ctx)
	if err == nil {
		return user, nil
	}

	// First-writer-wins: a concurrent request may have created the row
	// between our select and insert. Retry the find on a unique violation.
	if isUniqueViolation(err) {
		user = &models.User{}
		err = s.db.NewSelect().
			Model(user).
			Where("u.auth_user_id = ?", claims.AuthUserID).
			Scan(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return user, nil
	}

	return nil, errors.WithStack(err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
