package session

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/providers"
	apperrors "github.com/bedfinder/backend/pkg/errors"
)

// Claims are the session claims issued by the auth service. The role claim
// mirrors the profile role of the user.
type Claims struct {
	Role string `json:"user_role,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider resolves HS256-signed session tokens.
type JWTProvider struct {
	secret []byte
	issuer string
}

// NewJWTProvider creates a session provider. An empty issuer disables the
// issuer check.
func NewJWTProvider(secret, issuer string) providers.SessionProvider {
	return &JWTProvider{secret: []byte(secret), issuer: issuer}
}

// Resolve validates token and returns the caller identity.
func (p *JWTProvider) Resolve(ctx context.Context, token string) (*entities.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewUnauthorizedError("missing session token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.NewUnauthorizedError("session expired")
		}
		return nil, apperrors.NewUnauthorizedError("invalid session token")
	}

	if claims.Subject == "" {
		return nil, apperrors.NewUnauthorizedError("session token has no subject")
	}

	return &entities.Identity{
		UserID: claims.Subject,
		Role:   parseRole(claims.Role),
	}, nil
}

func parseRole(role string) entities.Role {
	switch entities.Role(strings.ToLower(role)) {
	case entities.RoleStaff:
		return entities.RoleStaff
	case entities.RoleAdmin:
		return entities.RoleAdmin
	default:
		return entities.RolePatient
	}
}
