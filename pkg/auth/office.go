// Package auth resolves the calling office's identity. Offices
// authenticate with HS256 JWTs whose subject is the office id.
package auth

import (
	"context"

	pkgerrors "memgraph/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const officeContextKey contextKey = "office"

// OfficeContext carries the authenticated office identity through a
// request
type OfficeContext struct {
	OfficeID string
	Roles    []string
}

// SetOfficeInContext attaches an office identity to a context
func SetOfficeInContext(ctx context.Context, office *OfficeContext) context.Context {
	return context.WithValue(ctx, officeContextKey, office)
}

// GetOfficeFromContext retrieves the office identity from a context
func GetOfficeFromContext(ctx context.Context) (*OfficeContext, error) {
	office, ok := ctx.Value(officeContextKey).(*OfficeContext)
	if !ok || office == nil {
		return nil, pkgerrors.NewForbiddenError("no authenticated office in context")
	}
	return office, nil
}

// Claims are the JWT claims carried by office tokens
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTValidator validates office tokens
type JWTValidator struct {
	secret []byte
	issuer string
}

// NewJWTValidator creates a validator for HS256 tokens
func NewJWTValidator(secret, issuer string) (*JWTValidator, error) {
	if secret == "" {
		return nil, pkgerrors.NewValidationError("jwt secret cannot be empty")
	}
	return &JWTValidator{secret: []byte(secret), issuer: issuer}, nil
}

// ValidateToken parses and verifies a token, returning the office identity
func (v *JWTValidator) ValidateToken(tokenString string) (*OfficeContext, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, pkgerrors.NewValidationError("unexpected signing method")
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, pkgerrors.NewForbiddenError("invalid token").WithCause(err)
	}
	if !token.Valid {
		return nil, pkgerrors.NewForbiddenError("invalid token")
	}
	if claims.Subject == "" {
		return nil, pkgerrors.NewForbiddenError("token has no office subject")
	}

	return &OfficeContext{
		OfficeID: claims.Subject,
		Roles:    claims.Roles,
	}, nil
}
