package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/storefront/internal/domain"
	"github.com/dukerupert/storefront/internal/telemetry"
)

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	// Secret is the HS256 signing key.
	Secret []byte

	// Issuer, when set, must match the token's iss claim.
	Issuer string

	// Leeway tolerates clock skew on exp and nbf. Default: 30s
	Leeway time.Duration
}

// Claims is the token body. Email falls back to the subject when empty.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ErrTokenInvalid is returned for any token that fails verification.
var ErrTokenInvalid = errors.New("invalid bearer token")

// Authenticator verifies bearer tokens and turns them into identities.
type Authenticator struct {
	config AuthConfig
	parser *jwt.Parser
}

// NewAuthenticator creates an Authenticator. Only HS256 tokens with an
// expiry are accepted.
func NewAuthenticator(config AuthConfig) *Authenticator {
	if config.Leeway == 0 {
		config.Leeway = 30 * time.Second
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}

	return &Authenticator{config: config, parser: jwt.NewParser(opts...)}
}

// Parse verifies token and returns the identity it carries.
func (a *Authenticator) Parse(token string) (domain.Identity, error) {
	claims := &Claims{}
	_, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.config.Secret, nil
	})
	if err != nil {
		return domain.Identity{}, errors.Join(ErrTokenInvalid, err)
	}

	email := claims.Email
	if email == "" {
		email = claims.Subject
	}
	id := domain.Identity{
		Subject: claims.Subject,
		Email:   strings.ToLower(strings.TrimSpace(email)),
	}
	if id.IsZero() {
		return domain.Identity{}, errors.Join(ErrTokenInvalid, errors.New("token names no user"))
	}
	return id, nil
}

// Issue signs a token for id that expires after ttl.
func (a *Authenticator) Issue(id domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	subject := id.Subject
	if subject == "" {
		subject = id.Email
	}
	claims := Claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.config.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.config.Secret)
}

// RequireIdentity rejects requests without a valid bearer token and puts
// the identity in the context. The request logger and Sentry scope gain
// the user's email.
func (a *Authenticator) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respondUnauthorized(w, r, "Authentication required")
			return
		}

		id, err := a.Parse(token)
		if err != nil {
			GetLogger(r.Context()).Info("bearer token rejected", "error", err)
			respondUnauthorized(w, r, "Invalid or expired token")
			return
		}

		ctx := domain.NewContextWithIdentity(r.Context(), id)
		ctx = WithLogger(ctx, GetLogger(ctx).With("user", id.Email))
		telemetry.SetUserOnContext(ctx, id.Subject, id.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
