package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"pix-subscription/internal/infra/logging"
	"pix-subscription/internal/usecase"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errNoToken        = errors.New("missing token")
	errInvalidSession = errors.New("invalid session")
)

// UserClaims are the bearer token claims; Subject is the user id.
type UserClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens issued by the identity provider.
type Authenticator struct {
	secret []byte
	issuer string
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// Mint issues a token for userID; used by tooling and tests.
func (a *Authenticator) Mint(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := UserClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) ParseFromRequest(r *http.Request) (*UserClaims, error) {
	hdr := strings.TrimSpace(r.Header.Get("Authorization"))
	if hdr == "" {
		return nil, errNoToken
	}
	// "Bearer" with nothing after it has already lost its trailing spaces here
	scheme, tok, _ := strings.Cut(hdr, " ")
	if !strings.EqualFold(scheme, "bearer") {
		return nil, errInvalidSession
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return nil, errNoToken
	}
	return a.parse(tok)
}

func (a *Authenticator) parse(tok string) (*UserClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &UserClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return nil, errInvalidSession
	}
	return claims, nil
}

type callerKey struct{}

// Require rejects requests without a valid session and stores the caller on the context.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.ParseFromRequest(r)
		switch {
		case errors.Is(err, errNoToken):
			writeError(w, http.StatusUnauthorized, "Authentication required", "NO_TOKEN")
			return
		case err != nil:
			writeError(w, http.StatusUnauthorized, "Invalid or expired session", "INVALID_SESSION")
			return
		}
		caller := usecase.Caller{UserID: claims.Subject, Email: claims.Email}
		ctx := context.WithValue(r.Context(), callerKey{}, caller)
		ctx = logging.WithUserID(ctx, caller.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerFrom(ctx context.Context) (usecase.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(usecase.Caller)
	return c, ok
}
