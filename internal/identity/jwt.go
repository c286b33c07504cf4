package identity

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a presented token fails validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims carries the username alongside the registered JWT claims. The
// subject claim is used when the username claim is absent.
type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider resolves identities from HMAC-signed bearer tokens, presented
// either as a "token" query parameter (browser WebSocket clients cannot set
// headers) or an Authorization: Bearer header.
type JWTProvider struct {
	secret []byte
}

// NewJWTProvider creates a JWTProvider validating with the given secret.
func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret)}
}

// Resolve validates the request's token and returns the identity it names.
// Absent or invalid tokens resolve to the anonymous identity.
func (p *JWTProvider) Resolve(r *http.Request) Identity {
	tokenString := tokenFromRequest(r)
	if tokenString == "" {
		return anonymous()
	}

	claims, err := p.validate(tokenString)
	if err != nil {
		return anonymous()
	}

	name := claims.Username
	if name == "" {
		name = claims.Subject
	}
	if name == "" {
		return anonymous()
	}
	return Identity{Name: name, Authenticated: true}
}

func (p *JWTProvider) validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return rest
	}
	return ""
}
