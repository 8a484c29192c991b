package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tinoosan/loanledger/internal/ledger"
)

// AuthConfig configures HS256 bearer token verification. Issuer and Audience
// are only checked when set.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// Claims are the identity token claims: the standard ones plus the caller's
// back-office role and display name.
type Claims struct {
	Role ledger.Role `json:"role"`
	Name string      `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies and mints identity tokens.
type Authenticator struct {
	cfg    AuthConfig
	parser *jwt.Parser
}

func NewAuthenticator(cfg AuthConfig) *Authenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Authenticator{cfg: cfg, parser: jwt.NewParser(opts...)}
}

// Verify parses a token and returns the identity it carries.
func (a *Authenticator) Verify(token string) (ledger.Identity, error) {
	if a.cfg.Secret == "" {
		return ledger.Identity{}, errors.New("token verification is not configured")
	}
	var claims Claims
	_, err := a.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(a.cfg.Secret), nil
	})
	if err != nil {
		return ledger.Identity{}, err
	}
	if claims.Subject == "" {
		return ledger.Identity{}, errors.New("token has no subject")
	}
	if claims.Role == "" {
		return ledger.Identity{}, errors.New("token has no role")
	}
	return ledger.Identity{Subject: claims.Subject, Name: claims.Name, Role: claims.Role}, nil
}

// Sign mints a token for id valid for ttl.
func (a *Authenticator) Sign(id ledger.Identity, ttl time.Duration) (string, error) {
	if a.cfg.Secret == "" {
		return "", errors.New("token signing is not configured")
	}
	now := time.Now()
	claims := Claims{
		Role: id.Role,
		Name: id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    a.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if a.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{a.cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.Secret))
}

func parseBearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[len("Bearer "):])
	return tok, tok != ""
}

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

// IdentityFrom returns the authenticated caller stored by the auth middleware.
func IdentityFrom(ctx context.Context) (ledger.Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(ledger.Identity)
	return id, ok
}

// authenticate enforces Authorization: Bearer <jwt> and stores the identity.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := parseBearerToken(r)
		if !ok {
			writeErr(w, http.StatusUnauthorized, "missing bearer token", "unauthorized")
			return
		}
		id, err := s.auth.Verify(tok)
		if err != nil {
			s.log.Debug("token rejected", "err", err)
			writeErr(w, http.StatusUnauthorized, "invalid or expired token", "unauthorized")
			return
		}
		if c := callerFrom(r.Context()); c != nil {
			c.id, c.ok = id, true
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyIdentity, id)))
	})
}

// requireRoles rejects callers whose role is not one of roles.
func requireRoles(roles ...ledger.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				writeErr(w, http.StatusUnauthorized, "missing bearer token", "unauthorized")
				return
			}
			if !id.Role.In(roles...) {
				writeErr(w, http.StatusForbidden, "role "+string(id.Role)+" may not access this resource", "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
