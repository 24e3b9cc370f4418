package shared

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/odyssey-commerce/storefront/internal/rbac"
)

// Audience separates customer sessions from back-office sessions.
type Audience string

const (
	AudienceCustomer Audience = "customer"
	AudienceAdmin    Audience = "admin"
)

// Session lifetimes.
const (
	SessionTTL  = 24 * time.Hour
	RememberTTL = 7 * 24 * time.Hour
)

const sessionIssuer = "storefront"

var (
	// ErrNoSession means the request carries no session cookie. It is an expected outcome.
	ErrNoSession = errors.New("session: not present")
	// ErrInvalidSession covers bad signatures, wrong audience, malformed claims and expiry.
	ErrInvalidSession = errors.New("session: invalid")
)

// Identity is the verified content of a session token.
type Identity struct {
	Audience  Audience
	ID        int64
	Role      rbac.Role
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (i *Identity) GetID() int64 { return i.ID }

func (i *Identity) GetRole() rbac.Role { return i.Role }

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies signed session cookies for every audience.
type SessionManager struct {
	secret  []byte
	secure  bool
	cookies map[Audience]cookieSpec
	now     func() time.Time
}

type cookieSpec struct {
	name     string
	sameSite http.SameSite
}

// NewSessionManager constructs a SessionManager. secure toggles the cookie Secure flag.
func NewSessionManager(secret string, secure bool) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		secure: secure,
		cookies: map[Audience]cookieSpec{
			AudienceCustomer: {name: "shop_session", sameSite: http.SameSiteLaxMode},
			AudienceAdmin:    {name: "admin_session", sameSite: http.SameSiteStrictMode},
		},
		now: time.Now,
	}
}

// CookieName returns the cookie identifier used for aud.
func (sm *SessionManager) CookieName(aud Audience) string {
	return sm.cookies[aud].name
}

// Issue signs a token for subject and attaches it to the response.
func (sm *SessionManager) Issue(w http.ResponseWriter, aud Audience, subject int64, role rbac.Role, remember bool) (*Identity, error) {
	spec, ok := sm.cookies[aud]
	if !ok {
		return nil, fmt.Errorf("session: unknown audience %q", aud)
	}
	if !roleFits(aud, role) {
		return nil, fmt.Errorf("session: role %s not allowed for %s", role, aud)
	}
	ttl := SessionTTL
	if remember {
		ttl = RememberTTL
	}
	now := sm.now().UTC().Truncate(time.Second)
	identity := &Identity{
		Audience:  aud,
		ID:        subject,
		Role:      role,
		TokenID:   uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	claims := sessionClaims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   strconv.FormatInt(subject, 10),
			Audience:  jwt.ClaimStrings{string(aud)},
			IssuedAt:  jwt.NewNumericDate(identity.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(identity.ExpiresAt),
			ID:        identity.TokenID,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.secret)
	if err != nil {
		return nil, fmt.Errorf("session: sign: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     spec.name,
		Value:    token,
		Path:     "/",
		Expires:  identity.ExpiresAt,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: spec.sameSite,
	})
	return identity, nil
}

// Verify validates the aud session cookie on r. A missing cookie yields ErrNoSession; any other
// failure yields an error wrapping ErrInvalidSession.
func (sm *SessionManager) Verify(r *http.Request, aud Audience) (*Identity, error) {
	spec, ok := sm.cookies[aud]
	if !ok {
		return nil, fmt.Errorf("%w: unknown audience %q", ErrInvalidSession, aud)
	}
	cookie, err := r.Cookie(spec.name)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}
	return sm.parse(cookie.Value, aud)
}

func (sm *SessionManager) parse(raw string, aud Audience) (*Identity, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return sm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(string(aud)),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(sm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidSession)
	}
	role, err := rbac.ParseRole(claims.Role)
	if err != nil || !roleFits(aud, role) {
		return nil, fmt.Errorf("%w: bad role", ErrInvalidSession)
	}
	identity := &Identity{Audience: aud, ID: id, Role: role, TokenID: claims.ID}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

// Clear expires the aud session cookie.
func (sm *SessionManager) Clear(w http.ResponseWriter, aud Audience) {
	spec, ok := sm.cookies[aud]
	if !ok {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     spec.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: spec.sameSite,
	})
}

// Authenticate loads the aud identity into the request context. Requests without a session pass
// through anonymously; tampered or expired cookies are cleared and also pass through anonymously.
func (sm *SessionManager) Authenticate(aud Audience, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := sm.Verify(r, aud)
			switch {
			case err == nil:
				r = r.WithContext(ContextWithIdentity(r.Context(), identity))
			case errors.Is(err, ErrNoSession):
			default:
				if logger != nil {
					logger.Warn("rejected session cookie", slog.String("audience", string(aud)), slog.Any("error", err))
				}
				sm.Clear(w, aud)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func roleFits(aud Audience, role rbac.Role) bool {
	switch aud {
	case AudienceCustomer:
		return role == rbac.RoleCustomer
	case AudienceAdmin:
		return role.IsStaff()
	default:
		return false
	}
}
