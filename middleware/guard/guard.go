// Package guard authenticates and authorizes requests against the auth
// module's tokens and session cache. Interfaces are mirrored here instead
// of imported to keep the middleware free of import cycles.
package guard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var (
	defaultTokenLookup       = "cookie:access_token"
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

// AuthClaims mirrors the claims the auth package's token service returns.
type AuthClaims interface {
	UserID() string
	IssuedAt() time.Time
}

// TokenValidator validates an access token and extracts its claims.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrJWTMissingOrMalformed
	}
	return f(tokenString)
}

// Session mirrors the cached session snapshot fields the guard needs.
type Session struct {
	ID                string
	Name              string
	Email             string
	Role              string
	IsVerified        bool
	PasswordChangedAt *time.Time
}

// SessionReader looks up the live session for a user. A nil session with a
// nil error means the user is not logged in.
type SessionReader interface {
	Get(ctx context.Context, userID string) (*Session, error)
}

// SessionReaderFunc adapts a function into a SessionReader.
type SessionReaderFunc func(ctx context.Context, userID string) (*Session, error)

// Get satisfies the SessionReader interface.
func (f SessionReaderFunc) Get(ctx context.Context, userID string) (*Session, error) {
	if f == nil {
		return nil, nil
	}
	return f(ctx, userID)
}

type Config struct {
	// Filter skips the guard for matching requests
	Filter func(*fiber.Ctx) bool
	// Validator is required
	Validator TokenValidator
	// Sessions is required, a valid token without a session is rejected
	Sessions SessionReader
	// TokenLookup is a comma separated list of "<source>:<name>" entries,
	// e.g. "cookie:access_token,header:Authorization"
	TokenLookup  string
	AuthScheme   string
	ContextKey   string
	ErrorHandler fiber.ErrorHandler

	// ContextEnricher propagates the session to the standard Go context.
	// If provided it is called after the session check passes.
	ContextEnricher func(ctx context.Context, session *Session) context.Context
}

// DefaultContextKey is where New stores the session in fiber locals.
const DefaultContextKey = "auth_session"

// New builds the authentication middleware: extract token, validate it,
// require a live session, reject tokens issued before the last password
// change, then expose the session downstream.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := GetExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := extractRawToken(c, extractors)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.Validator.Validate(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		session, err := cfg.Sessions.Get(c.UserContext(), claims.UserID())
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if session == nil {
			return cfg.ErrorHandler(c, errors.New("please login to access this resource"))
		}

		if staleToken(session, claims) {
			return cfg.ErrorHandler(c, errors.New("password changed, please login again"))
		}

		c.Locals(cfg.ContextKey, session)

		if cfg.ContextEnricher != nil {
			c.SetUserContext(cfg.ContextEnricher(c.UserContext(), session))
		}

		return c.Next()
	}
}

// RequireRoles authorizes an already authenticated request: the session
// stored by New must carry one of the given roles. Mount it after New.
func RequireRoles(roles ...string) fiber.Handler {
	return RequireRolesWithKey(DefaultContextKey, roles...)
}

// RequireRolesWithKey is RequireRoles for a custom context key.
func RequireRolesWithKey(contextKey string, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := c.Locals(contextKey).(*Session)
		if !ok || session == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "please login to access this resource",
			})
		}

		for _, role := range roles {
			if session.Role == role {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "role is not allowed to access this resource",
		})
	}
}

// staleToken reports whether the token predates the last password change.
// Comparison is strict: a token issued the same instant stays valid.
func staleToken(session *Session, claims AuthClaims) bool {
	if session.PasswordChangedAt == nil {
		return false
	}
	issuedAt := claims.IssuedAt()
	if issuedAt.IsZero() {
		return true
	}
	return session.PasswordChangedAt.After(issuedAt)
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Validator == nil {
		panic("AUTH: guard middleware configuration: Validator is required.")
	}

	if cfg.Sessions == nil {
		panic("AUTH: guard middleware configuration: Sessions is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ErrorHandler == nil {
		// missing, malformed and expired tokens all read as "not logged in"
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		}
	}

	return cfg
}

func extractRawToken(c *fiber.Ctx, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(c)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

// TokenExtractor pulls a raw token string out of a request.
type TokenExtractor func(c *fiber.Ctx) (string, error)

func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// cookie:access_token,header:Authorization,query:auth_token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

// tokenFromHeader returns a function that extracts the token from the request header.
func tokenFromHeader(header string, authScheme string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		authScheme = strings.TrimSpace(authScheme)
		l := len(authScheme)
		if l == 0 {
			return "", ErrJWTMissingOrMalformed
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// tokenFromQuery returns a function that extracts the token from the query string.
func tokenFromQuery(param string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts the token from the named cookie.
func tokenFromCookie(name string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
