package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// CookieOptions describe how a token should ride in its HTTP cookie.
type CookieOptions struct {
	Name     string
	Expires  time.Time
	MaxAge   int
	HTTPOnly bool
	Secure   bool
	SameSite string
}

const (
	// AccessTokenCookie is the cookie name for the access token.
	AccessTokenCookie = "access_token"
	// RefreshTokenCookie is the cookie name for the refresh token.
	RefreshTokenCookie = "refresh_token"
)

// TokenServiceImpl implements the TokenService interface. Access, refresh
// and activation tokens each get their own secret so one leaked key never
// validates another kind.
type TokenServiceImpl struct {
	accessKey     []byte
	refreshKey    []byte
	activationKey []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	activationTTL time.Duration
	issuer        string
	audience      jwt.ClaimStrings
	production    bool
	logger        Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(config Config) (TokenService, error) {
	if config == nil {
		return nil, errors.New("token service requires a config", errors.CategoryBadInput)
	}

	if config.GetAccessSigningKey() == "" || config.GetRefreshSigningKey() == "" {
		return nil, errors.New("token service requires access and refresh signing keys", errors.CategoryBadInput)
	}

	ts := &TokenServiceImpl{
		accessKey:     []byte(config.GetAccessSigningKey()),
		refreshKey:    []byte(config.GetRefreshSigningKey()),
		activationKey: []byte(config.GetActivationSigningKey()),
		accessTTL:     config.GetAccessTokenTTL(),
		refreshTTL:    config.GetRefreshTokenTTL(),
		activationTTL: config.GetActivationTokenTTL(),
		issuer:        config.GetIssuer(),
		audience:      config.GetAudience(),
		production:    config.GetProduction(),
		logger:        defLogger{},
	}

	if ts.accessTTL <= 0 {
		ts.accessTTL = 5 * time.Minute
	}
	if ts.refreshTTL <= 0 {
		ts.refreshTTL = 3 * 24 * time.Hour
	}
	if ts.activationTTL <= 0 {
		ts.activationTTL = 5 * time.Minute
	}

	return ts, nil
}

// WithLogger overrides the default logger
func (ts *TokenServiceImpl) WithLogger(logger Logger) *TokenServiceImpl {
	if logger != nil {
		ts.logger = logger
	}
	return ts
}

func (ts *TokenServiceImpl) keyAndTTL(kind TokenKind) ([]byte, time.Duration, error) {
	switch kind {
	case TokenAccess:
		return ts.accessKey, ts.accessTTL, nil
	case TokenRefresh:
		return ts.refreshKey, ts.refreshTTL, nil
	default:
		return nil, 0, errors.New("unknown token kind", errors.CategoryBadInput).
			WithMetadata(map[string]any{"kind": string(kind)})
	}
}

// IssueToken mints a token of the given kind carrying only the user id.
func (ts *TokenServiceImpl) IssueToken(kind TokenKind, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required to issue a token", errors.CategoryBadInput)
	}

	key, ttl, err := ts.keyAndTTL(kind)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   userID,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID: userID,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.sign(claims, key)
}

func (ts *TokenServiceImpl) sign(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string, kind TokenKind) (*AccessClaims, error) {
	key, _, err := ts.keyAndTTL(kind)
	if err != nil {
		return nil, err
	}

	token, err := ts.parse(tokenString, &AccessClaims{}, key)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AccessClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrUnableToDecodeSession
}

// SignActivationClaims signs the pending registration with the activation
// secret and the short activation TTL.
func (ts *TokenServiceImpl) SignActivationClaims(claims *ActivationClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	claims.Issuer = ts.issuer
	claims.Subject = claims.User.Email
	claims.Audience = ts.audience
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ts.activationTTL))

	ensureTokenID(&claims.RegisteredClaims)

	return ts.sign(claims, ts.activationKey)
}

// ValidateActivation parses and validates an activation token.
func (ts *TokenServiceImpl) ValidateActivation(tokenString string) (*ActivationClaims, error) {
	token, err := ts.parse(tokenString, &ActivationClaims{}, ts.activationKey)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*ActivationClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode activation claims")
	return nil, ErrUnableToDecodeSession
}

func (ts *TokenServiceImpl) parse(tokenString string, claims jwt.Claims, key []byte) (*jwt.Token, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	return token, nil
}

// CookieOptions returns the cookie policy for the given token kind. The
// Secure flag tracks the production toggle, everything else is fixed:
// HTTPOnly, SameSite Lax, MaxAge equal to the token TTL.
func (ts *TokenServiceImpl) CookieOptions(kind TokenKind) CookieOptions {
	name := AccessTokenCookie
	ttl := ts.accessTTL
	if kind == TokenRefresh {
		name = RefreshTokenCookie
		ttl = ts.refreshTTL
	}

	return CookieOptions{
		Name:     name,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl / time.Second),
		HTTPOnly: true,
		Secure:   ts.production,
		SameSite: "Lax",
	}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
