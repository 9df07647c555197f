package auth

import (
	"context"

	"github.com/goliatone/go-lms-auth/middleware/guard"
)

// GuardValidator adapts the token service's access-token path to the guard
// middleware's mirrored TokenValidator interface.
func GuardValidator(tokens TokenService) guard.TokenValidator {
	return guard.TokenValidatorFunc(func(tokenString string) (guard.AuthClaims, error) {
		return tokens.Validate(tokenString, TokenAccess)
	})
}

// GuardSessions adapts the session cache to the guard middleware's mirrored
// SessionReader interface.
func GuardSessions(sessions SessionCache) guard.SessionReader {
	return guard.SessionReaderFunc(func(ctx context.Context, userID string) (*guard.Session, error) {
		snapshot, err := sessions.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		if snapshot == nil {
			return nil, nil
		}
		return &guard.Session{
			ID:                snapshot.ID,
			Name:              snapshot.Name,
			Email:             snapshot.Email,
			Role:              string(snapshot.Role),
			IsVerified:        snapshot.IsVerified,
			PasswordChangedAt: snapshot.PasswordChangedAt,
		}, nil
	})
}

// ContextEnricherAdapter stores the guard session in the standard context
// as a SessionSnapshot for downstream handlers using FromContext.
func ContextEnricherAdapter(c context.Context, session *guard.Session) context.Context {
	if session == nil {
		return c
	}

	return WithContext(c, &SessionSnapshot{
		ID:                session.ID,
		Name:              session.Name,
		Email:             session.Email,
		Role:              UserRole(session.Role),
		IsVerified:        session.IsVerified,
		PasswordChangedAt: session.PasswordChangedAt,
	})
}

// NewGuard wires the token service and session cache into a ready to mount
// authentication middleware.
func NewGuard(tokens TokenService, sessions SessionCache) guard.Config {
	return guard.Config{
		Validator:       GuardValidator(tokens),
		Sessions:        GuardSessions(sessions),
		ContextEnricher: ContextEnricherAdapter,
	}
}
