package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// AuthResult is what a successful login, social auth, or refresh hands
// back: the cached snapshot plus the freshly minted token pair.
type AuthResult struct {
	User         *SessionSnapshot
	AccessToken  string
	RefreshToken string
}

// SocialProfile is the identity a trusted social provider vouched for.
type SocialProfile struct {
	Name      string
	Email     string
	AvatarURL string
}

// Auther drives the login, refresh and logout transitions. Every path that
// ends in "logged in" funnels through issueSession so the token pair and
// the cached session never drift apart.
type Auther struct {
	repo     RepositoryManager
	tokens   TokenService
	sessions SessionCache
	logger   Logger
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(repo RepositoryManager, tokens TokenService, sessions SessionCache) *Auther {
	return &Auther{
		repo:     repo,
		tokens:   tokens,
		sessions: sessions,
		logger:   defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// TokenService returns the TokenService instance used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies the email and password pair and establishes a session.
// Unknown email and wrong password fail identically so callers cannot
// probe which emails are registered.
func (s *Auther) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, NewValidationError("please enter email and password")
	}

	user, err := s.repo.Users().GetWithPassword(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, NewInvalidCredentialsError()
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during login")
	}

	if !user.HasPassword() {
		// social accounts have no password to compare
		return nil, NewInvalidCredentialsError()
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, NewInvalidCredentialsError()
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to compare password")
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login for user %s", user.ID)

	return result, nil
}

// SocialAuth logs in the identity a social provider already verified. An
// existing account with that email wins and is used as is, otherwise a
// password-less account is created. Either way exactly one token pair is
// issued.
func (s *Auther) SocialAuth(ctx context.Context, profile SocialProfile) (*AuthResult, error) {
	if profile.Email == "" {
		return nil, NewValidationError("social profile requires an email")
	}

	user, err := s.repo.Users().GetByIdentifier(ctx, profile.Email)
	if err != nil {
		if !repository.IsRecordNotFound(err) {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during social auth")
		}

		user, err = s.repo.Users().Create(ctx, &User{
			ID:        deterministicUserID(profile.Email),
			Name:      profile.Name,
			Email:     profile.Email,
			AvatarURL: profile.AvatarURL,
			Role:      RoleUser,
		})
		if err != nil {
			return nil, err
		}

		s.logger.Info("created social account for %s", profile.Email)
	}

	return s.issueSession(ctx, user)
}

// Refresh trades a refresh token for a brand new token pair. The session
// record must still exist: a valid refresh token after logout is dead.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.Validate(refreshToken, TokenRefresh)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.sessions.Get(ctx, claims.UserID())
	if err != nil {
		return nil, err
	}

	if snapshot == nil {
		return nil, NewUnauthorizedError("please login to access this resource")
	}

	accessToken, err := s.tokens.IssueToken(TokenAccess, snapshot.ID)
	if err != nil {
		return nil, err
	}

	newRefreshToken, err := s.tokens.IssueToken(TokenRefresh, snapshot.ID)
	if err != nil {
		return nil, err
	}

	// re-put to extend the session alongside the new tokens
	if err := s.sessions.Put(ctx, snapshot.ID, snapshot); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         snapshot,
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

// Logout removes the session record, which is what ends the login. Tokens
// still in the wild fail the session check from here on. Logging out twice
// is fine.
func (s *Auther) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return NewValidationError("logout requires a user id")
	}

	if err := s.sessions.Delete(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("logout for user %s", userID)

	return nil
}

func (s *Auther) issueSession(ctx context.Context, user *User) (*AuthResult, error) {
	snapshot := NewSessionSnapshot(user)

	accessToken, err := s.tokens.IssueToken(TokenAccess, snapshot.ID)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokens.IssueToken(TokenRefresh, snapshot.ID)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Put(ctx, snapshot.ID, snapshot); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         snapshot,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
