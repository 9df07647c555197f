package auth

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UpdateUserInfoMessage struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	OnResponse func(resp *UpdateUserResponse)
}

func (e UpdateUserInfoMessage) Type() string { return "user.update_info" }

// UpdateUserResponse returns the user as persisted after the mutation.
type UpdateUserResponse struct {
	User *User `json:"user"`
}

// UpdateUserInfoHandler mutates profile fields and rewrites the session
// snapshot so the cache never serves stale profile data.
type UpdateUserInfoHandler struct {
	repo     RepositoryManager
	sessions SessionCache
}

func NewUpdateUserInfoHandler(repo RepositoryManager, sessions SessionCache) *UpdateUserInfoHandler {
	return &UpdateUserInfoHandler{
		repo:     repo,
		sessions: sessions,
	}
}

func (h *UpdateUserInfoHandler) Execute(ctx context.Context, event UpdateUserInfoMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user info update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateUserInfoHandler) execute(ctx context.Context, event UpdateUserInfoMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	id, err := uuid.Parse(event.UserID)
	if err != nil {
		return NewValidationError("invalid user id")
	}

	if event.Name == "" && event.Email == "" {
		return NewValidationError("nothing to update")
	}

	if event.Email != "" && !ValidEmail(event.Email) {
		return NewValidationError("please enter a valid email")
	}

	var user *User
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.repo.Users().GetByIdentifierTx(ctx, tx, id.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return NewNotFoundError("user not found")
			}
			return err
		}

		if event.Email != "" && event.Email != record.Email {
			if _, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.Email); err == nil {
				return NewDuplicateEmailError(event.Email)
			} else if !repository.IsRecordNotFound(err) {
				return err
			}
			record.Email = event.Email
		}

		if event.Name != "" {
			record.Name = event.Name
		}

		updated, err := h.repo.Users().UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
		if err != nil {
			return err
		}

		user = updated
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user info update failed")
	}

	if err := refreshSession(ctx, h.sessions, user); err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&UpdateUserResponse{User: user})
	}

	return nil
}

type UpdatePasswordMessage struct {
	UserID      string `json:"user_id"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
	OnResponse  func(resp *UpdateUserResponse)
}

func (e UpdatePasswordMessage) Type() string { return "user.update_password" }

// UpdatePasswordHandler verifies the old password before swapping in the
// new hash. The change stamps password_changed_at, which kills access
// tokens minted before it, and rewrites the session snapshot.
type UpdatePasswordHandler struct {
	repo     RepositoryManager
	sessions SessionCache
}

func NewUpdatePasswordHandler(repo RepositoryManager, sessions SessionCache) *UpdatePasswordHandler {
	return &UpdatePasswordHandler{
		repo:     repo,
		sessions: sessions,
	}
}

func (h *UpdatePasswordHandler) Execute(ctx context.Context, event UpdatePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdatePasswordHandler) execute(ctx context.Context, event UpdatePasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	id, err := uuid.Parse(event.UserID)
	if err != nil {
		return NewValidationError("invalid user id")
	}

	if event.OldPassword == "" || event.NewPassword == "" {
		return NewValidationError("please enter old and new password")
	}

	hash, err := HashPassword(event.NewPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	var user *User
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.repo.Users().GetWithPasswordTx(ctx, tx, id.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return NewNotFoundError("user not found")
			}
			return err
		}

		if !record.HasPassword() {
			return NewValidationError("social accounts have no password to change")
		}

		if err := ComparePasswordAndHash(event.OldPassword, record.PasswordHash); err != nil {
			return NewInvalidCredentialsError()
		}

		updated, err := h.repo.Users().UpdatePasswordTx(ctx, tx, id, hash)
		if err != nil {
			return err
		}

		user = updated
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password update failed")
	}

	if err := refreshSession(ctx, h.sessions, user); err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&UpdateUserResponse{User: user})
	}

	return nil
}

type UpdateAvatarMessage struct {
	UserID      string `json:"user_id"`
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
	OnResponse  func(resp *UpdateUserResponse)
}

func (e UpdateAvatarMessage) Type() string { return "user.update_avatar" }

// UpdateAvatarHandler replaces the profile picture: the previous object is
// destroyed before the new one is uploaded, then the record and session
// snapshot are rewritten.
type UpdateAvatarHandler struct {
	repo     RepositoryManager
	sessions SessionCache
	storage  MediaStorage
	logger   Logger
}

func NewUpdateAvatarHandler(repo RepositoryManager, sessions SessionCache, storage MediaStorage) *UpdateAvatarHandler {
	return &UpdateAvatarHandler{
		repo:     repo,
		sessions: sessions,
		storage:  storage,
		logger:   defLogger{},
	}
}

// WithLogger overrides the default logger
func (h *UpdateAvatarHandler) WithLogger(logger Logger) *UpdateAvatarHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *UpdateAvatarHandler) Execute(ctx context.Context, event UpdateAvatarMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during avatar update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateAvatarHandler) execute(ctx context.Context, event UpdateAvatarMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	id, err := uuid.Parse(event.UserID)
	if err != nil {
		return NewValidationError("invalid user id")
	}

	if len(event.Data) == 0 {
		return NewValidationError("avatar image is required")
	}

	record, err := h.repo.Users().GetByIdentifier(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return NewNotFoundError("user not found")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user")
	}

	if record.AvatarPublicID != "" {
		if err := h.storage.Remove(ctx, record.AvatarPublicID); err != nil {
			// old object may already be gone, not worth failing the update
			h.logger.Warn("failed to remove previous avatar %s: %v", record.AvatarPublicID, err)
		}
	}

	key := fmt.Sprintf("avatars/%s/%s", record.ID, uuid.NewString())
	url, err := h.storage.Upload(ctx, key, event.Data, event.ContentType)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to upload avatar")
	}

	record.AvatarPublicID = key
	record.AvatarURL = url

	user, err := h.repo.Users().Update(ctx, record, repository.UpdateByID(id.String()))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "avatar update failed")
	}

	if err := refreshSession(ctx, h.sessions, user); err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&UpdateUserResponse{User: user})
	}

	return nil
}

// refreshSession overwrites the cached snapshot only when the user still
// has a live session. Profile edits must not log anyone in.
func refreshSession(ctx context.Context, sessions SessionCache, user *User) error {
	if sessions == nil || user == nil {
		return nil
	}

	id := user.ID.String()

	existing, err := sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	return sessions.Put(ctx, id, NewSessionSnapshot(user))
}
