package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type RegisterUserMessage struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	OnResponse func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserResponse carries the activation token back to the caller.
// The activation code itself only leaves through the mailer.
type RegisterUserResponse struct {
	ActivationToken string `json:"activation_token"`
}

type RegisterUserHandler struct {
	repo       RepositoryManager
	activation *ActivationService
}

func NewRegisterUserHandler(repo RepositoryManager, activation *ActivationService) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:       repo,
		activation: activation,
	}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Name == "" || event.Email == "" || event.Password == "" {
		return NewValidationError("name, email and password are required")
	}

	if !ValidEmail(event.Email) {
		return NewValidationError("please enter a valid email")
	}

	// fail fast on taken emails, the activation step re-checks anyway
	if _, err := h.repo.Users().GetByIdentifier(ctx, event.Email); err == nil {
		return NewDuplicateEmailError(event.Email)
	} else if !repository.IsRecordNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}

	activation, err := h.activation.CreateActivation(ctx, PendingRegistration{
		Name:     event.Name,
		Email:    event.Email,
		Password: event.Password,
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create activation")
	}

	if event.OnResponse != nil {
		event.OnResponse(&RegisterUserResponse{
			ActivationToken: activation.Token,
		})
	}

	return nil
}
