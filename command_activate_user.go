package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type ActivateUserMessage struct {
	Token      string `json:"activation_token"`
	Code       string `json:"activation_code"`
	OnResponse func(resp *ActivateUserResponse)
}

func (e ActivateUserMessage) Type() string { return "user.activate" }

type ActivateUserResponse struct {
	User *User `json:"user"`
}

type ActivateUserHandler struct {
	activation *ActivationService
}

func NewActivateUserHandler(activation *ActivationService) *ActivateUserHandler {
	return &ActivateUserHandler{activation: activation}
}

func (h *ActivateUserHandler) Execute(ctx context.Context, event ActivateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateUserHandler) execute(ctx context.Context, event ActivateUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Token == "" || event.Code == "" {
		return NewValidationError("activation token and code are required")
	}

	user, err := h.activation.Activate(ctx, event.Token, event.Code)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user activation failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(&ActivateUserResponse{User: user})
	}

	return nil
}
