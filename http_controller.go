package auth

import (
	"encoding/base64"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
)

// AuthControllerRoutes are the endpoint paths the controller mounts.
type AuthControllerRoutes struct {
	Register       string
	Activate       string
	Login          string
	Logout         string
	Refresh        string
	Me             string
	SocialAuth     string
	UpdateInfo     string
	UpdatePassword string
	UpdateAvatar   string
}

type AuthController struct {
	Debug      bool
	Logger     Logger
	Repo       RepositoryManager
	Auther     *Auther
	Activation *ActivationService
	Sessions   SessionCache
	Storage    MediaStorage
	Routes     *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:  defLogger{},
		Storage: NoopMediaStorage{},
		Routes: &AuthControllerRoutes{
			Register:       "/register",
			Activate:       "/activate-user",
			Login:          "/login",
			Logout:         "/logout",
			Refresh:        "/refresh",
			Me:             "/me",
			SocialAuth:     "/social-auth",
			UpdateInfo:     "/update-user-info",
			UpdatePassword: "/update-password",
			UpdateAvatar:   "/update-profile-picture",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}

	if c.Activation == nil {
		panic("Missing ActivationService in auth controller...")
	}

	if c.Sessions == nil {
		panic("Missing SessionCache in auth controller...")
	}

	return c
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *Auther) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerActivation(activation *ActivationService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Activation = activation
		return c
	}
}

func WithControllerSessions(sessions SessionCache) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Sessions = sessions
		return c
	}
}

func WithControllerStorage(storage MediaStorage) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Storage = storage
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// RegisterAuthRoutes mounts the auth endpoints. Routes that require a live
// session take the guard handler built by the host application.
func RegisterAuthRoutes(app fiber.Router, guard fiber.Handler, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegisterPost)
	app.Post(controller.Routes.Activate, controller.ActivatePost)
	app.Post(controller.Routes.Login, controller.LoginPost)
	app.Post(controller.Routes.SocialAuth, controller.SocialAuthPost)
	app.Get(controller.Routes.Refresh, controller.RefreshGet)

	app.Get(controller.Routes.Logout, guard, controller.LogoutGet)
	app.Get(controller.Routes.Me, guard, controller.MeGet)
	app.Patch(controller.Routes.UpdateInfo, guard, controller.UpdateInfoPatch)
	app.Patch(controller.Routes.UpdatePassword, guard, controller.UpdatePasswordPatch)
	app.Patch(controller.Routes.UpdateAvatar, guard, controller.UpdateAvatarPatch)

	return controller
}

// RegistrationPayload is the register request body
type RegistrationPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r RegistrationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *AuthController) RegisterPost(c *fiber.Ctx) error {
	payload := new(RegistrationPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register parse payload: %v", err)
		return a.renderError(c, NewValidationError("failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return a.renderError(c, NewValidationError(err.Error()))
	}

	var res *RegisterUserResponse
	req := RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(resp *RegisterUserResponse) {
			res = resp
		},
	}

	handler := NewRegisterUserHandler(a.Repo, a.Activation)
	if err := handler.Execute(c.UserContext(), req); err != nil {
		a.Logger.Error("register user error: %v", err)
		return a.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":         true,
		"message":         "Please check your email to activate your account",
		"activationToken": res.ActivationToken,
	})
}

// ActivationPayload is the activate-user request body
type ActivationPayload struct {
	Token string `json:"activation_token"`
	Code  string `json:"activation_code"`
}

// Validate will run validation rules
func (r ActivationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Code, validation.Required, validation.Length(4, 4), is.Digit),
	)
}

func (a *AuthController) ActivatePost(c *fiber.Ctx) error {
	payload := new(ActivationPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("activate parse payload: %v", err)
		return a.renderError(c, NewValidationError("failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return a.renderError(c, NewValidationError(err.Error()))
	}

	var res *ActivateUserResponse
	req := ActivateUserMessage{
		Token: payload.Token,
		Code:  payload.Code,
		OnResponse: func(resp *ActivateUserResponse) {
			res = resp
		},
	}

	handler := NewActivateUserHandler(a.Activation)
	if err := handler.Execute(c.UserContext(), req); err != nil {
		a.Logger.Error("activate user error: %v", err)
		return a.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    res.User,
	})
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return a.renderError(c, NewValidationError("failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return a.renderError(c, NewValidationError(err.Error()))
	}

	result, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return a.renderError(c, err)
	}

	return a.sendTokens(c, fiber.StatusOK, result)
}

// SocialAuthPayload is the social-auth request body. The identity arrives
// already verified by the upstream provider integration.
type SocialAuthPayload struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// Validate will run validation rules
func (r SocialAuthPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) SocialAuthPost(c *fiber.Ctx) error {
	payload := new(SocialAuthPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("social auth parse payload: %v", err)
		return a.renderError(c, NewValidationError("failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return a.renderError(c, NewValidationError(err.Error()))
	}

	result, err := a.Auther.SocialAuth(c.UserContext(), SocialProfile{
		Name:      payload.Name,
		Email:     payload.Email,
		AvatarURL: payload.Avatar,
	})
	if err != nil {
		return a.renderError(c, err)
	}

	return a.sendTokens(c, fiber.StatusOK, result)
}

func (a *AuthController) RefreshGet(c *fiber.Ctx) error {
	refreshToken := c.Cookies(RefreshTokenCookie)
	if refreshToken == "" {
		return a.renderError(c, NewUnauthorizedError("could not refresh token"))
	}

	result, err := a.Auther.Refresh(c.UserContext(), refreshToken)
	if err != nil {
		return a.renderError(c, err)
	}

	return a.sendTokens(c, fiber.StatusOK, result)
}

func (a *AuthController) LogoutGet(c *fiber.Ctx) error {
	session, ok := FromContext(c.UserContext())
	if !ok {
		return a.renderError(c, NewUnauthorizedError("please login to access this resource"))
	}

	if err := a.Auther.Logout(c.UserContext(), session.ID); err != nil {
		return a.renderError(c, err)
	}

	ClearAuthCookies(c, a.Auther.TokenService())

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (a *AuthController) MeGet(c *fiber.Ctx) error {
	session, ok := FromContext(c.UserContext())
	if !ok {
		return a.renderError(c, NewUnauthorizedError("please login to access this resource"))
	}

	user, err := a.Repo.Users().GetByIdentifier(c.UserContext(), session.ID)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// UpdateInfoPayload is the update-user-info request body
type UpdateInfoPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate will run validation rules
func (r UpdateInfoPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(1, 200)),
		validation.Field(&r.Email, is.Email),
	)
}

func (a *AuthController) UpdateInfoPatch(c *fiber.Ctx) error {
	session, ok := FromContext(c.UserContext())
	if !ok {
		return a.renderError(c, NewUnauthorizedError("please login to access this resource"))
	}

	payload := new(UpdateInfoPayload)
	if err := c.BodyParser(payload); err != nil {
		return a.renderError(c, NewValidationError("failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return a.renderError(c, NewValidationError(err.Error()))
	}

	var res *UpdateUserResponse
	req := UpdateUserInfoMessage{
		UserID: session.ID,
		Name:   payload.Name,
		Email:  payload.Email,
		OnResponse: func(resp *UpdateUserResponse) {
			res = resp
		},
	}

	handler := NewUpdateUserInfoHandler(a.Repo, a.Sessions)
	if err := handler.Execute(c.UserContext(), req); err != nil {
		a.Logger.Error("update user info error: %v", err)
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    res.User,
	})
}

// UpdatePasswordPayload is the update-password request body
type UpdatePasswordPayload struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Validate will run validation rules
func (r UpdatePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(6, 100)),
	)
}

func (a *AuthController) UpdatePasswordPatch(c *fiber.Ctx) error {
	session, ok := FromContext(c.UserContext())
	if !ok {
		return a.renderError(c, NewUnauthorizedError("please login to access this resource"))
	}

	payload := new(UpdatePasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return a.renderError(c, NewValidationError("failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return a.renderError(c, NewValidationError(err.Error()))
	}

	var res *UpdateUserResponse
	req := UpdatePasswordMessage{
		UserID:      session.ID,
		OldPassword: payload.OldPassword,
		NewPassword: payload.NewPassword,
		OnResponse: func(resp *UpdateUserResponse) {
			res = resp
		},
	}

	handler := NewUpdatePasswordHandler(a.Repo, a.Sessions)
	if err := handler.Execute(c.UserContext(), req); err != nil {
		a.Logger.Error("update password error: %v", err)
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    res.User,
	})
}

// UpdateAvatarPayload is the update-profile-picture request body, carrying
// the image as a base64 string or data URI.
type UpdateAvatarPayload struct {
	Avatar      string `json:"avatar"`
	ContentType string `json:"content_type"`
}

// Validate will run validation rules
func (r UpdateAvatarPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Avatar, validation.Required),
	)
}

func (a *AuthController) UpdateAvatarPatch(c *fiber.Ctx) error {
	session, ok := FromContext(c.UserContext())
	if !ok {
		return a.renderError(c, NewUnauthorizedError("please login to access this resource"))
	}

	payload := new(UpdateAvatarPayload)
	if err := c.BodyParser(payload); err != nil {
		return a.renderError(c, NewValidationError("failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return a.renderError(c, NewValidationError(err.Error()))
	}

	data, contentType, err := decodeAvatar(payload.Avatar)
	if err != nil {
		return a.renderError(c, NewValidationError("avatar is not valid base64 image data"))
	}
	if payload.ContentType != "" {
		contentType = payload.ContentType
	}

	var res *UpdateUserResponse
	req := UpdateAvatarMessage{
		UserID:      session.ID,
		Data:        data,
		ContentType: contentType,
		OnResponse: func(resp *UpdateUserResponse) {
			res = resp
		},
	}

	handler := NewUpdateAvatarHandler(a.Repo, a.Sessions, a.Storage)
	if err := handler.Execute(c.UserContext(), req); err != nil {
		a.Logger.Error("update avatar error: %v", err)
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    res.User,
	})
}

// renderError is RenderError plus debug behavior: with Debug set, internal
// failures keep their message instead of the generic 500 envelope.
func (a *AuthController) renderError(c *fiber.Ctx, err error) error {
	if a.Debug && ErrorStatusCode(err) == fiber.StatusInternalServerError {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}
	return RenderError(c, err)
}

// sendTokens writes the cookie pair and the JSON envelope. The refresh
// token only ever travels in its cookie.
func (a *AuthController) sendTokens(c *fiber.Ctx, status int, result *AuthResult) error {
	SetAuthCookies(c, a.Auther.TokenService(), result)

	return c.Status(status).JSON(fiber.Map{
		"success":     true,
		"user":        result.User,
		"accessToken": result.AccessToken,
	})
}

// decodeAvatar accepts raw base64 or a data URI and returns the image
// bytes plus the content type when the URI declares one.
func decodeAvatar(avatar string) ([]byte, string, error) {
	contentType := ""

	if strings.HasPrefix(avatar, "data:") {
		parts := strings.SplitN(avatar, ",", 2)
		if len(parts) == 2 {
			meta := strings.TrimPrefix(parts[0], "data:")
			contentType = strings.TrimSuffix(strings.SplitN(meta, ";", 2)[0], ";")
			avatar = parts[1]
		}
	}

	data, err := base64.StdEncoding.DecodeString(avatar)
	if err != nil {
		return nil, "", err
	}

	return data, contentType, nil
}
