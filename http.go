package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// SetAuthCookies writes the access and refresh token cookies according to
// the token service's cookie policy.
func SetAuthCookies(c *fiber.Ctx, tokens TokenService, result *AuthResult) {
	setTokenCookie(c, tokens.CookieOptions(TokenAccess), result.AccessToken)
	setTokenCookie(c, tokens.CookieOptions(TokenRefresh), result.RefreshToken)
}

// ClearAuthCookies expires both token cookies. MaxAge of one second
// matches what browsers need to drop them right away.
func ClearAuthCookies(c *fiber.Ctx, tokens TokenService) {
	clearTokenCookie(c, tokens.CookieOptions(TokenAccess))
	clearTokenCookie(c, tokens.CookieOptions(TokenRefresh))
}

func setTokenCookie(c *fiber.Ctx, opts CookieOptions, value string) {
	c.Cookie(&fiber.Cookie{
		Name:     opts.Name,
		Value:    value,
		Expires:  opts.Expires,
		MaxAge:   opts.MaxAge,
		HTTPOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

func clearTokenCookie(c *fiber.Ctx, opts CookieOptions) {
	c.Cookie(&fiber.Cookie{
		Name:     opts.Name,
		Value:    "",
		Expires:  time.Now().Add(time.Second),
		MaxAge:   1,
		HTTPOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// RenderError writes the JSON error envelope for the given error, mapping
// it through the module's error taxonomy. Unexpected errors collapse into
// a bare 500 so internals never leak.
func RenderError(c *fiber.Ctx, err error) error {
	status := ErrorStatusCode(err)

	message := "Internal server error"
	if status != fiber.StatusInternalServerError {
		message = err.Error()
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			message = richErr.Message
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
