package auth

import (
	"github.com/gofiber/fiber/v2"
)

// JWTMiddleware validates bearer access tokens and stores operator_id in
// locals. When svc has no operator store the middleware lets every request
// through.
func JWTMiddleware(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !svc.Enabled() {
			return c.Next()
		}
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		operatorID, err := svc.ValidateAccessToken(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		c.Locals("operator_id", operatorID)
		return c.Next()
	}
}
