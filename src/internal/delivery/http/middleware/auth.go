package middleware

import (
	"strings"

	httpError "wallet-engine/src/pkg/http-error"
	"wallet-engine/src/pkg/token"
	"wallet-engine/src/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
)

const userKey = "auth_user"

// VerifyBearer checks the HS256 bearer token against auth.jwt_secret and
// rejects tokens issued for a different wallet than owner(). With no secret
// configured every request passes.
func VerifyBearer(config *viper.Viper, owner func() string) fiber.Handler {
	secret := config.GetString("auth.jwt_secret")
	return func(ctx *fiber.Ctx) error {
		if secret == "" {
			return ctx.Next()
		}

		header := ctx.Get(fiber.HeaderAuthorization)
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			e := httpError.NewUnauthorized()
			e.Message = "missing bearer token"
			return utils.ResponseError(e, ctx)
		}
		claim, err := token.Parse(secret, parts[1])
		if err != nil {
			e := httpError.NewUnauthorized()
			e.Message = "invalid or expired token"
			return utils.ResponseError(e, ctx)
		}
		if current := owner(); current != "" && current != claim.Metadata.UserID {
			e := httpError.NewForbidden()
			e.Message = "token belongs to another wallet"
			return utils.ResponseError(e, ctx)
		}

		ctx.Locals(userKey, claim)
		return ctx.Next()
	}
}

// GetUser returns the verified claim, or nil when authentication is off.
func GetUser(ctx *fiber.Ctx) *token.Claim {
	claim, _ := ctx.Locals(userKey).(*token.Claim)
	return claim
}
