package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	httpError "wallet-engine/src/pkg/http-error"
	"wallet-engine/src/pkg/log"
	"wallet-engine/src/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
)

const HeaderWebhookSignature = "X-Webhook-Signature"

// VerifyWebhookSignature accepts provider callbacks only when the
// X-Webhook-Signature header carries the hex HMAC-SHA256 of the raw body
// keyed with settlement.webhook_secret. Without a secret every callback is
// refused.
func VerifyWebhookSignature(config *viper.Viper) fiber.Handler {
	secret := []byte(config.GetString("settlement.webhook_secret"))
	return func(ctx *fiber.Ctx) error {
		if len(secret) == 0 {
			e := httpError.NewForbidden()
			e.Message = "settlement callbacks are disabled"
			return utils.ResponseError(e, ctx)
		}
		if !hmac.Equal([]byte(ctx.Get(HeaderWebhookSignature)), []byte(SignWebhook(secret, ctx.Body()))) {
			log.GetLogger().Error("middleware", "rejected settlement callback", "VerifyWebhookSignature", ctx.IP())
			e := httpError.NewUnauthorized()
			e.Message = "invalid signature"
			return utils.ResponseError(e, ctx)
		}
		return ctx.Next()
	}
}

// SignWebhook returns the signature a provider sends for body.
func SignWebhook(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
