package config

import (
	"errors"
	"time"

	httpError "wallet-engine/src/pkg/http-error"
	"wallet-engine/src/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
)

func NewFiber(config *viper.Viper) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      config.GetString("app.name"),
		ErrorHandler: NewErrorHandler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})
}

// NewErrorHandler renders unhandled errors (unknown routes, panics turned
// into errors) with the same envelope as the controllers.
func NewErrorHandler() fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		e := httpError.NewInternalServerError()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			e.Code = fe.Code
			e.Status = fe.Message
		}
		e.Message = err.Error()
		return utils.ResponseError(e, ctx)
	}
}
