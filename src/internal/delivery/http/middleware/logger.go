package middleware

import (
	"fmt"
	"time"

	"wallet-engine/src/pkg/log"

	"github.com/gofiber/fiber/v2"
)

const slowRequest = time.Second

func NewLogger() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()
		elapsed := time.Since(start)

		logger := log.GetLogger()
		meta := fmt.Sprintf("method=%s path=%s status=%d latency=%s", ctx.Method(), ctx.Path(), ctx.Response().StatusCode(), elapsed)
		if elapsed > slowRequest {
			logger.Slow("http", "request served", "middleware.logger", meta)
		} else {
			logger.Info("http", "request served", "middleware.logger", meta)
		}
		return err
	}
}
