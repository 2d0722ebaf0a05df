package route

import (
	"wallet-engine/src/internal/delivery/http"
	"wallet-engine/src/internal/delivery/http/middleware"

	"github.com/gofiber/fiber/v2"
)

type RouteConfig struct {
	App               *fiber.App
	WalletController  *http.WalletController
	PaymentController *http.PaymentController
	PayoutController  *http.PayoutController
	SyncController    *http.SyncController
	AuthMiddleware    fiber.Handler
	WebhookMiddleware fiber.Handler
}

func (c *RouteConfig) Setup() {
	c.App.Use(middleware.NewLogger())
	c.App.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.SendString("OK")
	})
	c.SetupGuestRoute()
	c.SetupAuthRoute()
}

func (c *RouteConfig) SetupGuestRoute() {
	callbacks := []fiber.Handler{c.PaymentController.Callback}
	if c.WebhookMiddleware != nil {
		callbacks = append([]fiber.Handler{c.WebhookMiddleware}, callbacks...)
	}
	c.App.Post("/payments/v1/callbacks", callbacks...)
}

func (c *RouteConfig) SetupAuthRoute() {
	if c.AuthMiddleware != nil {
		c.App.Use(c.AuthMiddleware)
	}
	c.App.Get("/wallet/v1/balance", c.WalletController.GetBalance)
	c.App.Post("/wallet/v1/balance", c.WalletController.UpdateBalance)
	c.App.Get("/wallet/v1/transactions", c.WalletController.ListTransactions)
	c.App.Get("/wallet/v1/transactions/:id", c.WalletController.GetTransaction)

	c.App.Post("/payments/v1/rides", c.PaymentController.ProcessRide)
	c.App.Get("/payments/v1/methods", c.PaymentController.ListMethods)
	c.App.Post("/payments/v1/methods", c.PaymentController.AddMethod)
	c.App.Delete("/payments/v1/methods/:id", c.PaymentController.RemoveMethod)
	c.App.Patch("/payments/v1/methods/:id", c.PaymentController.UpdateMethod)

	c.App.Get("/payouts/v1", c.PayoutController.List)
	c.App.Post("/payouts/v1", c.PayoutController.Request)
	c.App.Post("/payouts/v1/:id/status", c.PayoutController.UpdateStatus)

	c.App.Post("/sync/v1", c.SyncController.Sync)
}
