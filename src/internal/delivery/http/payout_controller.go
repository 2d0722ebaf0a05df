package http

import (
	"fmt"

	"wallet-engine/src/internal/delivery/http/middleware"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/usecase"
	"wallet-engine/src/pkg/log"
	"wallet-engine/src/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type PayoutController struct {
	Log    log.Log
	Engine *usecase.WalletEngine
}

func NewPayoutController(engine *usecase.WalletEngine, logger log.Log) *PayoutController {
	return &PayoutController{
		Log:    logger,
		Engine: engine,
	}
}

func (c *PayoutController) Request(ctx *fiber.Ctx) error {
	request := new(model.PayoutRequest)
	if err := ctx.BodyParser(request); err != nil {
		c.Log.Error("PayoutController.Request", "Failed to parse request body", "error", err.Error())
		return utils.ResponseError(badRequest(err), ctx)
	}
	result, err := c.Engine.RequestPayout(ctx.Context(), request)
	if err != nil {
		return utils.ResponseError(toHTTPError(err), ctx)
	}
	if user := middleware.GetUser(ctx); user != nil {
		c.Log.Info("PayoutController.Request", "payout requested", "user", fmt.Sprintf("user=%s payout=%s", user.Metadata.UserID, result.PayoutID))
	}
	return utils.Response(result, "Payout Requested", fiber.StatusCreated, ctx)
}

func (c *PayoutController) List(ctx *fiber.Ctx) error {
	result, err := c.Engine.GetPayouts(ctx.Context())
	if err != nil {
		return utils.ResponseError(toHTTPError(err), ctx)
	}
	return utils.Response(result, "Payouts", fiber.StatusOK, ctx)
}

func (c *PayoutController) UpdateStatus(ctx *fiber.Ctx) error {
	request := new(model.PayoutStatusUpdate)
	if err := ctx.BodyParser(request); err != nil {
		c.Log.Error("PayoutController.UpdateStatus", "Failed to parse request body", "error", err.Error())
		return utils.ResponseError(badRequest(err), ctx)
	}
	request.PayoutID = ctx.Params("id")
	result, err := c.Engine.UpdatePayoutStatus(ctx.Context(), request)
	if err != nil {
		return utils.ResponseError(toHTTPError(err), ctx)
	}
	return utils.Response(result, "Payout Status Updated", fiber.StatusOK, ctx)
}
