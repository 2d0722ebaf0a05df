package http

import (
	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/usecase"
	"wallet-engine/src/pkg/log"
	"wallet-engine/src/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type PaymentController struct {
	Log    log.Log
	Engine *usecase.WalletEngine
}

func NewPaymentController(engine *usecase.WalletEngine, logger log.Log) *PaymentController {
	return &PaymentController{
		Log:    logger,
		Engine: engine,
	}
}

func (c *PaymentController) ProcessRide(ctx *fiber.Ctx) error {
	request := new(model.ProcessRidePaymentRequest)
	if err := ctx.BodyParser(request); err != nil {
		c.Log.Error("PaymentController.ProcessRide", "Failed to parse request body", "error", err.Error())
		return utils.ResponseError(badRequest(err), ctx)
	}
	result, err := c.Engine.ProcessRidePayment(ctx.Context(), request)
	if err != nil {
		return utils.ResponseError(toHTTPError(err), ctx)
	}

	status := fiber.StatusOK
	if result.Status != entity.StatusCompleted {
		status = fiber.StatusAccepted
	}
	return utils.Response(result, "Ride Payment", status, ctx)
}

func (c *PaymentController) ListMethods(ctx *fiber.Ctx) error {
	result, err := c.Engine.GetPaymentMethods(ctx.Context())
	if err != nil {
		return utils.ResponseError(toHTTPError(err), ctx)
	}
	return utils.Response(result, "Payment Methods", fiber.StatusOK, ctx)
}

func (c *PaymentController) AddMethod(ctx *fiber.Ctx) error {
	request := new(model.AddPaymentMethodRequest)
	if err := ctx.BodyParser(request); err != nil {
		c.Log.Error("PaymentController.AddMethod", "Failed to parse request body", "error", err.Error())
		return utils.ResponseError(badRequest(err), ctx)
	}
	result, err := c.Engine.AddPaymentMethod(ctx.Context(), request)
	if err != nil {
		return utils.ResponseError(toHTTPError(err), ctx)
	}
	return utils.Response(result, "Payment Method Added", fiber.StatusCreated, ctx)
}

func (c *PaymentController) RemoveMethod(ctx *fiber.Ctx) error {
	if err := c.Engine.RemovePaymentMethod(ctx.Context(), ctx.Params("id")); err != nil {
		return utils.ResponseError(toHTTPError(err), ctx)
	}
	return utils.Response(nil, "Payment Method Removed", fiber.StatusOK, ctx)
}

func (c *PaymentController) UpdateMethod(ctx *fiber.Ctx) error {
	request := new(model.UpdatePaymentMethodRequest)
	if err := ctx.BodyParser(request); err != nil {
		c.Log.Error("PaymentController.UpdateMethod", "Failed to parse request body", "error", err.Error())
		return utils.ResponseError(badRequest(err), ctx)
	}
	result, err := c.Engine.UpdatePaymentMethod(ctx.Context(), ctx.Params("id"), request)
	if err != nil {
		return utils.ResponseError(toHTTPError(err), ctx)
	}
	return utils.Response(result, "Payment Method Updated", fiber.StatusOK, ctx)
}

// Callback receives settlement outcomes pushed by payment providers.
func (c *PaymentController) Callback(ctx *fiber.Ctx) error {
	request := new(model.SettlementOutcome)
	if err := ctx.BodyParser(request); err != nil {
		c.Log.Error("PaymentController.Callback", "Failed to parse request body", "error", err.Error())
		return utils.ResponseError(badRequest(err), ctx)
	}
	if err := c.Engine.HandleSettlementOutcome(ctx.Context(), request); err != nil {
		return utils.ResponseError(toHTTPError(err), ctx)
	}
	return utils.Response(nil, "Settlement Outcome Accepted", fiber.StatusOK, ctx)
}
