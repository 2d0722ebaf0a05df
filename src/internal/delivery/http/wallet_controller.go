package http

import (
	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/usecase"
	"wallet-engine/src/pkg/log"
	"wallet-engine/src/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type WalletController struct {
	Log    log.Log
	Engine *usecase.WalletEngine
}

func NewWalletController(engine *usecase.WalletEngine, logger log.Log) *WalletController {
	return &WalletController{
		Log:    logger,
		Engine: engine,
	}
}

func (c *WalletController) GetBalance(ctx *fiber.Ctx) error {
	result, err := c.Engine.GetWalletBalance(ctx.Context())
	if err != nil {
		return utils.ResponseError(toHTTPError(err), ctx)
	}
	return utils.Response(result, "Wallet Balance", fiber.StatusOK, ctx)
}

func (c *WalletController) UpdateBalance(ctx *fiber.Ctx) error {
	request := new(model.UpdateBalanceRequest)
	if err := ctx.BodyParser(request); err != nil {
		c.Log.Error("WalletController.UpdateBalance", "Failed to parse request body", "error", err.Error())
		return utils.ResponseError(badRequest(err), ctx)
	}
	result, err := c.Engine.UpdateWalletBalance(ctx.Context(), request)
	if err != nil {
		return utils.ResponseError(toHTTPError(err), ctx)
	}
	return utils.Response(result, "Update Balance", fiber.StatusOK, ctx)
}

func (c *WalletController) ListTransactions(ctx *fiber.Ctx) error {
	request := new(model.TransactionListRequest)
	if err := ctx.QueryParser(request); err != nil {
		c.Log.Error("WalletController.ListTransactions", "Failed to parse query", "error", err.Error())
		return utils.ResponseError(badRequest(err), ctx)
	}
	result, err := c.Engine.GetTransactions(ctx.Context(), request)
	if err != nil {
		return utils.ResponseError(toHTTPError(err), ctx)
	}
	return utils.Response(result, "Transactions", fiber.StatusOK, ctx)
}

func (c *WalletController) GetTransaction(ctx *fiber.Ctx) error {
	result, err := c.Engine.GetTransaction(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return utils.ResponseError(toHTTPError(err), ctx)
	}
	return utils.Response(result, "Transaction", fiber.StatusOK, ctx)
}
