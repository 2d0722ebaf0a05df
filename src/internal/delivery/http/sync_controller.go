package http

import (
	"wallet-engine/src/internal/usecase"
	"wallet-engine/src/pkg/log"
	"wallet-engine/src/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type SyncController struct {
	Log    log.Log
	Engine *usecase.WalletEngine
}

func NewSyncController(engine *usecase.WalletEngine, logger log.Log) *SyncController {
	return &SyncController{
		Log:    logger,
		Engine: engine,
	}
}

// Sync runs one reconciliation. An offline or already running sync is not
// an error; the result carries the reason.
func (c *SyncController) Sync(ctx *fiber.Ctx) error {
	result, err := c.Engine.SyncWithServer(ctx.Context())
	if err != nil {
		return utils.ResponseError(toHTTPError(err), ctx)
	}
	return utils.Response(result, "Sync", fiber.StatusOK, ctx)
}
