package utils

import (
	"errors"

	httpError "wallet-engine/src/pkg/http-error"

	"github.com/gofiber/fiber/v2"
)

type BaseResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Kind    string `json:"kind,omitempty"`
}

func Response(data any, message string, code int, ctx *fiber.Ctx) error {
	return ctx.Status(code).JSON(BaseResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// ResponseError writes err as the response envelope. Errors that are not a
// CommonError are reported as 500.
func ResponseError(err error, ctx *fiber.Ctx) error {
	var common *httpError.CommonError
	if !errors.As(err, &common) {
		common = httpError.NewInternalServerError()
		common.Message = err.Error()
	}
	return ctx.Status(common.Code).JSON(BaseResponse{
		Code:    common.Code,
		Message: common.Message,
		Kind:    common.Kind,
	})
}
