package http

import (
	"wallet-engine/src/internal/model"
	httpError "wallet-engine/src/pkg/http-error"
)

// toHTTPError maps an engine error to the response status of its kind.
func toHTTPError(err error) *httpError.CommonError {
	kind := model.KindOf(err)

	var e *httpError.CommonError
	switch kind {
	case model.KindInsufficientFunds, model.KindBelowMinimum, model.KindInvalidAmount,
		model.KindInvalidRequest, model.KindUnsupportedMethod:
		e = httpError.NewBadRequest()
	case model.KindNotFound:
		e = httpError.NewNotFound()
	case model.KindDuplicateRequest, model.KindInvalidState:
		e = httpError.NewConflict()
	case model.KindNetworkUnavailable, model.KindNotInitialized:
		e = httpError.NewServiceUnavailable()
	case model.KindSettlementRejected:
		e = httpError.NewPaymentRequired()
	default:
		e = httpError.NewInternalServerError()
	}
	e.Message = err.Error()
	e.Kind = string(kind)
	return e
}

func badRequest(err error) *httpError.CommonError {
	e := httpError.NewBadRequest()
	e.Message = err.Error()
	e.Kind = string(model.KindInvalidRequest)
	return e
}
