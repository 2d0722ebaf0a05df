package httperror

import "net/http"

type CommonError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

func (e *CommonError) Error() string {
	return e.Message
}

func newCommonError(code int) *CommonError {
	return &CommonError{
		Code:    code,
		Status:  http.StatusText(code),
		Message: http.StatusText(code),
	}
}

func NewBadRequest() *CommonError {
	return newCommonError(http.StatusBadRequest)
}

func NewNotFound() *CommonError {
	return newCommonError(http.StatusNotFound)
}

func NewConflict() *CommonError {
	return newCommonError(http.StatusConflict)
}

func NewPaymentRequired() *CommonError {
	return newCommonError(http.StatusPaymentRequired)
}

func NewServiceUnavailable() *CommonError {
	return newCommonError(http.StatusServiceUnavailable)
}

func NewInternalServerError() *CommonError {
	return newCommonError(http.StatusInternalServerError)
}

func NewUnauthorized() *CommonError {
	return newCommonError(http.StatusUnauthorized)
}

func NewForbidden() *CommonError {
	return newCommonError(http.StatusForbidden)
}
