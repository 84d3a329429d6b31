// Package httputil 운영 상태 조회 서버의 HTTP 응답 처리 유틸리티를 제공합니다.
package httputil

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse 표준 에러 응답 형식입니다.
type ErrorResponse struct {
	ResultCode int    `json:"result_code"`
	Message    string `json:"message"`
}

// NewBadRequestError 400 Bad Request 에러를 생성합니다
func NewBadRequestError(message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{
		ResultCode: http.StatusBadRequest,
		Message:    message,
	})
}

// NewNotFoundError 404 Not Found 에러를 생성합니다
func NewNotFoundError(message string) error {
	return echo.NewHTTPError(http.StatusNotFound, ErrorResponse{
		ResultCode: http.StatusNotFound,
		Message:    message,
	})
}

// NewTooManyRequestsError 429 Too Many Requests 에러를 생성합니다
func NewTooManyRequestsError(message string) error {
	return echo.NewHTTPError(http.StatusTooManyRequests, ErrorResponse{
		ResultCode: http.StatusTooManyRequests,
		Message:    message,
	})
}

// NewInternalServerError 500 Internal Server Error 에러를 생성합니다
func NewInternalServerError(message string) error {
	return echo.NewHTTPError(http.StatusInternalServerError, ErrorResponse{
		ResultCode: http.StatusInternalServerError,
		Message:    message,
	})
}

// NewServiceUnavailableError 503 Service Unavailable 에러를 생성합니다
func NewServiceUnavailableError(message string) error {
	return echo.NewHTTPError(http.StatusServiceUnavailable, ErrorResponse{
		ResultCode: http.StatusServiceUnavailable,
		Message:    message,
	})
}
