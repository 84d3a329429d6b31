package camunda

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	apperrors "github.com/darkkaiser/camunda-worker/internal/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	// maxBodySnippetBytes 에러 메시지에 포함할 응답 본문의 최대 크기 (4KB)
	maxBodySnippetBytes = 4 << 10

	// maxDrainBytes 커넥션 재사용을 위해 응답 본문을 비울 때 읽을 최대 크기 (64KB)
	maxDrainBytes = 64 << 10
)

// OrchestratorError 오케스트레이터가 요청을 거부(비 2xx 응답)한 경우의 에러입니다.
//
// 상태 코드와 응답 본문 일부를 보존하여 호출자가 거부 사유를 확인할 수 있습니다.
// 오케스트레이터의 에러 응답이 JSON({"type": ..., "message": ...})인 경우
// ProblemType과 ProblemMessage에 해당 필드가 추출됩니다.
type OrchestratorError struct {
	StatusCode     int    // HTTP 상태 코드
	Status         string // HTTP 상태 문자열 (예: "404 Not Found")
	URL            string // 요청 URL
	BodySnippet    string // 응답 본문 일부 (최대 4KB)
	ProblemType    string // 오케스트레이터 에러 타입 (예: "RestException")
	ProblemMessage string // 오케스트레이터 에러 메시지

	cause error
}

// Error 표준 errors.Error 인터페이스를 구현합니다.
func (e *OrchestratorError) Error() string {
	if e.ProblemMessage != "" {
		return fmt.Sprintf("오케스트레이터가 요청을 거부했습니다 (status: %s, url: %s): %s",
			e.Status, e.URL, e.ProblemMessage)
	}
	return fmt.Sprintf("오케스트레이터가 요청을 거부했습니다 (status: %s, url: %s)", e.Status, e.URL)
}

// Unwrap 상태 코드에 따라 분류된 내부 에러를 반환합니다.
func (e *OrchestratorError) Unwrap() error {
	return e.cause
}

// TransportError HTTP 응답을 받지 못한 전송 계층의 에러입니다.
// (연결 실패, 타임아웃, DNS 오류 등)
type TransportError struct {
	Op      string // 실패한 작업 이름 (예: "fetchAndLock")
	URL     string // 요청 URL
	Timeout bool   // 타임아웃으로 인한 실패 여부

	cause error
}

// Error 표준 errors.Error 인터페이스를 구현합니다.
func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s 요청 시간 초과 (url: %s): %v", e.Op, e.URL, e.cause)
	}
	return fmt.Sprintf("%s 요청 전송 실패 (url: %s): %v", e.Op, e.URL, e.cause)
}

// Unwrap 근본 원인 에러를 반환합니다.
func (e *TransportError) Unwrap() error {
	return e.cause
}

// ConfigurationError 헤더 조립 시점에 감지된 자격증명 설정 오류입니다.
type ConfigurationError struct {
	cause error
}

// Error 표준 errors.Error 인터페이스를 구현합니다.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("자격증명 설정 오류: %v", e.cause)
}

// Unwrap 근본 원인 에러를 반환합니다.
func (e *ConfigurationError) Unwrap() error {
	return e.cause
}

// IsConfigurationError 에러가 자격증명 설정 오류인지 확인합니다.
func IsConfigurationError(err error) bool {
	var configErr *ConfigurationError
	return errors.As(err, &configErr)
}

// statusToErrorType HTTP 상태 코드를 애플리케이션 에러 타입으로 변환합니다.
func statusToErrorType(statusCode int) apperrors.ErrorType {
	switch {
	case statusCode == http.StatusUnauthorized:
		return apperrors.Unauthorized
	case statusCode == http.StatusForbidden:
		return apperrors.Forbidden
	case statusCode == http.StatusBadRequest:
		return apperrors.InvalidInput
	case statusCode == http.StatusNotFound:
		return apperrors.NotFound
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusTooManyRequests:
		return apperrors.Unavailable
	case statusCode >= 500:
		return apperrors.Unavailable
	default:
		return apperrors.ExecutionFailed
	}
}

// newOrchestratorError 비 2xx 응답으로부터 OrchestratorError를 생성합니다.
// 응답 본문을 일부 읽어 스니펫과 오케스트레이터 에러 필드를 추출합니다.
func newOrchestratorError(resp *http.Response) *OrchestratorError {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySnippetBytes))

	orchErr := &OrchestratorError{
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		URL:         requestURL(resp),
		BodySnippet: string(snippet),
		cause: apperrors.Newf(statusToErrorType(resp.StatusCode),
			"오케스트레이터 응답 상태: %s", resp.Status),
	}

	// 오케스트레이터의 JSON 에러 응답에서 타입과 메시지를 추출한다.
	if gjson.ValidBytes(snippet) {
		orchErr.ProblemType = gjson.GetBytes(snippet, "type").String()
		orchErr.ProblemMessage = gjson.GetBytes(snippet, "message").String()
	}

	return orchErr
}

// newTransportError 전송 계층 에러로부터 TransportError를 생성합니다.
func newTransportError(op, url string, err error) *TransportError {
	timeout := isTimeoutError(err)

	errType := apperrors.Unavailable
	if timeout {
		errType = apperrors.Timeout
	}

	return &TransportError{
		Op:      op,
		URL:     url,
		Timeout: timeout,
		cause:   apperrors.Wrapf(err, errType, "%s 요청 실패", op),
	}
}

// isTimeoutError 에러가 타임아웃으로 인한 것인지 판별합니다.
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// requestURL 응답 객체에서 요청 URL을 추출합니다.
func requestURL(resp *http.Response) string {
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return ""
}

// drainAndCloseBody 커넥션 재사용을 위해 응답 본문을 비우고 닫습니다.
//
// 본문을 끝까지 읽지 않고 닫으면 해당 커넥션은 풀로 반환되지 못하고
// 폐기됩니다. 비정상적으로 큰 본문으로부터 보호하기 위해 읽기 크기를
// 제한하며, 제한을 초과하면 남은 본문은 버리고 커넥션도 함께 폐기됩니다.
func drainAndCloseBody(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrainBytes))
	_ = body.Close()
}
