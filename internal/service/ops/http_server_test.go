package ops

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	applog "github.com/darkkaiser/camunda-worker/pkg/log"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Utils
// =============================================================================

// setupTestLogger는 테스트를 위해 로거 출력을 버퍼로 변경합니다.
func setupTestLogger(buf *bytes.Buffer) {
	applog.SetOutput(buf)
	applog.SetFormatter(&applog.JSONFormatter{})
	applog.SetLevel(applog.DebugLevel)
}

// restoreLogger는 로거 출력을 기본 출력(stderr)으로 복구합니다.
func restoreLogger() {
	applog.SetOutput(os.Stderr)
}

// =============================================================================
// Configuration Tests
// =============================================================================

// TestNewHTTPServer_Configuration_Table 은 Echo 서버의 기본 설정을 검증합니다.
func TestNewHTTPServer_Configuration_Table(t *testing.T) {
	tests := []struct {
		name        string
		config      HTTPServerConfig
		expectDebug bool
	}{
		{
			name: "Debug 모드 활성화",
			config: HTTPServerConfig{
				Debug: true,
			},
			expectDebug: true,
		},
		{
			name: "Debug 모드 비활성화",
			config: HTTPServerConfig{
				Debug:          false,
				RequestTimeout: 30 * time.Second,
			},
			expectDebug: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewHTTPServer(tt.config)

			require.NotNil(t, e, "Echo 인스턴스가 생성되어야 합니다")
			assert.Equal(t, tt.expectDebug, e.Debug, "Debug 모드 설정이 일치해야 합니다")
			assert.True(t, e.HideBanner, "배너가 숨겨져야 합니다")
			assert.Equal(t, defaultReadHeaderTimeout, e.Server.ReadHeaderTimeout)
			require.NotNil(t, e.Logger, "Logger가 설정되어야 합니다")
		})
	}
}

// =============================================================================
// Middleware Tests
// =============================================================================

// TestNewHTTPServer_PanicRecoveryMiddleware 는 패닉 발생 시 서버가 복구되고 500 에러를 반환하는지 검증합니다.
func TestNewHTTPServer_PanicRecoveryMiddleware(t *testing.T) {
	// 로거 캡처 설정 (패닉 로그 확인용)
	buf := new(bytes.Buffer)
	setupTestLogger(buf)
	defer restoreLogger()

	e := NewHTTPServer(HTTPServerConfig{Debug: false})

	// 의도적으로 패닉을 발생시키는 핸들러
	e.GET("/panic", func(c echo.Context) error {
		panic("intentional panic")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	rec := httptest.NewRecorder()

	// 패닉이 복구되어야 하므로 함수가 정상 종료되어야 함
	assert.NotPanics(t, func() {
		e.ServeHTTP(rec, req)
	})

	// 1. 상태 코드 검증 (500 Internal Server Error)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// 2. 응답 본문 검증 (표준 ErrorResponse 형식)
	assert.JSONEq(t, `{"result_code":500,"message":"내부 서버 오류가 발생했습니다"}`, rec.Body.String())

	// 3. 로그 검증 (패닉 정보가 기록되었는지 확인)
	assert.Contains(t, buf.String(), "intentional panic", "로그에 패닉 메시지가 포함되어야 합니다")
	assert.Contains(t, buf.String(), "\"level\":\"error\"", "Error 레벨로 로깅되어야 합니다")
}

// TestNewHTTPServer_HTTPLoggerMiddleware 는 요청/응답 로그가 제대로 기록되는지 검증합니다.
func TestNewHTTPServer_HTTPLoggerMiddleware(t *testing.T) {
	buf := new(bytes.Buffer)
	setupTestLogger(buf)
	defer restoreLogger()

	e := NewHTTPServer(HTTPServerConfig{})

	e.GET("/log-test", func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	req := httptest.NewRequest(http.MethodGet, "/log-test", nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	// 로그 검증 (단순 문자열 포함 여부로 확인)
	logContent := buf.String()
	assert.Contains(t, logContent, "\"method\":\"GET\"", "HTTP 메서드가 로그에 포함되어야 합니다")
	assert.Contains(t, logContent, "\"status\":200", "상태 코드가 로그에 포함되어야 합니다")
	assert.Contains(t, logContent, "\"uri\":\"/log-test\"", "URI가 로그에 포함되어야 합니다")
}

// TestNewHTTPServer_StandardMiddleware_Table 은 보안 헤더, RequestID 등 기본 미들웨어를 검증합니다.
func TestNewHTTPServer_StandardMiddleware_Table(t *testing.T) {
	tests := []struct {
		name          string
		checkHeader   string
		expectPattern string // ".+"는 비어있지 않음을 의미
	}{
		{
			name:          "Request ID 헤더 존재",
			checkHeader:   echo.HeaderXRequestID,
			expectPattern: ".+",
		},
		{
			name:          "Server 헤더 제거",
			checkHeader:   echo.HeaderServer,
			expectPattern: "",
		},
		{
			name:          "X-XSS-Protection 헤더 존재 (Secure 미들웨어)",
			checkHeader:   "X-XSS-Protection",
			expectPattern: "1; mode=block",
		},
		{
			name:          "X-Content-Type-Options 헤더 존재 (Secure 미들웨어)",
			checkHeader:   "X-Content-Type-Options",
			expectPattern: "nosniff",
		},
	}

	e := NewHTTPServer(HTTPServerConfig{})
	e.GET("/test", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val := rec.Header().Get(tt.checkHeader)
			if tt.expectPattern == ".+" {
				assert.NotEmpty(t, val, "%s 헤더가 설정되어야 합니다", tt.checkHeader)
			} else {
				assert.Equal(t, tt.expectPattern, val, "%s 헤더 값이 일치해야 합니다", tt.checkHeader)
			}
		})
	}
}

// TestNewHTTPServer_ErrorHandler 는 전역 에러 핸들러가 연결되었는지 검증합니다.
func TestNewHTTPServer_ErrorHandler(t *testing.T) {
	e := NewHTTPServer(HTTPServerConfig{})

	// 등록되지 않은 경로 요청
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"result_code":404,"message":"요청한 리소스를 찾을 수 없습니다"}`, rec.Body.String())
}
