package ops

import (
	"time"

	"github.com/darkkaiser/camunda-worker/internal/service/ops/httputil"
	appmiddleware "github.com/darkkaiser/camunda-worker/internal/service/ops/middleware"
	applog "github.com/darkkaiser/camunda-worker/pkg/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	// defaultRequestTimeout HTTP 요청 처리의 기본 타임아웃 시간 (60초)
	defaultRequestTimeout = 60 * time.Second

	// defaultReadHeaderTimeout HTTP 헤더 읽기 최대 대기 시간 (10초)
	// 헤더를 매우 느리게 전송하는 클라이언트의 연결 고갈 공격을 방지합니다.
	defaultReadHeaderTimeout = 10 * time.Second

	// defaultMaxBodySize 요청 본문의 최대 크기 (128KB)
	defaultMaxBodySize = "128K"

	// Rate Limiting 기본값 (초당 20 요청, 버스트 40)
	defaultRateLimitPerSecond = 20
	defaultRateLimitBurst     = 40
)

// HTTPServerConfig HTTP 서버 생성에 필요한 설정을 정의합니다.
type HTTPServerConfig struct {
	// Debug Echo 프레임워크의 디버그 모드 활성화 여부
	Debug bool

	// RequestTimeout 각 HTTP 요청의 최대 처리 시간 (기본값: 60초)
	RequestTimeout time.Duration
}

// NewHTTPServer 설정된 미들웨어를 포함한 Echo 인스턴스를 생성합니다.
//
// 미들웨어는 다음 순서로 적용됩니다 (순서가 중요합니다):
//
//  1. PanicRecovery - 핸들러에서 발생한 panic을 복구하여 서버 다운 방지
//  2. RequestID - 각 요청에 고유한 ID를 부여 (X-Request-ID 헤더)
//  3. ServerHeader - 응답 헤더에서 Server 필드를 삭제하여 기술 스택 노출 방지
//  4. HTTPLogger - 요청/응답 로깅 (RateLimit/Timeout 이전에 위치하여 429/503 에러도 기록)
//  5. RateLimiting - IP 기반 요청 제한 (초과 시 429 응답)
//  6. BodyLimit - 요청 본문 크기 제한 (초과 시 413 응답)
//  7. Timeout - 요청 처리 시간 제한 (초과 시 503 응답)
//  8. Secure - X-XSS-Protection, X-Content-Type-Options 등 보안 헤더 추가
//
// 라우트 설정은 포함되지 않으며, 반환된 Echo 인스턴스에 별도로 설정해야 합니다.
func NewHTTPServer(cfg HTTPServerConfig) *echo.Echo {
	e := echo.New()

	e.Debug = cfg.Debug
	e.HideBanner = true

	// 보안 및 리소스 관리를 위한 HTTP 서버 타임아웃 설정
	e.Server.ReadHeaderTimeout = defaultReadHeaderTimeout

	// Echo 프레임워크의 내부 로그를 애플리케이션 로거로 통합합니다.
	e.Logger = appmiddleware.Logger{Logger: applog.StandardLogger()}

	// 전역 HTTP 에러 핸들러 설정
	e.HTTPErrorHandler = httputil.ErrorHandler

	// 타임아웃 미설정 시 기본값(60초)을 적용하여 무한 대기를 방지합니다.
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}

	// 미들웨어 적용 (권장 순서)

	// 1. Panic 복구
	e.Use(appmiddleware.PanicRecovery())
	// 2. Request ID
	e.Use(middleware.RequestID())
	// 3. Server 헤더 제거 (보안 강화)
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(echo.HeaderServer, "")
			return next(c)
		}
	})
	// 4. HTTP 로깅
	e.Use(appmiddleware.HTTPLogger())
	// 5. Rate Limiting
	e.Use(appmiddleware.RateLimiting(defaultRateLimitPerSecond, defaultRateLimitBurst))
	// 6. Body Limit (최대 128KB)
	e.Use(middleware.BodyLimit(defaultMaxBodySize))
	// 7. Timeout
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: timeout,
	}))
	// 8. 보안 헤더 (XSS Protection 등)
	e.Use(middleware.Secure())

	return e
}
