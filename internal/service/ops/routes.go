package ops

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes 운영 상태 조회 서버의 라우트를 등록합니다.
//
// 이 함수는 다음과 같은 엔드포인트들을 설정합니다 (모두 인증 불필요):
//   - 상태 엔드포인트: 생존 확인(/healthz) 및 준비 상태 확인(/readyz)
//   - 버전 정보: 빌드 메타데이터 조회(/version)
//   - 메트릭: Prometheus 수집용(/metrics)
func SetupRoutes(e *echo.Echo, h *Handler) {
	registerStatusRoutes(e, h)
	registerMetricsRoutes(e)
}

func registerStatusRoutes(e *echo.Echo, h *Handler) {
	e.GET("/healthz", h.HealthHandler)
	e.GET("/readyz", h.ReadyHandler)
	e.GET("/version", h.VersionHandler)
}

func registerMetricsRoutes(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
