package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/darkkaiser/camunda-worker/internal/pkg/version"
	applog "github.com/darkkaiser/camunda-worker/pkg/log"
	"github.com/labstack/echo/v4"
)

const (
	// 헬스체크 상태 값
	healthStatusHealthy = "healthy"

	// 준비 상태 값
	readyStatusReady    = "ready"
	readyStatusNotReady = "not_ready"

	// 외부 의존성 이름
	dependencyOrchestrator = "orchestrator"
)

// VersionProber 오케스트레이터의 연결 가능 여부를 확인하는 동작을 정의합니다.
// 준비 상태 확인(/readyz) 시 버전 조회 호출로 연결을 검증합니다.
type VersionProber interface {
	Version(ctx context.Context) (string, error)
}

// HealthResponse 생존 확인 응답 형식입니다.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime int64  `json:"uptime"`
}

// DependencyStatus 외부 의존성 하나의 상태입니다.
type DependencyStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ReadyResponse 준비 상태 확인 응답 형식입니다.
type ReadyResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

// VersionResponse 버전 정보 응답 형식입니다.
type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// Handler 운영 상태 조회 엔드포인트 핸들러 (생존/준비 상태, 버전 정보)
type Handler struct {
	prober VersionProber

	buildInfo version.Info

	serverStartTime time.Time
}

// NewHandler Handler 인스턴스를 생성합니다.
func NewHandler(prober VersionProber, buildInfo version.Info) *Handler {
	if prober == nil {
		panic("VersionProber 객체는 필수입니다")
	}

	return &Handler{
		prober: prober,

		buildInfo: buildInfo,

		serverStartTime: time.Now(),
	}
}

// HealthHandler 프로세스의 생존 여부를 반환합니다.
// 외부 의존성은 확인하지 않으며, 프로세스가 응답 가능하면 항상 200을 반환합니다.
func (h *Handler) HealthHandler(c echo.Context) error {
	uptime := int64(time.Since(h.serverStartTime).Seconds())

	return c.JSON(http.StatusOK, HealthResponse{
		Status: healthStatusHealthy,
		Uptime: uptime,
	})
}

// ReadyHandler 워커가 작업을 처리할 준비가 되었는지 반환합니다.
//
// 오케스트레이터 버전 조회로 연결 가능 여부를 검증하며,
// 연결할 수 없으면 503 Service Unavailable을 반환합니다.
func (h *Handler) ReadyHandler(c echo.Context) error {
	deps := make(map[string]DependencyStatus)

	engineVersion, err := h.prober.Version(c.Request().Context())
	if err != nil {
		applog.WithComponentAndFields("ops.handler", applog.Fields{
			"endpoint": "/readyz",
			"error":    err,
		}).Warn("오케스트레이터 연결 확인 실패")

		deps[dependencyOrchestrator] = DependencyStatus{
			Status:  readyStatusNotReady,
			Message: err.Error(),
		}

		return c.JSON(http.StatusServiceUnavailable, ReadyResponse{
			Status:       readyStatusNotReady,
			Dependencies: deps,
		})
	}

	deps[dependencyOrchestrator] = DependencyStatus{
		Status:  readyStatusReady,
		Message: "버전 " + engineVersion,
	}

	return c.JSON(http.StatusOK, ReadyResponse{
		Status:       readyStatusReady,
		Dependencies: deps,
	})
}

// VersionHandler 워커의 빌드 정보를 반환합니다.
func (h *Handler) VersionHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, VersionResponse{
		Version:   h.buildInfo.Version,
		Commit:    h.buildInfo.Commit,
		BuildDate: h.buildInfo.BuildDate,
		GoVersion: h.buildInfo.GoVersion,
	})
}
