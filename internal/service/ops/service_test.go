package ops

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/darkkaiser/camunda-worker/internal/config"
	"github.com/darkkaiser/camunda-worker/internal/pkg/version"
	"github.com/darkkaiser/camunda-worker/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

// setupServiceHelper는 Ops 서비스 테스트를 위한 공통 설정을 생성합니다.
func setupServiceHelper(t *testing.T) (*Service, *config.AppConfig, *sync.WaitGroup, context.Context, context.CancelFunc) {
	t.Helper()

	// 충돌 방지를 위한 동적 포트 할당
	port, err := testutil.GetFreePort()
	require.NoError(t, err, "사용 가능한 포트를 가져오는데 실패했습니다")

	appConfig := &config.AppConfig{Debug: true}
	appConfig.Ops.ListenPort = port
	appConfig.Ops.TLSServer = false

	service := NewService(appConfig, &fakeProber{version: "7.20.0"}, version.Info{
		Version:   "1.0.0",
		Commit:    "abcdef0",
		BuildDate: "2026-01-01T00:00:00Z",
	})

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}

	return service, appConfig, wg, ctx, cancel
}

// waitForStop은 WaitGroup이 해제될 때까지 제한 시간 동안 대기합니다.
func waitForStop(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("서비스 종료 타임아웃 발생 (WaitGroup mismatch 가능성)")
	}
}

// =============================================================================
// Constructor Tests
// =============================================================================

// TestNewService는 Service 생성자가 올바르게 초기화되는지 검증합니다.
func TestNewService(t *testing.T) {
	t.Run("성공: 올바른 의존성으로 서비스 생성", func(t *testing.T) {
		appConfig := &config.AppConfig{Debug: true}
		appConfig.Ops.ListenPort = 8080

		prober := &fakeProber{version: "7.20.0"}
		buildInfo := version.Info{Version: "1.2.3"}

		service := NewService(appConfig, prober, buildInfo)

		assert.NotNil(t, service)
		assert.Equal(t, appConfig, service.appConfig)
		assert.Equal(t, buildInfo, service.buildInfo)
		assert.False(t, service.running, "초기 상태는 running=false여야 함")
	})

	t.Run("실패: AppConfig가 nil인 경우 Panic", func(t *testing.T) {
		assert.PanicsWithValue(t, "AppConfig 객체는 필수입니다", func() {
			NewService(nil, &fakeProber{}, version.Info{})
		})
	})

	t.Run("실패: VersionProber가 nil인 경우 Panic", func(t *testing.T) {
		assert.PanicsWithValue(t, "VersionProber 객체는 필수입니다", func() {
			NewService(&config.AppConfig{}, nil, version.Info{})
		})
	})
}

// =============================================================================
// Server Setup Tests
// =============================================================================

// TestService_setupServer는 Echo 서버 설정을 검증합니다.
func TestService_setupServer(t *testing.T) {
	service, _, _, _, cancel := setupServiceHelper(t)
	defer cancel()

	e := service.setupServer()

	// 1. Echo 인스턴스 검증
	assert.NotNil(t, e)
	assert.True(t, e.Debug, "Config의 Debug가 true이면 Echo Debug도 true여야 함")

	// 2. 라우트 등록 검증
	routePaths := make(map[string]bool)
	for _, route := range e.Routes() {
		routePaths[route.Path] = true
	}

	assert.True(t, routePaths["/healthz"], "/healthz 라우트가 등록되어야 함")
	assert.True(t, routePaths["/readyz"], "/readyz 라우트가 등록되어야 함")
	assert.True(t, routePaths["/version"], "/version 라우트가 등록되어야 함")
	assert.True(t, routePaths["/metrics"], "/metrics 라우트가 등록되어야 함")
}

// =============================================================================
// Error Handling Tests
// =============================================================================

// TestService_handleServerError는 서버 에러 처리를 검증합니다.
func TestService_handleServerError(t *testing.T) {
	buf := new(bytes.Buffer)
	setupTestLogger(buf)
	defer restoreLogger()

	tests := []struct {
		name        string
		err         error
		expectedLog string // 빈 문자열이면 로그가 없어야 함
	}{
		{
			name:        "nil 에러: 처리하지 않음",
			err:         nil,
			expectedLog: "",
		},
		{
			name:        "http.ErrServerClosed: 정상 종료",
			err:         http.ErrServerClosed,
			expectedLog: "Ops HTTP 서버 중지됨",
		},
		{
			name:        "예상치 못한 에러: Error 레벨 로깅",
			err:         assert.AnError,
			expectedLog: "치명적인 에러가 발생하였습니다",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()

			service, _, _, _, cancel := setupServiceHelper(t)
			defer cancel()

			service.handleServerError(tt.err)

			if tt.expectedLog == "" {
				assert.Empty(t, buf.String(), "로그가 생성되지 않아야 합니다")
			} else {
				assert.Contains(t, buf.String(), tt.expectedLog)
			}
		})
	}
}

// =============================================================================
// Service Lifecycle Tests
// =============================================================================

// TestOpsService_Lifecycle는 서비스의 시작 및 종료를 통합 검증합니다.
func TestOpsService_Lifecycle(t *testing.T) {
	service, appConfig, wg, ctx, cancel := setupServiceHelper(t)
	defer cancel()

	wg.Add(1)
	err := service.Start(ctx, wg)
	require.NoError(t, err, "Start 호출 성공해야 함")

	// 서버 시작 대기
	err = testutil.WaitForServer(appConfig.Ops.ListenPort, 2*time.Second)
	require.NoError(t, err, "서버가 타임아웃 내에 시작되어야 함")

	// 1. Running 상태 검증
	service.runningMu.Lock()
	assert.True(t, service.running, "서비스 시작 후 running=true")
	service.runningMu.Unlock()

	// 2. 종료 프로세스 시작
	shutdownStart := time.Now()
	cancel()

	waitForStop(t, wg, 6*time.Second)
	assert.Less(t, time.Since(shutdownStart), 6*time.Second, "Shutdown은 타임아웃(5초) 내에 완료되어야 함")

	// 3. 종료 후 상태 검증
	service.runningMu.Lock()
	assert.False(t, service.running, "서비스 종료 후 running=false")
	service.runningMu.Unlock()
}

// TestOpsService_DuplicateStart는 중복 시작 호출 시 동작을 검증합니다.
func TestOpsService_DuplicateStart(t *testing.T) {
	service, appConfig, wg, ctx, cancel := setupServiceHelper(t)
	defer cancel()

	// 첫 번째 Start
	wg.Add(1)
	err := service.Start(ctx, wg)
	require.NoError(t, err)

	testutil.WaitForServer(appConfig.Ops.ListenPort, 2*time.Second)

	// 두 번째 Start
	// Start 내부에서 이미 실행 중이면 defer wg.Done()을 호출하므로 WG를 증가시켜야 함
	wg.Add(1)
	err = service.Start(ctx, wg)
	assert.NoError(t, err, "중복 시작은 에러를 반환하지 않고 무시해야 함")

	// running 상태 유지 확인
	service.runningMu.Lock()
	assert.True(t, service.running)
	service.runningMu.Unlock()

	// 종료
	cancel()
	waitForStop(t, wg, 6*time.Second)
}

// TestOpsService_UnexpectedServerExit는 서버가 예기치 않게 종료되었을 때
// 서비스가 스스로 정리되는지 검증합니다.
func TestOpsService_UnexpectedServerExit(t *testing.T) {
	buf := new(bytes.Buffer)
	setupTestLogger(buf)
	defer restoreLogger()

	service, appConfig, wg, ctx, cancel := setupServiceHelper(t)
	defer cancel()

	// 존재하지 않는 TLS 인증서 경로 설정으로 서버 시작 실패 유도
	appConfig.Ops.TLSServer = true
	appConfig.Ops.TLSCertFile = filepath.Join("invalid", "cert.pem")
	appConfig.Ops.TLSKeyFile = filepath.Join("invalid", "key.pem")

	wg.Add(1)
	err := service.Start(ctx, wg)
	require.NoError(t, err, "비동기 서버 시작은 에러를 반환하지 않아야 함")

	// Context 취소 없이도 서비스가 스스로 종료되어야 함
	waitForStop(t, wg, 2*time.Second)

	// 상태 및 로그 검증
	service.runningMu.Lock()
	assert.False(t, service.running, "서버 실행 실패 후 running=false")
	service.runningMu.Unlock()

	assert.Contains(t, buf.String(), "치명적인 에러가 발생하였습니다")
	assert.Contains(t, buf.String(), "예기치 않게 종료되었습니다")
}

// TestOpsService_StartTLS는 TLS 서버 시작 및 종료를 검증합니다.
func TestOpsService_StartTLS(t *testing.T) {
	service, appConfig, wg, ctx, cancel := setupServiceHelper(t)
	defer cancel()

	// 테스트용 자체 서명 인증서 생성
	certFile, keyFile, cleanupCert := testutil.GenerateSelfSignedCert(t)
	defer cleanupCert()

	appConfig.Ops.TLSServer = true
	appConfig.Ops.TLSCertFile = certFile
	appConfig.Ops.TLSKeyFile = keyFile

	wg.Add(1)
	err := service.Start(ctx, wg)
	require.NoError(t, err)

	// TLS 리스너도 TCP 연결 확인으로 시작 여부를 알 수 있음
	err = testutil.WaitForServer(appConfig.Ops.ListenPort, 2*time.Second)
	require.NoError(t, err, "TLS 서버가 타임아웃 내에 시작되어야 함")

	cancel()
	waitForStop(t, wg, 6*time.Second)
}

// =============================================================================
// Concurrency Tests
// =============================================================================

// TestOpsService_ConcurrentStart는 동시에 여러 Start 호출이 발생해도 안전한지 검증합니다.
func TestOpsService_ConcurrentStart(t *testing.T) {
	service, appConfig, wg, ctx, cancel := setupServiceHelper(t)
	defer cancel()

	const goroutines = 10
	startErrors := make(chan error, goroutines)
	startWg := &sync.WaitGroup{}

	// 동시에 10개의 Start 호출
	for i := 0; i < goroutines; i++ {
		// Start 내부에서 defer wg.Done()을 호출하므로 호출마다 wg.Add가 필요함
		wg.Add(1)

		startWg.Add(1)
		go func() {
			defer startWg.Done()
			startErrors <- service.Start(ctx, wg)
		}()
	}

	err := testutil.WaitForServer(appConfig.Ops.ListenPort, 5*time.Second)
	require.NoError(t, err)

	startWg.Wait()
	close(startErrors)

	// 모든 호출이 에러 없이 반환되어야 함 (첫 번째는 시작, 나머지는 무시)
	for err := range startErrors {
		assert.NoError(t, err)
	}

	cancel()
	waitForStop(t, wg, 10*time.Second)
}
