package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// TestNewIPRateLimiter_WhiteBox 내부 구조체가 올바르게 초기화되는지 검증합니다.
func TestNewIPRateLimiter_WhiteBox(t *testing.T) {
	t.Parallel()

	rps := 10
	burst := 20
	limiter := newIPRateLimiter(rps, burst)

	assert.NotNil(t, limiter.limiters)
	assert.Equal(t, rate.Limit(rps), limiter.rate)
	assert.Equal(t, burst, limiter.burst)
	assert.Equal(t, 0, len(limiter.limiters))
}

// TestRateLimiting_InputValidation 입력 검증을 테스트합니다.
func TestRateLimiting_InputValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		requestsPerSecond int
		burst             int
		expectPanic       bool
		expectedMessage   string
	}{
		{"Valid Positive Values", 10, 20, false, ""},
		{"Zero RequestsPerSecond", 0, 20, true, "[RateLimiting] requestsPerSecond는 양수여야 합니다"},
		{"Negative RequestsPerSecond", -10, 20, true, "[RateLimiting] requestsPerSecond는 양수여야 합니다"},
		{"Zero Burst", 10, 0, true, "[RateLimiting] burst는 양수여야 합니다"},
		{"Negative Burst", 10, -20, true, "[RateLimiting] burst는 양수여야 합니다"},
		{"Both Zero", 0, 0, true, "[RateLimiting] requestsPerSecond는 양수여야 합니다"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.expectPanic {
				assert.PanicsWithValue(t, tt.expectedMessage, func() {
					RateLimiting(tt.requestsPerSecond, tt.burst)
				})
			} else {
				assert.NotPanics(t, func() {
					RateLimiting(tt.requestsPerSecond, tt.burst)
				})
			}
		})
	}
}

// TestRateLimiting_Scenarios 다양한 시나리오에 대한 통합 테스트입니다.
func TestRateLimiting_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		rps        int
		burst      int
		operations func(*testing.T, echo.HandlerFunc)
	}{
		{
			name:  "Basic Allowance and Blocking",
			rps:   10,
			burst: 20,
			operations: func(t *testing.T, h echo.HandlerFunc) {
				// 1. 버스트 내 요청 허용
				for i := 0; i < 20; i++ {
					assertRequest(t, h, "1.1.1.1", http.StatusOK)
				}
				// 2. 버스트 초과 요청 차단
				assertRequest(t, h, "1.1.1.1", http.StatusTooManyRequests)
			},
		},
		{
			name:  "IP Isolation",
			rps:   1,
			burst: 1,
			operations: func(t *testing.T, h echo.HandlerFunc) {
				// IP A 소진
				assertRequest(t, h, "1.1.1.1", http.StatusOK)
				assertRequest(t, h, "1.1.1.1", http.StatusTooManyRequests)

				// IP B는 영향 없어야 함
				assertRequest(t, h, "2.2.2.2", http.StatusOK)
				assertRequest(t, h, "2.2.2.2", http.StatusTooManyRequests)
			},
		},
		{
			name:  "Different Paths Share Limit per IP",
			rps:   1,
			burst: 1,
			operations: func(t *testing.T, h echo.HandlerFunc) {
				// 경로 A 요청으로 제한 소진
				assertRequestPath(t, h, "1.1.1.1", "/path/a", http.StatusOK)

				// 경로 B 요청도 차단되어야 함 (IP 기준이므로)
				assertRequestPath(t, h, "1.1.1.1", "/path/b", http.StatusTooManyRequests)
			},
		},
		{
			name:  "Response Headers and Body",
			rps:   1,
			burst: 1,
			operations: func(t *testing.T, h echo.HandlerFunc) {
				// 정상 응답
				assertRequest(t, h, "1.1.1.1", http.StatusOK)

				// 차단 응답 검증
				e := echo.New()
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.Header.Set("X-Real-IP", "1.1.1.1")
				rec := httptest.NewRecorder()
				c := e.NewContext(req, rec)

				err := h(c)

				// 에러 타입 및 코드 검증
				require.Error(t, err)
				httpErr, ok := err.(*echo.HTTPError)
				require.True(t, ok)
				assert.Equal(t, http.StatusTooManyRequests, httpErr.Code)
				assert.Contains(t, fmt.Sprintf("%v", httpErr.Message), "요청이 너무 많습니다")

				// 헤더 검증
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// 목 핸들러
			mockHandler := func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			}

			middleware := RateLimiting(tt.rps, tt.burst)
			h := middleware(mockHandler)

			tt.operations(t, h)
		})
	}
}

// TestRateLimiting_Recovery 시간 경과 후 복구 테스트
func TestRateLimiting_Recovery(t *testing.T) {
	if testing.Short() {
		t.Skip("Short 모드에서는 시간 의존 테스트 스킵")
	}
	t.Parallel()

	rps := 10
	burst := 5
	middleware := RateLimiting(rps, burst)
	h := middleware(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// 버스트 소진
	for i := 0; i < burst; i++ {
		assertRequest(t, h, "1.1.1.1", http.StatusOK)
	}

	// 차단 확인
	assertRequest(t, h, "1.1.1.1", http.StatusTooManyRequests)

	// 1초 대기 (충전)
	time.Sleep(1 * time.Second)

	// 복구 확인
	assertRequest(t, h, "1.1.1.1", http.StatusOK)
}

// TestRateLimiting_Concurrency 동시성 테스트
func TestRateLimiting_Concurrency(t *testing.T) {
	t.Parallel()

	e := echo.New()
	middleware := RateLimiting(100, 200)
	h := middleware(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	var wg sync.WaitGroup
	workers := 10
	requests := 50

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(id int) {
			defer wg.Done()
			ip := fmt.Sprintf("192.168.0.%d", id)
			for j := 0; j < requests; j++ {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.Header.Set("X-Real-IP", ip)
				rec := httptest.NewRecorder()
				c := e.NewContext(req, rec)
				_ = h(c)
			}
		}(i)
	}
	wg.Wait()
}

// --- Helpers ---

func assertRequest(t *testing.T, h echo.HandlerFunc, ip string, expectedStatus int) {
	t.Helper()
	assertRequestPath(t, h, ip, "/", expectedStatus)
}

func assertRequestPath(t *testing.T, h echo.HandlerFunc, ip string, path string, expectedStatus int) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Real-IP", ip)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h(c)

	if expectedStatus >= 400 {
		require.Error(t, err)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok, "echo.HTTPError 타입이어야 합니다")
		assert.Equal(t, expectedStatus, he.Code)
	} else {
		assert.NoError(t, err)
		assert.Equal(t, expectedStatus, rec.Code)
	}
}
