package camunda

import (
	"strings"
	"time"

	apperrors "github.com/darkkaiser/camunda-worker/internal/pkg/errors"
)

// 클라이언트 기본 설정값
const (
	DefaultMaxConcurrentTasks   = 10
	DefaultLockDuration         = 5 * time.Minute
	DefaultAsyncResponseTimeout = 30 * time.Second
	DefaultRetries              = 3
	DefaultRetryTimeout         = 5 * time.Minute
	DefaultHTTPTimeout          = 30 * time.Second
	DefaultTimeoutDelta         = 5 * time.Second
)

// Config 클라이언트의 동작을 결정하는 설정입니다.
//
// DefaultConfig()로 기본값을 얻은 뒤 필요한 필드만 변경하는 것을 권장합니다.
// 시간 값은 time.Duration으로 다루며, 와이어 전송 시 밀리초로 변환됩니다.
type Config struct {
	// WorkerID 이 워커 인스턴스를 식별하는 값입니다.
	// 비어 있으면 클라이언트 생성 시 "worker-<uuid>" 형태로 자동 생성됩니다.
	WorkerID string

	// BaseURL 오케스트레이터 REST API의 기본 URL입니다.
	// (예: http://localhost:8080/engine-rest)
	BaseURL string

	// MaxConcurrentTasks 동시에 처리할 수 있는 작업 수의 상한입니다.
	// 클라이언트는 이 값을 강제하지 않으며, 작업을 실행하는 호출자(워커 서비스)의
	// 동시성 제어에 사용됩니다.
	MaxConcurrentTasks int

	// LockDuration 임대 획득 시 작업을 잠그는 시간입니다.
	LockDuration time.Duration

	// AsyncResponseTimeout 임대 획득 요청의 롱 폴링 대기 시간입니다.
	// 오케스트레이터는 작업이 생길 때까지 최대 이 시간 동안 응답을 지연합니다.
	AsyncResponseTimeout time.Duration

	// Retries 실패 보고 시 사용할 기본 재시도 횟수입니다.
	Retries int

	// RetryTimeout 실패 보고 시 다음 재시도까지의 기본 대기 시간입니다.
	RetryTimeout time.Duration

	// HTTPTimeout 임대 획득을 제외한 모든 호출의 HTTP 타임아웃입니다.
	HTTPTimeout time.Duration

	// TimeoutDelta 임대 획득 호출의 HTTP 타임아웃 여유분입니다.
	// 임대 획득의 실효 타임아웃은 AsyncResponseTimeout + TimeoutDelta로,
	// 항상 롱 폴링 대기 시간보다 길어야 합니다. 그렇지 않으면 오케스트레이터가
	// 빈 응답을 보내기 직전에 클라이언트가 연결을 끊게 됩니다.
	TimeoutDelta time.Duration

	// UsePriority 작업 우선순위 기반 정렬을 사용할지 여부입니다.
	UsePriority bool

	// Sorting 임대 획득 결과의 정렬 조건입니다. (비어 있으면 와이어에서 생략)
	Sorting []SortField

	// IncludeExtensionProperties BPMN 확장 속성을 응답에 포함할지 여부입니다.
	IncludeExtensionProperties bool

	// DeserializeValues 오케스트레이터가 변수 값을 역직렬화하여 반환할지 여부입니다.
	DeserializeValues bool
}

// SortField 임대 획득 결과의 정렬 조건 하나를 표현합니다.
type SortField struct {
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
}

// DefaultConfig 기본 설정값으로 채워진 Config를 반환합니다.
// BaseURL은 비어 있으므로 호출자가 반드시 지정해야 합니다.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentTasks:         DefaultMaxConcurrentTasks,
		LockDuration:               DefaultLockDuration,
		AsyncResponseTimeout:       DefaultAsyncResponseTimeout,
		Retries:                    DefaultRetries,
		RetryTimeout:               DefaultRetryTimeout,
		HTTPTimeout:                DefaultHTTPTimeout,
		TimeoutDelta:               DefaultTimeoutDelta,
		IncludeExtensionProperties: true,
		DeserializeValues:          true,
	}
}

// Validate 설정값이 유효한지 검증합니다.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return apperrors.New(apperrors.InvalidInput, "오케스트레이터 기본 URL(BaseURL)이 설정되지 않았습니다")
	}
	if c.MaxConcurrentTasks < 1 {
		return apperrors.Newf(apperrors.InvalidInput, "MaxConcurrentTasks는 1 이상이어야 합니다: %d", c.MaxConcurrentTasks)
	}
	if c.LockDuration <= 0 {
		return apperrors.Newf(apperrors.InvalidInput, "LockDuration은 0보다 커야 합니다: %s", c.LockDuration)
	}
	if c.AsyncResponseTimeout <= 0 {
		return apperrors.Newf(apperrors.InvalidInput, "AsyncResponseTimeout은 0보다 커야 합니다: %s", c.AsyncResponseTimeout)
	}
	if c.Retries < 0 {
		return apperrors.Newf(apperrors.InvalidInput, "Retries는 0 이상이어야 합니다: %d", c.Retries)
	}
	if c.RetryTimeout < 0 {
		return apperrors.Newf(apperrors.InvalidInput, "RetryTimeout은 0 이상이어야 합니다: %s", c.RetryTimeout)
	}
	if c.HTTPTimeout <= 0 {
		return apperrors.Newf(apperrors.InvalidInput, "HTTPTimeout은 0보다 커야 합니다: %s", c.HTTPTimeout)
	}
	if c.TimeoutDelta <= 0 {
		// 여유분이 없으면 롱 폴링이 정상 종료되기 전에 클라이언트 타임아웃이 먼저 발생한다.
		return apperrors.Newf(apperrors.InvalidInput, "TimeoutDelta는 0보다 커야 합니다: %s", c.TimeoutDelta)
	}

	return nil
}

// normalizedBaseURL 끝의 슬래시를 제거한 기본 URL을 반환합니다.
func (c *Config) normalizedBaseURL() string {
	return strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
}
