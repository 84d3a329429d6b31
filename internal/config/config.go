package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/darkkaiser/camunda-worker/internal/camunda"
	apperrors "github.com/darkkaiser/camunda-worker/internal/pkg/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// AppName 애플리케이션의 전역 고유 식별자입니다.
	AppName string = "camunda-worker"

	// DefaultFilename 애플리케이션 초기화 시 참조하는 기본 설정 파일명입니다.
	// 실행 인자를 통해 명시적인 경로가 제공되지 않을 경우, 시스템은 이 파일을 탐색하여 구성을 로드합니다.
	DefaultFilename = AppName + ".json"

	// envPrefix 환경 변수 오버라이드에 사용되는 접두사입니다.
	envPrefix = "CAMUNDA_WORKER_"

	// ------------------------------------------------------------------------------------------------
	// 오케스트레이터 클라이언트 기본값
	// ------------------------------------------------------------------------------------------------

	// DefaultEngineBaseURL 오케스트레이터 REST API의 기본 주소
	DefaultEngineBaseURL = "http://localhost:8080/engine-rest"

	// DefaultLockDuration 임대한 작업의 잠금 유지 시간 기본값
	DefaultLockDuration = "5m"

	// DefaultAsyncResponseTimeout 롱 폴링 대기 시간 기본값
	DefaultAsyncResponseTimeout = "30s"

	// DefaultRetryTimeout 실패 보고 후 재시도 대기 시간 기본값
	DefaultRetryTimeout = "5m"

	// DefaultHTTPTimeout 일반 HTTP 요청의 타임아웃 기본값
	DefaultHTTPTimeout = "30s"

	// DefaultTimeoutDelta 롱 폴링 데드라인에 더해지는 여유분 기본값
	DefaultTimeoutDelta = "5s"

	// DefaultOpsListenPort 운영 상태 조회용 HTTP 서버의 기본 포트
	DefaultOpsListenPort = 8090
)

// AppConfig 애플리케이션의 모든 설정을 관장하는 최상위 루트 구조체
type AppConfig struct {
	Debug  bool          `json:"debug"`
	Engine EngineConfig  `json:"engine"`
	Client ClientConfig  `json:"client"`
	Topics []TopicConfig `json:"topics"`
	Ops    OpsConfig     `json:"ops"`
}

// validate 설정 파일 로드 직후, 각 설정 항목의 정합성과 필수 값의 유효성을 검증합니다.
func (c *AppConfig) validate() error {
	// Engine 유효성 검사
	if err := c.Engine.validate(); err != nil {
		return err
	}

	// Client 유효성 검사
	if err := c.Client.validate(); err != nil {
		return err
	}

	// Topics 유효성 검사
	if err := c.validateTopics(); err != nil {
		return err
	}

	// Ops 유효성 검사
	if err := c.Ops.validate(); err != nil {
		return err
	}

	return nil
}

func (c *AppConfig) validateTopics() error {
	// Topic 중복 이름 검사
	if err := checkUniqueField(validate, c.Topics, "Name", "Topic"); err != nil {
		return err
	}

	for _, t := range c.Topics {
		if err := checkStruct(validate, t, fmt.Sprintf("Topic['%s']", t.Name)); err != nil {
			return err
		}
	}

	return nil
}

// VerifyRecommendations 서비스 운영의 안정성과 보안을 위해 권장되는 설정 준수 여부를 진단합니다.
// 강제적인 에러를 발생시키지는 않으나, 잠재적 위험 요소에 대한 경고 메시지를 반환합니다.
func (c *AppConfig) VerifyRecommendations() []string {
	var warnings []string

	// 시스템 예약 포트(1024 미만) 사용 경고
	if c.Ops.ListenPort < 1024 {
		warnings = append(warnings, fmt.Sprintf("시스템 예약 포트(1-1023)를 사용하도록 설정되었습니다(port: %d). 이 경우 서버 구동 시 관리자 권한이 필요할 수 있습니다", c.Ops.ListenPort))
	}

	// 평문 HTTP로 자격증명이 전송되는 설정 경고
	if strings.HasPrefix(c.Engine.BaseURL, "http://") && c.Engine.Auth.configured() {
		warnings = append(warnings, "오케스트레이터 주소가 평문 HTTP로 설정되어 있어 인증 자격증명이 암호화되지 않은 채 전송됩니다. HTTPS 사용을 권장합니다")
	}

	// Basic과 Bearer가 동시에 설정된 경우 안내
	if c.Engine.Auth.Basic.Username != "" && c.Engine.Auth.BearerToken != "" {
		warnings = append(warnings, "Basic 인증과 Bearer 토큰이 모두 설정되어 있습니다. 이 경우 Bearer 토큰이 우선 적용됩니다")
	}

	return warnings
}

// EngineConfig 오케스트레이터 REST API 접속 정보를 정의하는 설정 구조체
type EngineConfig struct {
	BaseURL string     `json:"base_url" validate:"required,url"`
	Auth    AuthConfig `json:"auth"`
}

func (c *EngineConfig) validate() error {
	if err := checkStruct(validate, c, "Engine"); err != nil {
		return err
	}

	return c.Auth.validate()
}

// AuthConfig 오케스트레이터 인증 자격증명을 정의하는 설정 구조체
//
// Basic과 BearerToken이 모두 설정된 경우 BearerToken이 우선 적용됩니다.
type AuthConfig struct {
	Basic       BasicAuthConfig `json:"basic"`
	BearerToken string          `json:"bearer_token"`
}

func (c *AuthConfig) validate() error {
	// Basic 인증은 사용자 이름과 비밀번호가 모두 설정되어야 한다
	if (c.Basic.Username == "") != (c.Basic.Password == "") {
		return apperrors.New(apperrors.InvalidInput, "Basic 인증은 사용자 이름(username)과 비밀번호(password)를 모두 설정해야 합니다")
	}
	return nil
}

// configured 인증 자격증명이 하나라도 설정되어 있는지 확인합니다.
func (c *AuthConfig) configured() bool {
	return c.Basic.Username != "" || c.Basic.Password != "" || c.BearerToken != ""
}

// BasicAuthConfig HTTP Basic 인증의 사용자 이름과 비밀번호를 담는 설정 구조체
type BasicAuthConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ClientConfig 작업 임대 클라이언트의 동작 파라미터를 정의하는 설정 구조체
//
// 시간 간격 항목은 Go 시간 표기 문자열(예: "30s", "5m")로 설정합니다.
type ClientConfig struct {
	WorkerID                   string `json:"worker_id"`
	MaxConcurrentTasks         int    `json:"max_concurrent_tasks" validate:"min=1"`
	LockDuration               string `json:"lock_duration" validate:"required,duration"`
	AsyncResponseTimeout       string `json:"async_response_timeout" validate:"required,duration"`
	Retries                    int    `json:"retries" validate:"min=0"`
	RetryTimeout               string `json:"retry_timeout" validate:"required,duration"`
	HTTPTimeout                string `json:"http_timeout" validate:"required,duration"`
	TimeoutDelta               string `json:"timeout_delta" validate:"required,duration"`
	UsePriority                bool   `json:"use_priority"`
	IncludeExtensionProperties bool   `json:"include_extension_properties"`
	DeserializeValues          bool   `json:"deserialize_values"`
}

func (c *ClientConfig) validate() error {
	return checkStruct(validate, c, "Client")
}

// TopicConfig 구독할 토픽과 해당 토픽에 적용할 변수 필터를 정의하는 구조체
type TopicConfig struct {
	Name             string                 `json:"name" validate:"required"`
	ProcessVariables map[string]interface{} `json:"process_variables"`
	Variables        []string               `json:"variables"`
}

// OpsConfig 운영 상태 조회용 HTTP 서버의 포트 및 TLS(HTTPS) 보안 설정을 정의하는 구조체
type OpsConfig struct {
	TLSServer   bool   `json:"tls_server"`
	TLSCertFile string `json:"tls_cert_file" validate:"required_if=TLSServer true,omitempty,file"`
	TLSKeyFile  string `json:"tls_key_file" validate:"required_if=TLSServer true,omitempty,file"`
	ListenPort  int    `json:"listen_port" validate:"min=1,max=65535"`
}

func (c *OpsConfig) validate() error {
	return checkStruct(validate, c, "Ops")
}

// defaultAppConfig 설정 파일이나 환경 변수로 덮어쓰기 전의 기본 설정을 반환합니다.
func defaultAppConfig() AppConfig {
	return AppConfig{
		Engine: EngineConfig{
			BaseURL: DefaultEngineBaseURL,
		},
		Client: ClientConfig{
			MaxConcurrentTasks:         camunda.DefaultMaxConcurrentTasks,
			LockDuration:               DefaultLockDuration,
			AsyncResponseTimeout:       DefaultAsyncResponseTimeout,
			Retries:                    camunda.DefaultRetries,
			RetryTimeout:               DefaultRetryTimeout,
			HTTPTimeout:                DefaultHTTPTimeout,
			TimeoutDelta:               DefaultTimeoutDelta,
			IncludeExtensionProperties: true,
			DeserializeValues:          true,
		},
		Ops: OpsConfig{
			ListenPort: DefaultOpsListenPort,
		},
	}
}

// Load 기본 설정 파일을 읽어 애플리케이션 설정을 로드합니다.
func Load() (*AppConfig, error) {
	return LoadWithFile(DefaultFilename)
}

// LoadWithFile 지정된 경로의 설정 파일을 읽어 AppConfig 객체를 생성합니다.
func LoadWithFile(filename string) (*AppConfig, error) {
	k := koanf.New(".")

	// 1. 기본값 로드 (가장 낮은 우선순위)
	if err := k.Load(structs.Provider(defaultAppConfig(), "json"), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "애플리케이션 기본 설정 로드에 실패했습니다")
	}

	// 2. JSON 설정 파일 로드 (기본값 덮어쓰기)
	if err := k.Load(file.Provider(filename), json.Parser()); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(err, apperrors.Internal, fmt.Sprintf("설정 파일을 찾을 수 없습니다: '%s'", filename))
		}
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("설정 파일 로드 중 오류가 발생했습니다: '%s'", filename))
	}

	// 3. 환경 변수 로드 (최우선 순위, JSON 설정 덮어쓰기)
	// 접두사: CAMUNDA_WORKER_
	// 구분자: 이중 언더스코어(__)를 점(.)으로 변환 (계층 구조 표현)
	// 예: CAMUNDA_WORKER_ENGINE__BASE_URL -> engine.base_url
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "환경 변수 로드에 실패했습니다")
	}

	// 4. 구조체 언마샬링 (Strict Validation 적용)
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			ErrorUnused:      true, // 파일에 존재하지만 구조체에 없는 필드가 있을 경우 에러를 발생시킴
			WeaklyTypedInput: true,
		},
	}
	var appConfig AppConfig
	if err := k.UnmarshalWithConf("", &appConfig, unmarshalConf); err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "설정 데이터를 애플리케이션 구조체로 변환하는데 실패했습니다")
	}

	// 5. 유효성 검사 수행 (정합성 체크)
	if err := appConfig.validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("설정 파일('%s')의 유효성 검증에 실패했습니다", filename))
	}

	return &appConfig, nil
}

// BuildClientConfig 애플리케이션 설정을 작업 임대 클라이언트의 설정으로 변환합니다.
func (c *AppConfig) BuildClientConfig() (camunda.Config, error) {
	cfg := camunda.DefaultConfig()
	cfg.BaseURL = c.Engine.BaseURL
	cfg.WorkerID = c.Client.WorkerID
	cfg.MaxConcurrentTasks = c.Client.MaxConcurrentTasks
	cfg.Retries = c.Client.Retries
	cfg.UsePriority = c.Client.UsePriority
	cfg.IncludeExtensionProperties = c.Client.IncludeExtensionProperties
	cfg.DeserializeValues = c.Client.DeserializeValues

	durations := []struct {
		raw   string
		field string
		dst   *time.Duration
	}{
		{c.Client.LockDuration, "lock_duration", &cfg.LockDuration},
		{c.Client.AsyncResponseTimeout, "async_response_timeout", &cfg.AsyncResponseTimeout},
		{c.Client.RetryTimeout, "retry_timeout", &cfg.RetryTimeout},
		{c.Client.HTTPTimeout, "http_timeout", &cfg.HTTPTimeout},
		{c.Client.TimeoutDelta, "timeout_delta", &cfg.TimeoutDelta},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return camunda.Config{}, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("시간 간격(%s) 설정이 올바르지 않습니다: '%s' (예: 30s, 5m)", d.field, d.raw))
		}
		*d.dst = parsed
	}

	return cfg, nil
}

// FindTopic 지정된 이름의 토픽 설정을 찾습니다.
func (c *AppConfig) FindTopic(name string) (TopicConfig, bool) {
	for _, t := range c.Topics {
		if t.Name == name {
			return t, true
		}
	}
	return TopicConfig{}, false
}
