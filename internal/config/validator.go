package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	apperrors "github.com/darkkaiser/camunda-worker/internal/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// validate 설정 검증에 사용되는 패키지 전역 Validator 인스턴스입니다.
var validate = newValidator()

// newValidator 새로운 Validator 인스턴스를 생성하고 커스텀 유효성 검사 함수를 등록합니다.
func newValidator() *validator.Validate {
	v := validator.New()

	// 검증 에러가 났을 때, 에러 메시지에 Go 구조체 필드명(예: BaseURL) 대신 JSON 이름(예: base_url)을 보여주도록 설정합니다.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// 커스텀 유효성 검사 함수 등록
	if err := v.RegisterValidation("duration", validateDuration); err != nil {
		panic(fmt.Sprintf("초기화 치명적 오류: 'duration' 커스텀 유효성 검사 함수 등록에 실패했습니다: %v", err))
	}

	return v
}

// validateDuration 입력된 문자열이 0보다 큰 Go 시간 표기(예: "30s", "5m")인지 검증합니다.
func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// checkStruct 구조체 인스턴스의 유효성을 태그 규칙에 따라 검증하고, 발생한 오류를 사용자 친화적인 도메인 에러로 변환합니다.
func checkStruct(v *validator.Validate, s interface{}, contextName string) error {
	if err := v.Struct(s); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			// 첫 번째 에러만 상세히 보고
			firstErr := validationErrors[0]

			// 필드별(Field) 커스텀 에러 처리
			switch firstErr.StructField() {
			case "BaseURL":
				if firstErr.Tag() == "required" {
					return apperrors.New(apperrors.InvalidInput, "오케스트레이터 주소(base_url)는 필수입니다")
				}
				return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("오케스트레이터 주소(base_url) 형식이 올바르지 않습니다: '%v' (예: http://localhost:8080/engine-rest)", firstErr.Value()))
			case "MaxConcurrentTasks":
				return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("동시 처리 작업 수(max_concurrent_tasks)는 1 이상이어야 합니다: '%v'", firstErr.Value()))
			case "Retries":
				return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("기본 재시도 횟수(retries)는 0 이상이어야 합니다: '%v'", firstErr.Value()))
			case "ListenPort":
				return apperrors.New(apperrors.InvalidInput, "운영 서버 포트(listen_port)는 1에서 65535 사이의 값이어야 합니다")
			case "TLSCertFile":
				switch firstErr.Tag() {
				case "required_if":
					return apperrors.New(apperrors.InvalidInput, "TLS 서버 활성화 시 TLS 인증서 파일 경로(tls_cert_file)는 필수입니다")
				case "file":
					return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("지정된 TLS 인증서 파일(tls_cert_file)을 찾을 수 없습니다: '%v'", firstErr.Value()))
				default:
					return apperrors.New(apperrors.InvalidInput, "TLS 인증서 파일 경로(tls_cert_file) 설정이 올바르지 않습니다")
				}
			case "TLSKeyFile":
				switch firstErr.Tag() {
				case "required_if":
					return apperrors.New(apperrors.InvalidInput, "TLS 서버 활성화 시 TLS 키 파일 경로(tls_key_file)는 필수입니다")
				case "file":
					return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("지정된 TLS 키 파일(tls_key_file)을 찾을 수 없습니다: '%v'", firstErr.Value()))
				default:
					return apperrors.New(apperrors.InvalidInput, "TLS 키 파일 경로(tls_key_file) 설정이 올바르지 않습니다")
				}
			case "Name":
				return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("%s의 토픽 이름(name)은 필수입니다", contextName))
			}

			// 태그별(Tag) 커스텀 에러 처리 (범용)
			if firstErr.Tag() == "duration" {
				return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("시간 간격(%s) 설정이 올바르지 않습니다: '%v' (0보다 큰 Go 시간 표기, 예: 30s, 5m)", firstErr.Field(), firstErr.Value()))
			}

			return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("%s의 설정이 올바르지 않습니다: %s (조건: %s)", contextName, firstErr.Field(), firstErr.Tag()))
		}
		return apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("%s 유효성 검증에 실패했습니다", contextName))
	}
	return nil
}

// checkUniqueField 슬라이스 내의 특정 필드 값이 유일한지 검사합니다.
func checkUniqueField(v *validator.Validate, data interface{}, fieldName, contextName string) error {
	if err := v.Var(data, "unique="+fieldName); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldErr := range validationErrors {
				if fieldErr.Tag() == "unique" {
					return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("중복된 %s 이름이 존재합니다", contextName))
				}
			}
		}
		return apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("%s 유일성 검증에 실패했습니다", contextName))
	}
	return nil
}
