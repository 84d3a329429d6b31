// Package log 애플리케이션 전역 로깅 시스템을 제공합니다.
//
// sirupsen/logrus를 감싸서 다음 기능을 제공합니다:
//   - Setup()을 통한 로그 파일 출력 및 로테이션(lumberjack) 구성
//   - component 필드 기반의 구조화 로깅 (WithComponent, WithComponentAndFields)
//   - 자격증명 등 민감 정보의 마스킹 (MaskSensitiveData, MaskAuthorization)
package log

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// SetOutput 전역 로거의 출력 대상을 지정합니다.
// 주로 테스트에서 로그 출력을 캡처할 때 사용합니다.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

// SetFormatter 전역 로거의 포맷터를 지정합니다.
func SetFormatter(f logrus.Formatter) {
	logrus.SetFormatter(f)
}

// SetLevel 전역 로거의 로그 레벨을 지정합니다.
func SetLevel(level Level) {
	logrus.SetLevel(level)
}

// SetDebugMode Debug 모드에 따라 전역 로그 레벨을 설정합니다.
//   - Debug 모드: Trace 레벨 (모든 로그 출력)
//   - 운영 모드: Info 레벨 (Info, Warn, Error, Fatal만 출력)
func SetDebugMode(debug bool) {
	if debug {
		logrus.SetLevel(logrus.TraceLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// StandardLogger 전역 표준 Logger를 반환합니다.
// Echo 등 외부 프레임워크에 Logger 어댑터를 연결할 때 사용합니다.
func StandardLogger() *Logger {
	return logrus.StandardLogger()
}

// WithComponent component 필드를 포함한 로그 Entry를 반환합니다.
// 모든 로그에 component 필드를 일관되게 추가하기 위해 사용합니다.
func WithComponent(component string) *Entry {
	return logrus.WithFields(Fields{
		"component": component,
	})
}

// WithComponentAndFields component 필드와 추가 필드를 포함한 로그 Entry를 반환합니다.
func WithComponentAndFields(component string, fields Fields) *Entry {
	newFields := make(Fields, len(fields)+1)
	for k, v := range fields {
		newFields[k] = v
	}
	newFields["component"] = component
	return logrus.WithFields(newFields)
}

// MaskSensitiveData 토큰, 비밀번호 등의 민감 정보를 마스킹합니다.
func MaskSensitiveData(data string) string {
	if data == "" {
		return ""
	}

	// 3자 이하는 전체 마스킹
	if len(data) <= 3 {
		return "***"
	}

	// 짧은 값은 앞 4자만 표시
	if len(data) <= 12 {
		return data[:4] + "***"
	}

	// 긴 토큰은 앞 4자 + 마스킹 + 뒤 4자
	return data[:4] + "***" + data[len(data)-4:]
}

// MaskAuthorization Authorization 헤더 값을 마스킹합니다.
// "Bearer <token>" 형식이면 인증 방식(scheme)은 유지하고 자격증명 부분만 마스킹합니다.
func MaskAuthorization(header string) string {
	if header == "" {
		return ""
	}

	scheme, credentials, found := strings.Cut(header, " ")
	if !found {
		return MaskSensitiveData(header)
	}
	return scheme + " " + MaskSensitiveData(credentials)
}
