package log

import (
	"github.com/sirupsen/logrus"
)

// Level logrus.Level의 별칭입니다.
type Level = logrus.Level

const (
	// PanicLevel 가장 높은 심각도입니다. 로그를 기록한 후 panic()을 호출합니다.
	PanicLevel Level = logrus.PanicLevel

	// FatalLevel 치명적인 오류입니다. 로그를 기록한 후 os.Exit(1)을 호출하여 프로세스를 즉시 종료합니다.
	FatalLevel Level = logrus.FatalLevel

	// ErrorLevel 프로세스를 종료하지는 않지만 개입이 필요한 에러 상황입니다.
	ErrorLevel Level = logrus.ErrorLevel

	// WarnLevel 당장 에러는 아니지만 주의가 필요한 상황입니다.
	WarnLevel Level = logrus.WarnLevel

	// InfoLevel 시스템의 정상적인 작동 흐름이나 상태 변화를 기록합니다.
	InfoLevel Level = logrus.InfoLevel

	// DebugLevel 개발 및 테스트 단계에서 문제 해결을 위한 상세 정보를 기록합니다.
	DebugLevel Level = logrus.DebugLevel

	// TraceLevel 가장 세밀한 수준의 데이터 흐름을 추적합니다.
	TraceLevel Level = logrus.TraceLevel
)

// Fields logrus.Fields의 별칭입니다.
type Fields = logrus.Fields

// Entry logrus.Entry의 별칭입니다.
type Entry = logrus.Entry

// Logger logrus.Logger의 별칭입니다.
type Logger = logrus.Logger

// JSONFormatter logrus.JSONFormatter의 별칭입니다.
type JSONFormatter = logrus.JSONFormatter
