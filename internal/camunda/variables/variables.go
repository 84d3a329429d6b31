// Package variables 오케스트레이터의 타입 지정 변수(Typed Value) 포맷을 처리합니다.
//
// 오케스트레이터는 프로세스 변수를 {"value": ..., "type": ..., "valueInfo": ...}
// 형태의 객체로 주고받습니다. 이 패키지는 Go 값을 해당 와이어 포맷으로 변환하는
// Format 함수와, 임대된 작업의 변수 블록을 디코딩하는 Parse 함수를 제공합니다.
package variables

import (
	"encoding/json"
	"time"

	apperrors "github.com/darkkaiser/camunda-worker/internal/pkg/errors"
)

// dateFormat 오케스트레이터가 Date 타입 변수에 요구하는 시간 포맷입니다.
const dateFormat = "2006-01-02T15:04:05.000-0700"

// 오케스트레이터 변수 타입 이름
const (
	TypeString  = "String"
	TypeBoolean = "Boolean"
	TypeInteger = "Integer"
	TypeLong    = "Long"
	TypeDouble  = "Double"
	TypeDate    = "Date"
	TypeJSON    = "Json"
	TypeNull    = "Null"
)

// Value 오케스트레이터의 타입 지정 변수 하나를 표현합니다.
//
// Type이 비어 있으면 와이어에서 생략되며, 이 경우 오케스트레이터가
// 값으로부터 타입을 추론합니다. 단순 값(문자열, 숫자, 불리언)은 추론에
// 의존해도 안전하지만, Json/Date 타입은 명시적 지정이 필요합니다.
type Value struct {
	Value     any            `json:"value"`
	Type      string         `json:"type,omitempty"`
	ValueInfo map[string]any `json:"valueInfo,omitempty"`
}

// Format 변수 맵을 오케스트레이터의 와이어 포맷으로 변환합니다.
//
// 각 값은 {"value": v} 형태로 감싸집니다. 값이 이미 Value 타입이면
// 그대로 유지되므로, Json/Date 등 명시적 타입 지정이 필요한 경우
// 타입 생성자(Json, Date 등)를 사용할 수 있습니다.
//
// nil이 전달되어도 항상 비어 있는 (nil이 아닌) 맵을 반환합니다.
func Format(raw map[string]any) map[string]Value {
	formatted := make(map[string]Value, len(raw))
	for name, v := range raw {
		if typed, ok := v.(Value); ok {
			formatted[name] = typed
			continue
		}
		formatted[name] = Value{Value: v}
	}
	return formatted
}

// Parse 임대된 작업의 variables 블록을 디코딩합니다.
// raw가 비어 있으면 빈 맵을 반환합니다.
func Parse(raw json.RawMessage) (map[string]Value, error) {
	if len(raw) == 0 {
		return map[string]Value{}, nil
	}

	var parsed map[string]Value
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ParsingFailed, "변수 블록 디코딩 실패")
	}
	if parsed == nil {
		parsed = map[string]Value{}
	}
	return parsed, nil
}

// String String 타입 변수를 생성합니다.
func String(v string) Value {
	return Value{Value: v, Type: TypeString}
}

// Boolean Boolean 타입 변수를 생성합니다.
func Boolean(v bool) Value {
	return Value{Value: v, Type: TypeBoolean}
}

// Integer Integer 타입 변수를 생성합니다. (32비트 정수 범위)
func Integer(v int32) Value {
	return Value{Value: v, Type: TypeInteger}
}

// Long Long 타입 변수를 생성합니다.
func Long(v int64) Value {
	return Value{Value: v, Type: TypeLong}
}

// Double Double 타입 변수를 생성합니다.
func Double(v float64) Value {
	return Value{Value: v, Type: TypeDouble}
}

// Date Date 타입 변수를 생성합니다.
func Date(t time.Time) Value {
	return Value{Value: t.Format(dateFormat), Type: TypeDate}
}

// JSON 임의의 Go 값을 직렬화하여 Json 타입 변수를 생성합니다.
// 오케스트레이터는 Json 타입의 값으로 직렬화된 문자열을 기대합니다.
func JSON(v any) (Value, error) {
	serialized, err := json.Marshal(v)
	if err != nil {
		return Value{}, apperrors.Wrap(err, apperrors.ParsingFailed, "Json 타입 변수 직렬화 실패")
	}
	return Value{Value: string(serialized), Type: TypeJSON}, nil
}

// Null Null 타입 변수를 생성합니다.
func Null() Value {
	return Value{Value: nil, Type: TypeNull}
}

// StringValue 값을 문자열로 반환합니다.
func (v Value) StringValue() (string, bool) {
	s, ok := v.Value.(string)
	return s, ok
}

// IntValue 값을 int64로 반환합니다.
// JSON 디코딩 과정에서 숫자는 float64로 표현되므로 이를 함께 처리합니다.
func (v Value) IntValue() (int64, bool) {
	switch n := v.Value.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// FloatValue 값을 float64로 반환합니다.
func (v Value) FloatValue() (float64, bool) {
	switch n := v.Value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// BoolValue 값을 불리언으로 반환합니다.
func (v Value) BoolValue() (bool, bool) {
	b, ok := v.Value.(bool)
	return b, ok
}

// JSONValue Json 타입 변수의 직렬화된 값을 대상 구조체로 디코딩합니다.
// 값이 문자열이 아닌 경우(이미 디코딩된 객체 등)에는 재직렬화 후 디코딩합니다.
func (v Value) JSONValue(target any) error {
	var payload []byte

	switch value := v.Value.(type) {
	case string:
		payload = []byte(value)
	default:
		serialized, err := json.Marshal(value)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ParsingFailed, "Json 타입 변수 재직렬화 실패")
		}
		payload = serialized
	}

	if err := json.Unmarshal(payload, target); err != nil {
		return apperrors.Wrap(err, apperrors.ParsingFailed, "Json 타입 변수 디코딩 실패")
	}
	return nil
}
