package errors

// ErrorType 에러의 종류를 나타내는 타입입니다.
type ErrorType int

// 에러 타입 상수
const (
	// Unknown 분류할 수 없는 에러 (기본값, 사용 지양)
	Unknown ErrorType = iota

	// Internal 내부 로직 오류 (버그 등)
	Internal

	// Unauthorized 인증 실패 (잘못된 자격증명, 토큰 만료 등)
	Unauthorized

	// Forbidden 권한 없음 (인증은 성공했지만 접근 권한 부족)
	Forbidden

	// InvalidInput 잘못된 입력값 또는 설정값 (유효성 검사 실패)
	InvalidInput

	// NotFound 요청한 리소스를 찾을 수 없음
	NotFound

	// ExecutionFailed 외부 작업 실행 실패 (핸들러 오류 등)
	ExecutionFailed

	// ParsingFailed 데이터 파싱 또는 형식 변환 실패
	ParsingFailed

	// Timeout 작업 시간 초과
	Timeout

	// Unavailable 서비스 일시적 사용 불가 (네트워크 장애, 서버 과부하 등)
	Unavailable
)

// String ErrorType의 문자열 표현을 반환합니다.
func (t ErrorType) String() string {
	switch t {
	case Unknown:
		return "Unknown"
	case Internal:
		return "Internal"
	case Unauthorized:
		return "Unauthorized"
	case Forbidden:
		return "Forbidden"
	case InvalidInput:
		return "InvalidInput"
	case NotFound:
		return "NotFound"
	case ExecutionFailed:
		return "ExecutionFailed"
	case ParsingFailed:
		return "ParsingFailed"
	case Timeout:
		return "Timeout"
	case Unavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}
