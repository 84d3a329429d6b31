package camunda

import (
	"encoding/json"
	"time"

	"github.com/darkkaiser/camunda-worker/internal/camunda/variables"
	"github.com/tidwall/gjson"
)

// FetchQuery 임대 획득 요청의 조건입니다.
//
// Topics에 나열된 각 토픽 이름마다 구독 항목이 하나씩 만들어지며,
// 모든 항목은 ProcessVariables와 Variables 필터를 공유합니다.
type FetchQuery struct {
	// Topics 구독할 토픽 이름 목록입니다. 최소 하나 이상 지정해야 합니다.
	Topics []string

	// ProcessVariables 프로세스 변수 필터입니다.
	// 지정된 이름과 값이 일치하는 프로세스의 작업만 임대됩니다.
	ProcessVariables map[string]any

	// Variables 응답에 포함할 변수 이름 목록입니다. (비어 있으면 전체 변수 반환)
	Variables []string
}

// NewFetchQuery 토픽 이름들로 FetchQuery를 생성합니다.
// 단일 토픽 구독은 이름 하나만 전달하면 됩니다.
func NewFetchQuery(topics ...string) FetchQuery {
	return FetchQuery{Topics: topics}
}

// LockedTask 임대 획득으로 잠긴 작업 하나를 표현합니다.
//
// 클라이언트는 작업 본문을 해석하지 않습니다. 식별에 필요한 필드만
// 추출하며, 오케스트레이터가 반환한 원본 JSON은 Raw에 그대로 보존됩니다.
type LockedTask struct {
	// ID 작업 식별자입니다. 완료/실패 보고 시 임대 상관키로 사용됩니다.
	ID string

	// TopicName 이 작업이 임대된 토픽 이름입니다.
	TopicName string

	// Retries 남은 재시도 횟수입니다.
	// 한 번도 실패가 보고되지 않은 작업은 nil입니다.
	Retries *int

	// Priority 작업 우선순위입니다.
	Priority int64

	// Raw 오케스트레이터가 반환한 작업 요소의 원본 JSON입니다.
	Raw json.RawMessage
}

// newLockedTask 오케스트레이터 응답 요소로부터 LockedTask를 생성합니다.
// 식별 필드는 원본 JSON에서 추출하며, 본문 전체의 스키마에는 의존하지 않습니다.
func newLockedTask(raw json.RawMessage) LockedTask {
	task := LockedTask{
		ID:        gjson.GetBytes(raw, "id").String(),
		TopicName: gjson.GetBytes(raw, "topicName").String(),
		Priority:  gjson.GetBytes(raw, "priority").Int(),
		Raw:       raw,
	}

	if retries := gjson.GetBytes(raw, "retries"); retries.Exists() && retries.Type != gjson.Null {
		n := int(retries.Int())
		task.Retries = &n
	}

	return task
}

// Variables 작업의 변수 블록을 디코딩하여 반환합니다.
// 변수 블록이 없으면 빈 맵을 반환합니다.
func (t LockedTask) Variables() (map[string]variables.Value, error) {
	block := gjson.GetBytes(t.Raw, "variables")
	if !block.Exists() {
		return map[string]variables.Value{}, nil
	}
	return variables.Parse(json.RawMessage(block.Raw))
}

// CompletionRequest 작업 완료 보고의 내용입니다.
//
// Variables와 LocalVariables는 nil이어도 되며, 변수 포맷터를 거쳐
// 항상 (비어 있더라도) 직렬화됩니다.
type CompletionRequest struct {
	// Variables 프로세스 범위에 반영할 변수입니다.
	Variables map[string]any

	// LocalVariables 작업의 실행 범위에만 반영할 변수입니다.
	LocalVariables map[string]any
}

// FailureReport 기술적 실패 보고의 내용입니다.
type FailureReport struct {
	// ErrorMessage 실패 사유 요약입니다.
	ErrorMessage string

	// ErrorDetails 스택 트레이스 등 상세 정보입니다.
	// 비어 있으면 와이어에서 완전히 생략됩니다.
	ErrorDetails string

	// Retries 오케스트레이터에 전달할 남은 재시도 횟수입니다.
	// 값이 그대로 전달되며, 0이면 재시도가 소진되어 인시던트가 생성됩니다.
	// 감소 계산은 호출자의 책임입니다.
	Retries int

	// RetryTimeout 다음 재시도까지의 대기 시간입니다.
	RetryTimeout time.Duration
}

// BusinessErrorReport 비즈니스 에러(BPMN 에러) 보고의 내용입니다.
// 프로세스 정의의 에러 경계 이벤트로 라우팅됩니다.
type BusinessErrorReport struct {
	// ErrorCode 프로세스 정의에서 에러를 식별하는 코드입니다.
	ErrorCode string

	// ErrorMessage 에러 설명입니다.
	ErrorMessage string

	// Variables 에러와 함께 전달할 변수입니다.
	Variables map[string]any
}

// 임대 획득 요청의 와이어 포맷
type fetchAndLockRequest struct {
	WorkerID             string              `json:"workerId"`
	MaxTasks             int                 `json:"maxTasks"`
	UsePriority          bool                `json:"usePriority"`
	AsyncResponseTimeout int64               `json:"asyncResponseTimeout"`
	Topics               []topicSubscription `json:"topics"`
	Sorting              []SortField         `json:"sorting,omitempty"`
}

// 토픽 구독 항목의 와이어 포맷
type topicSubscription struct {
	TopicName                  string         `json:"topicName"`
	LockDuration               int64          `json:"lockDuration"`
	ProcessVariables           map[string]any `json:"processVariables"`
	Variables                  []string       `json:"variables,omitempty"`
	IncludeExtensionProperties bool           `json:"includeExtensionProperties"`
	DeserializeValues          bool           `json:"deserializeValues"`
}

// 완료 보고의 와이어 포맷
type completeRequest struct {
	WorkerID       string                     `json:"workerId"`
	Variables      map[string]variables.Value `json:"variables"`
	LocalVariables map[string]variables.Value `json:"localVariables"`
}

// 실패 보고의 와이어 포맷
// ErrorDetails는 비어 있으면 필드 자체가 생략된다.
type failureRequest struct {
	WorkerID     string `json:"workerId"`
	ErrorMessage string `json:"errorMessage"`
	ErrorDetails string `json:"errorDetails,omitempty"`
	Retries      int    `json:"retries"`
	RetryTimeout int64  `json:"retryTimeout"`
}

// 비즈니스 에러 보고의 와이어 포맷
type bpmnErrorRequest struct {
	WorkerID     string                     `json:"workerId"`
	ErrorCode    string                     `json:"errorCode"`
	ErrorMessage string                     `json:"errorMessage"`
	Variables    map[string]variables.Value `json:"variables"`
}
