package worker

import (
	"context"

	"github.com/darkkaiser/camunda-worker/internal/camunda"
)

// Handler 구독한 토픽에서 임대된 작업을 처리합니다.
//
// 반환된 Result에 따라 작업의 처리 결과가 오케스트레이터에 보고됩니다.
// nil을 반환하면 기술적 실패로 간주되어 Failure로 보고됩니다.
// 전달된 컨텍스트는 서비스 종료 시 취소되므로, 장시간 실행되는 핸들러는
// 컨텍스트 취소를 확인하여 빠르게 중단할 수 있습니다.
type Handler interface {
	Handle(ctx context.Context, task camunda.LockedTask) Result
}

// HandlerFunc 함수를 Handler 인터페이스로 사용할 수 있게 하는 어댑터입니다.
type HandlerFunc func(ctx context.Context, task camunda.LockedTask) Result

func (f HandlerFunc) Handle(ctx context.Context, task camunda.LockedTask) Result {
	return f(ctx, task)
}

// RemainingRetries 실패 보고에 사용할 다음 재시도 횟수를 계산합니다.
//
// 아직 한 번도 실패하지 않은 작업(Retries == nil)은 defaultRetries를 반환하고,
// 실패 이력이 있는 작업은 남은 횟수에서 1을 차감합니다. 반환값은 0 미만이 되지 않으며,
// 0을 보고하면 오케스트레이터는 재시도를 중단하고 인시던트를 생성합니다.
func RemainingRetries(task camunda.LockedTask, defaultRetries int) int {
	if task.Retries == nil {
		return defaultRetries
	}

	remaining := *task.Retries - 1
	if remaining < 0 {
		remaining = 0
	}

	return remaining
}
