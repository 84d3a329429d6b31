package worker

import (
	"context"
	"time"

	"github.com/darkkaiser/camunda-worker/internal/camunda"
)

// Result 핸들러 실행 결과를 오케스트레이터에 보고하는 방법을 결정합니다.
//
// Completion, Failure, BusinessError 세 가지 구현만 존재합니다.
type Result interface {
	report(ctx context.Context, s *Service, sub *subscription, task camunda.LockedTask)
}

// Completion 작업이 성공적으로 처리되었음을 보고합니다.
type Completion struct {
	// Variables 프로세스 범위에 반영할 변수입니다.
	Variables map[string]any

	// LocalVariables 작업의 실행 범위에만 반영할 변수입니다.
	LocalVariables map[string]any
}

// Failure 기술적 실패를 보고합니다.
// 재시도 횟수가 남아 있으면 오케스트레이터가 작업을 다시 임대 가능 상태로 만들고,
// 소진되었으면 인시던트를 생성합니다.
type Failure struct {
	// ErrorMessage 실패 사유 요약입니다.
	ErrorMessage string

	// ErrorDetails 스택 트레이스 등 상세 정보입니다.
	ErrorDetails string

	// Retries 보고할 남은 재시도 횟수입니다.
	// nil이면 작업의 현재 상태로부터 자동 계산됩니다. (RemainingRetries 참고)
	Retries *int

	// RetryTimeout 다음 재시도까지의 대기 시간입니다.
	// nil이면 클라이언트 설정의 기본값이 사용됩니다.
	RetryTimeout *time.Duration
}

// BusinessError 비즈니스 에러(BPMN 에러)를 보고합니다.
// 프로세스 정의의 에러 경계 이벤트로 라우팅됩니다.
type BusinessError struct {
	// Code 프로세스 정의에서 에러를 식별하는 코드입니다.
	Code string

	// Message 에러 설명입니다.
	Message string

	// Variables 에러와 함께 전달할 변수입니다.
	Variables map[string]any
}

func (r Completion) report(ctx context.Context, s *Service, sub *subscription, task camunda.LockedTask) {
	completed, err := s.client.Complete(ctx, task.ID, camunda.CompletionRequest{
		Variables:      r.Variables,
		LocalVariables: r.LocalVariables,
	})

	s.logReport(sub, task, "complete", completed, err)

	if err == nil && completed {
		tasksCompletedTotal.WithLabelValues(sub.topicName).Inc()
	}
}

func (r Failure) report(ctx context.Context, s *Service, sub *subscription, task camunda.LockedTask) {
	cfg := s.client.Config()

	retries := RemainingRetries(task, cfg.Retries)
	if r.Retries != nil {
		retries = *r.Retries
	}

	retryTimeout := cfg.RetryTimeout
	if r.RetryTimeout != nil {
		retryTimeout = *r.RetryTimeout
	}

	reported, err := s.client.ReportFailure(ctx, task.ID, camunda.FailureReport{
		ErrorMessage: r.ErrorMessage,
		ErrorDetails: r.ErrorDetails,
		Retries:      retries,
		RetryTimeout: retryTimeout,
	})

	s.logReport(sub, task, "failure", reported, err)

	if err == nil && reported {
		tasksFailedTotal.WithLabelValues(sub.topicName).Inc()
	}
}

func (r BusinessError) report(ctx context.Context, s *Service, sub *subscription, task camunda.LockedTask) {
	reported, err := s.client.ReportBusinessError(ctx, task.ID, camunda.BusinessErrorReport{
		ErrorCode:    r.Code,
		ErrorMessage: r.Message,
		Variables:    r.Variables,
	})

	s.logReport(sub, task, "bpmn_error", reported, err)

	if err == nil && reported {
		tasksBusinessErrorsTotal.WithLabelValues(sub.topicName).Inc()
	}
}
