package worker

import (
	"fmt"
	"strings"

	apperrors "github.com/darkkaiser/camunda-worker/internal/pkg/errors"
	applog "github.com/darkkaiser/camunda-worker/pkg/log"
)

// subscription 하나의 토픽 구독 정보입니다.
type subscription struct {
	topicName string
	handler   Handler

	// processVariables 지정된 이름과 값이 일치하는 프로세스의 작업만 임대합니다.
	processVariables map[string]any

	// variables 응답에 포함할 변수 이름 목록입니다. (비어 있으면 전체 변수)
	variables []string
}

// SubscribeOption 토픽 구독의 추가 옵션입니다.
type SubscribeOption func(*subscription)

// WithProcessVariables 프로세스 변수 필터를 지정합니다.
// 설정 파일에 정의된 필터보다 우선합니다.
func WithProcessVariables(filter map[string]any) SubscribeOption {
	return func(sub *subscription) {
		sub.processVariables = filter
	}
}

// WithVariables 응답에 포함할 변수 이름을 지정합니다.
// 설정 파일에 정의된 목록보다 우선합니다.
func WithVariables(names ...string) SubscribeOption {
	return func(sub *subscription) {
		sub.variables = names
	}
}

// Subscribe 토픽 구독과 해당 작업을 처리할 핸들러를 등록합니다.
//
// 설정 파일에 같은 이름의 토픽이 정의되어 있으면 변수 필터를 이어받으며,
// 옵션으로 전달된 필터가 이를 덮어씁니다.
// 서비스 시작 이후에는 구독을 추가할 수 없습니다.
func (s *Service) Subscribe(topicName string, handler Handler, opts ...SubscribeOption) error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	if strings.TrimSpace(topicName) == "" {
		return apperrors.New(apperrors.InvalidInput, "토픽 이름이 지정되지 않았습니다")
	}
	if handler == nil {
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("토픽('%s')의 핸들러가 지정되지 않았습니다", topicName))
	}
	if s.running {
		return apperrors.New(apperrors.Internal, "Worker 서비스 시작 이후에는 구독을 추가할 수 없습니다")
	}
	if _, exists := s.subscriptions[topicName]; exists {
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("이미 구독 중인 토픽입니다: '%s'", topicName))
	}

	sub := &subscription{
		topicName: topicName,
		handler:   handler,
	}

	if topicConfig, ok := s.appConfig.FindTopic(topicName); ok {
		sub.processVariables = topicConfig.ProcessVariables
		sub.variables = topicConfig.Variables
	}

	for _, opt := range opts {
		opt(sub)
	}

	s.subscriptions[topicName] = sub

	applog.WithComponentAndFields(component, applog.Fields{"topic": topicName}).Debug("토픽 구독이 등록됨")

	return nil
}
