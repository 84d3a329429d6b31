// Package worker 구독한 토픽의 외부 작업을 임대하여 핸들러로 처리하는 워커 서비스입니다.
//
// 토픽마다 폴링 고루틴이 하나씩 동작하며, 임대한 작업은 별도의 고루틴에서
// 핸들러로 전달됩니다. 동시에 실행되는 핸들러 수는 클라이언트 설정의
// MaxConcurrentTasks를 초과하지 않습니다.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/darkkaiser/camunda-worker/internal/camunda"
	"github.com/darkkaiser/camunda-worker/internal/config"
	apperrors "github.com/darkkaiser/camunda-worker/internal/pkg/errors"
	applog "github.com/darkkaiser/camunda-worker/pkg/log"
	"golang.org/x/time/rate"
)

const component = "worker.service"

const (
	// 패닉 스택 트레이스 버퍼 크기
	stackBufferSize = 4 << 10

	// 임대 요청 속도 제한 (폴링 루프가 비정상적으로 빠르게 도는 것을 방지)
	fetchRateLimitPerSecond = 20
	fetchRateLimitBurst     = 40
)

// TaskClient 워커가 사용하는 작업 임대 클라이언트의 동작을 정의합니다.
type TaskClient interface {
	WorkerID() string
	Config() camunda.Config
	FetchAndLock(ctx context.Context, query camunda.FetchQuery) ([]camunda.LockedTask, error)
	Complete(ctx context.Context, taskID string, req camunda.CompletionRequest) (bool, error)
	ReportFailure(ctx context.Context, taskID string, report camunda.FailureReport) (bool, error)
	ReportBusinessError(ctx context.Context, taskID string, report camunda.BusinessErrorReport) (bool, error)
}

var _ TaskClient = (*camunda.Client)(nil)

// Service 외부 작업 워커 서비스를 나타내는 구조체
type Service struct {
	appConfig *config.AppConfig

	client TaskClient

	subscriptions map[string]*subscription

	// fetchLimiter 오케스트레이터에 대한 전체 임대 요청 속도를 제한합니다.
	fetchLimiter *rate.Limiter

	// taskSlots 동시에 실행되는 핸들러 수를 제한하는 세마포어입니다.
	taskSlots chan struct{}

	// workerStopWG 모든 폴링 고루틴과 실행 중인 핸들러의 종료를 대기합니다.
	workerStopWG sync.WaitGroup

	running   bool
	runningMu sync.Mutex
}

// NewService 새로운 워커 서비스를 생성합니다.
func NewService(appConfig *config.AppConfig, client TaskClient) *Service {
	if appConfig == nil {
		panic("AppConfig 객체는 필수입니다")
	}

	maxConcurrentTasks := appConfig.Client.MaxConcurrentTasks
	if maxConcurrentTasks < 1 {
		maxConcurrentTasks = camunda.DefaultMaxConcurrentTasks
	}

	return &Service{
		appConfig: appConfig,

		client: client,

		subscriptions: make(map[string]*subscription),

		fetchLimiter: rate.NewLimiter(rate.Limit(fetchRateLimitPerSecond), fetchRateLimitBurst),

		taskSlots: make(chan struct{}, maxConcurrentTasks),

		running: false,
	}
}

// Start 워커 서비스를 시작합니다.
func (s *Service) Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	applog.WithComponent(component).Info("Worker 서비스 시작중...")

	if s.client == nil {
		defer serviceStopWG.Done()
		return apperrors.New(apperrors.Internal, "TaskClient 객체가 초기화되지 않았습니다")
	}

	if s.running {
		defer serviceStopWG.Done()
		applog.WithComponent(component).Warn("Worker 서비스가 이미 시작됨!!!")
		return nil
	}

	if len(s.subscriptions) == 0 {
		defer serviceStopWG.Done()
		return apperrors.New(apperrors.InvalidInput, "등록된 토픽 구독이 없습니다")
	}

	// 설정 파일에는 정의되어 있지만 핸들러가 등록되지 않은 토픽 확인
	for _, topicConfig := range s.appConfig.Topics {
		if _, ok := s.subscriptions[topicConfig.Name]; !ok {
			applog.WithComponentAndFields(component, applog.Fields{
				"topic": topicConfig.Name,
			}).Warn("설정 파일에 정의된 토픽에 등록된 핸들러가 없습니다")
		}
	}

	for _, sub := range s.subscriptions {
		s.workerStopWG.Add(1)
		go s.runSubscriptionLoop(serviceStopCtx, sub)

		applog.WithComponentAndFields(component, applog.Fields{
			"topic":     sub.topicName,
			"worker_id": s.client.WorkerID(),
		}).Debug("토픽 폴링이 시작됨")
	}

	go s.waitForShutdown(serviceStopCtx, serviceStopWG)

	s.running = true

	applog.WithComponent(component).Info("Worker 서비스 시작됨")

	return nil
}

// runSubscriptionLoop 하나의 토픽에 대한 임대 폴링 루프를 실행합니다.
//
// 실행 슬롯을 먼저 확보한 후에만 임대를 요청합니다. 슬롯 없이 임대하면
// 작업이 실행되지 못한 채 잠금 유지 시간만 소모하기 때문입니다.
func (s *Service) runSubscriptionLoop(serviceStopCtx context.Context, sub *subscription) {
	defer s.workerStopWG.Done()

	query := camunda.FetchQuery{
		Topics:           []string{sub.topicName},
		ProcessVariables: sub.processVariables,
		Variables:        sub.variables,
	}

	var consecutiveFailures int

	for {
		if serviceStopCtx.Err() != nil {
			return
		}

		if err := s.fetchLimiter.Wait(serviceStopCtx); err != nil {
			return
		}

		select {
		case s.taskSlots <- struct{}{}:
		case <-serviceStopCtx.Done():
			return
		}

		tasks, err := s.client.FetchAndLock(serviceStopCtx, query)
		if err != nil {
			<-s.taskSlots

			if serviceStopCtx.Err() != nil {
				return
			}

			consecutiveFailures++
			pollErrorsTotal.WithLabelValues(sub.topicName).Inc()

			delay := pollBackoff(consecutiveFailures)

			applog.WithComponentAndFields(component, applog.Fields{
				"topic":                sub.topicName,
				"consecutive_failures": consecutiveFailures,
				"delay":                delay.String(),
				"error":                err,
			}).Error("작업 임대 요청 실패, 대기 후 폴링을 재개합니다")

			if !sleepContext(serviceStopCtx, delay) {
				return
			}
			continue
		}

		consecutiveFailures = 0

		if len(tasks) == 0 {
			<-s.taskSlots
			continue
		}

		tasksFetchedTotal.WithLabelValues(sub.topicName).Add(float64(len(tasks)))

		// maxTasks가 1이므로 일반적으로 하나의 작업만 전달된다.
		for i, task := range tasks {
			if i > 0 {
				select {
				case s.taskSlots <- struct{}{}:
				case <-serviceStopCtx.Done():
					applog.WithComponentAndFields(component, applog.Fields{
						"topic":   sub.topicName,
						"task_id": task.ID,
					}).Warn("종료 신호가 수신되어 임대한 작업을 실행하지 못했습니다, 잠금 만료 후 다른 워커가 처리합니다")
					return
				}
			}

			s.workerStopWG.Add(1)
			go s.executeTask(serviceStopCtx, sub, task)
		}
	}
}

// executeTask 임대한 작업 하나를 핸들러로 처리하고 결과를 보고합니다.
func (s *Service) executeTask(serviceStopCtx context.Context, sub *subscription, task camunda.LockedTask) {
	defer s.workerStopWG.Done()
	defer func() { <-s.taskSlots }()

	tasksInFlight.Inc()
	defer tasksInFlight.Dec()

	applog.WithComponentAndFields(component, applog.Fields{
		"topic":   sub.topicName,
		"task_id": task.ID,
	}).Debug("작업 처리 시작")

	startTime := time.Now()
	result := s.invokeHandler(serviceStopCtx, sub, task)
	taskDurationSeconds.WithLabelValues(sub.topicName).Observe(time.Since(startTime).Seconds())

	if result == nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"topic":   sub.topicName,
			"task_id": task.ID,
		}).Error("핸들러가 결과를 반환하지 않았습니다, 작업을 실패로 보고합니다")

		result = Failure{ErrorMessage: "핸들러가 처리 결과를 반환하지 않았습니다"}
	}

	// 종료 신호와 무관하게 결과 보고를 완료할 수 있도록 serviceStopCtx 대신
	// 새로운 컨텍스트를 전달한다. 보고 호출에는 클라이언트의 HTTP 타임아웃이 적용된다.
	result.report(context.Background(), s, sub, task)
}

// invokeHandler 핸들러를 호출합니다. 핸들러에서 패닉이 발생하더라도
// 워커 서비스가 중단되지 않도록 복구한 후 실패 결과로 변환합니다.
func (s *Service) invokeHandler(ctx context.Context, sub *subscription, task camunda.LockedTask) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, stackBufferSize)
			length := runtime.Stack(stack, false)

			handlerPanicsTotal.WithLabelValues(sub.topicName).Inc()

			applog.WithComponentAndFields(component, applog.Fields{
				"topic":   sub.topicName,
				"task_id": task.ID,
				"panic":   fmt.Sprintf("%v", r),
				"stack":   string(stack[:length]),
			}).Error("작업 핸들러에서 패닉이 발생하였습니다, 작업을 실패로 보고합니다")

			result = Failure{
				ErrorMessage: fmt.Sprintf("핸들러 패닉: %v", r),
				ErrorDetails: string(stack[:length]),
			}
		}
	}()

	return sub.handler.Handle(ctx, task)
}

// logReport 결과 보고의 성공 여부를 기록합니다.
func (s *Service) logReport(sub *subscription, task camunda.LockedTask, reportKind string, acknowledged bool, err error) {
	if err != nil {
		reportErrorsTotal.WithLabelValues(sub.topicName, reportKind).Inc()

		applog.WithComponentAndFields(component, applog.Fields{
			"topic":   sub.topicName,
			"task_id": task.ID,
			"report":  reportKind,
			"error":   err,
		}).Error("작업 처리 결과 보고 실패")

		return
	}

	if !acknowledged {
		applog.WithComponentAndFields(component, applog.Fields{
			"topic":   sub.topicName,
			"task_id": task.ID,
			"report":  reportKind,
		}).Warn("작업 처리 결과 보고가 확정되지 않았습니다")

		return
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"topic":   sub.topicName,
		"task_id": task.ID,
		"report":  reportKind,
	}).Debug("작업 처리 결과 보고 완료")
}

// waitForShutdown 종료 신호를 대기하고, 수신 시 서비스를 정리합니다.
func (s *Service) waitForShutdown(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) {
	defer serviceStopWG.Done()

	<-serviceStopCtx.Done()

	applog.WithComponent(component).Info("Worker 서비스 중지중...")

	// 모든 폴링 고루틴과 실행 중인 핸들러의 종료를 대기한다.
	// 이미 임대한 작업은 처리 결과 보고까지 완료된 후에 반환된다.
	s.workerStopWG.Wait()

	s.runningMu.Lock()
	s.running = false
	s.runningMu.Unlock()

	applog.WithComponent(component).Info("Worker 서비스 중지됨")
}
