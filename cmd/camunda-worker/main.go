package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/darkkaiser/camunda-worker/internal/camunda"
	"github.com/darkkaiser/camunda-worker/internal/config"
	"github.com/darkkaiser/camunda-worker/internal/pkg/version"
	"github.com/darkkaiser/camunda-worker/internal/service"
	"github.com/darkkaiser/camunda-worker/internal/service/ops"
	"github.com/darkkaiser/camunda-worker/internal/service/worker"
	applog "github.com/darkkaiser/camunda-worker/pkg/log"
	log "github.com/sirupsen/logrus"
)

const (
	banner = `
  ____                                      _          __        __              _
 / ___|  __ _  _ __ ___   _   _  _ __    __| |  __ _   \ \      / /  ___   _ __ | | __  ___  _ __
| |     / _` + "`" + ` || '_ ` + "`" + ` _ \ | | | || '_ \  / _` + "`" + ` | / _` + "`" + ` |   \ \ /\ / /  / _ \ | '__|| |/ / / _ \| '__|
| |___ | (_| || | | | | || |_| || | | || (_| || (_| |    \ V  V /  | (_) || |   |   < |  __/| |
 \____| \__,_||_| |_| |_| \__,_||_| |_| \__,_| \__,_|     \_/\_/    \___/ |_|   |_|\_\ \___||_|
                                                                                          %s
                                                                         developed by DarkKaiser
--------------------------------------------------------------------------------------------------
`
)

func main() {
	// 1. 환경설정 로드 (로그 설정에 필요하므로 가장 먼저 수행한다)
	appConfig, err := config.Load()
	if err != nil {
		// 로거 초기화 전이므로 표준 에러에 출력
		fmt.Fprintf(os.Stderr, "[FATAL] 환경설정 로드 실패: %v\n", err)
		os.Exit(1)
	}

	// 2. 로그 시스템 초기화
	var logOpts applog.Options
	if appConfig.Debug {
		logOpts = applog.NewDevelopmentConfig(config.AppName)
	} else {
		logOpts = applog.NewProductionConfig(config.AppName)
	}

	appLogCloser, err := applog.Setup(logOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] 로그 시스템 초기화 실패. 워커 구동을 중단합니다. (Cause: %v)\n", err)
		os.Exit(1)
	}
	defer appLogCloser.Close()

	// 3. 로그 레벨 최종 확정
	applog.SetDebugMode(appConfig.Debug)

	buildInfo := version.Get()

	// 아스키아트 출력(https://ko.rakko.tools/tools/68/, 폰트:standard)
	fmt.Printf(banner, buildInfo.Version)

	// 빌드 정보 출력
	applog.WithComponentAndFields("main", log.Fields{
		"version": buildInfo.String(),
		"engine":  appConfig.Engine.BaseURL,
		"env":     map[bool]string{true: "development", false: "production"}[appConfig.Debug],
	}).Info("워커 초기화 시작")

	// 권장 설정 점검 결과 출력
	for _, warning := range appConfig.VerifyRecommendations() {
		applog.WithComponent("main").Warn(warning)
	}

	// 작업 임대 클라이언트를 생성한다.
	client, err := newTaskClient(appConfig)
	if err != nil {
		applog.WithComponentAndFields("main", log.Fields{
			"error": err,
		}).Error("작업 임대 클라이언트 초기화 실패")

		log.Fatal("클라이언트 초기화 실패로 프로그램을 종료합니다")
	}
	defer client.Close()

	// 서비스를 생성하고 초기화한다.
	workerService := worker.NewService(appConfig, client)
	opsService := ops.NewService(appConfig, client, buildInfo)

	if err := registerSubscriptions(appConfig, workerService); err != nil {
		applog.WithComponentAndFields("main", log.Fields{
			"error": err,
		}).Error("토픽 구독 등록 실패")

		log.Fatal("토픽 구독 등록 실패로 프로그램을 종료합니다")
	}

	// Set up cancellation context and waitgroup
	serviceStopCtx, cancel := context.WithCancel(context.Background())
	serviceStopWG := &sync.WaitGroup{}

	// 서비스를 시작한다.
	services := []service.Service{workerService, opsService}
	for _, s := range services {
		serviceStopWG.Add(1)
		if err := s.Start(serviceStopCtx, serviceStopWG); err != nil {
			applog.WithComponentAndFields("main", log.Fields{
				"error": err,
			}).Error("서비스 초기화 실패")

			cancel() // 다른 서비스들도 종료
			serviceStopWG.Wait()

			log.Fatal("서비스 초기화 실패로 프로그램을 종료합니다")
		}
	}

	// Handle sigterm and await termC signal
	termC := make(chan os.Signal, 1)
	signal.Notify(termC, syscall.SIGINT, syscall.SIGTERM)

	applog.WithComponentAndFields("main", log.Fields{
		"worker_id": client.WorkerID(),
	}).Info("워커 가동 완료")

	<-termC // Blocks here until interrupted

	// Handle shutdown
	applog.WithComponent("main").Info("Shutdown signal received")
	cancel()             // Signal cancellation to context.Context
	serviceStopWG.Wait() // Block here until are workers are done
}

// newTaskClient 애플리케이션 설정으로부터 작업 임대 클라이언트를 생성합니다.
// Basic 인증과 Bearer 토큰이 모두 설정된 경우 Bearer 토큰이 우선 적용됩니다.
func newTaskClient(appConfig *config.AppConfig) (*camunda.Client, error) {
	clientConfig, err := appConfig.BuildClientConfig()
	if err != nil {
		return nil, err
	}

	var opts []camunda.Option
	switch {
	case appConfig.Engine.Auth.BearerToken != "":
		opts = append(opts, camunda.WithBearerToken(appConfig.Engine.Auth.BearerToken))
	case appConfig.Engine.Auth.Basic.Username != "":
		opts = append(opts, camunda.WithBasicAuth(appConfig.Engine.Auth.Basic.Username, appConfig.Engine.Auth.Basic.Password))
	}

	return camunda.NewClient(clientConfig, opts...)
}

// registerSubscriptions 설정 파일에 정의된 모든 토픽을 기본 핸들러로 구독합니다.
// 토픽별 변수 필터는 Subscribe가 설정 파일에서 이어받는다.
func registerSubscriptions(appConfig *config.AppConfig, workerService *worker.Service) error {
	for _, topic := range appConfig.Topics {
		if err := workerService.Subscribe(topic.Name, worker.HandlerFunc(logTaskHandler)); err != nil {
			return err
		}
	}

	return nil
}

// logTaskHandler 임대한 작업의 내용을 로그로 남기고 곧바로 완료 처리하는 기본 핸들러입니다.
//
// 오케스트레이터 연동을 검증하는 용도이며, 실제 업무 로직은 이 핸들러를
// 대체하는 방식으로 구현한다.
func logTaskHandler(_ context.Context, task camunda.LockedTask) worker.Result {
	vars, err := task.Variables()
	if err != nil {
		return worker.Failure{
			ErrorMessage: "작업 변수 디코딩 실패",
			ErrorDetails: err.Error(),
		}
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	applog.WithComponentAndFields("main", log.Fields{
		"topic":     task.TopicName,
		"task_id":   task.ID,
		"priority":  task.Priority,
		"variables": names,
	}).Info("작업 수신")

	return worker.Completion{}
}
