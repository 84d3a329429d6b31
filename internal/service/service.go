package service

import (
	"context"
	"sync"
)

// Service 애플리케이션을 구성하는 장기 실행 서비스의 생명주기를 정의합니다.
//
// Start는 즉시 반환되며, 실제 작업은 고루틴에서 수행됩니다.
// serviceStopCtx가 취소되면 서비스는 정리 작업을 마친 후 serviceStopWG.Done()을 호출해야 합니다.
type Service interface {
	Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error
}
