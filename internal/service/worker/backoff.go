package worker

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	// minPollBackoff 폴링 실패 시 재개 대기 시간의 시작값
	minPollBackoff = 500 * time.Millisecond

	// maxPollBackoff 폴링 실패 시 재개 대기 시간의 상한값
	maxPollBackoff = 60 * time.Second
)

// pollBackoff 연속 실패 횟수에 따른 폴링 재개 대기 시간을 계산합니다.
//
// 지수적으로 증가하는 대기 시간에 Full Jitter를 적용하여, 오케스트레이터
// 장애 복구 시 여러 워커의 폴링 재개 시점이 분산되도록 합니다.
func pollBackoff(consecutiveFailures int) time.Duration {
	if consecutiveFailures < 1 {
		return 0
	}

	// 1. 지수 백오프: minPollBackoff * 2^(consecutiveFailures-1)
	shift := consecutiveFailures - 1
	if shift > 30 {
		shift = 30 // 오버플로우 방지
	}

	delay := minPollBackoff * time.Duration(1<<shift)

	// 2. 최대 대기 시간 제한
	if delay > maxPollBackoff || delay <= 0 {
		delay = maxPollBackoff
	}

	// 3. Full Jitter 적용: 0 ~ delay 사이의 무작위 값 선택
	delay = time.Duration(rand.Int64N(int64(delay) + 1))

	// 4. 최소 대기 시간 보장
	if delay < time.Millisecond {
		delay = minPollBackoff
	}

	return delay
}

// sleepContext 지정된 시간 동안 대기합니다.
// 대기를 마치면 true를, 컨텍스트가 취소되어 중단되면 false를 반환합니다.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
