package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollBackoff(t *testing.T) {
	t.Parallel()

	t.Run("성공: 실패 이력이 없으면 대기하지 않음", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, time.Duration(0), pollBackoff(0))
		assert.Equal(t, time.Duration(0), pollBackoff(-1))
	})

	t.Run("성공: 대기 시간은 항상 허용 범위 이내", func(t *testing.T) {
		t.Parallel()

		for failures := 1; failures <= 20; failures++ {
			for i := 0; i < 10; i++ {
				delay := pollBackoff(failures)

				assert.GreaterOrEqual(t, delay, time.Millisecond,
					"연속 실패 %d회의 대기 시간이 너무 짧습니다", failures)
				assert.LessOrEqual(t, delay, maxPollBackoff,
					"연속 실패 %d회의 대기 시간이 상한을 초과하였습니다", failures)
			}
		}
	})

	t.Run("성공: 연속 실패 횟수가 매우 커도 오버플로우되지 않음", func(t *testing.T) {
		t.Parallel()

		for i := 0; i < 10; i++ {
			delay := pollBackoff(1000)

			assert.GreaterOrEqual(t, delay, time.Millisecond)
			assert.LessOrEqual(t, delay, maxPollBackoff)
		}
	})
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	t.Run("성공: 대기 완료", func(t *testing.T) {
		t.Parallel()

		assert.True(t, sleepContext(context.Background(), time.Millisecond))
	})

	t.Run("성공: 대기 시간이 0이면 즉시 반환", func(t *testing.T) {
		t.Parallel()

		assert.True(t, sleepContext(context.Background(), 0))
	})

	t.Run("성공: 컨텍스트 취소시 대기 중단", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		interrupted := !sleepContext(ctx, 10*time.Second)

		assert.True(t, interrupted)
		assert.Less(t, time.Since(start), time.Second, "취소된 컨텍스트에서는 즉시 반환되어야 합니다")
	})

	t.Run("성공: 취소된 컨텍스트에서 대기 시간이 0이면 false 반환", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.False(t, sleepContext(ctx, 0))
	})
}
