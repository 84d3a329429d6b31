// Package testutil HTTP 서버 테스트에서 공용으로 사용하는 보조 함수를 제공합니다.
package testutil

import (
	"fmt"
	"net"
	"time"
)

// 리스닝 확인 폴링 간격
const probeInterval = 10 * time.Millisecond

// GetFreePort 현재 사용 가능한 TCP 포트 번호 하나를 반환합니다.
//
// 포트 0으로 리스너를 열어 운영체제가 할당한 포트를 얻은 후 즉시 닫습니다.
// 반환 시점과 실제 사용 시점 사이에 다른 프로세스가 선점할 가능성은 남아 있습니다.
func GetFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port, nil
}

// WaitForServer 지정된 포트에서 서버가 연결을 받기 시작할 때까지 대기합니다.
// 제한 시간 내에 연결에 성공하지 못하면 에러를 반환합니다.
func WaitForServer(port int, timeout time.Duration) error {
	address := fmt.Sprintf("localhost:%d", port)

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", address, probeInterval)
		if err == nil {
			conn.Close()
			return nil
		}

		time.Sleep(probeInterval)
	}

	return fmt.Errorf("서버가 제한 시간(%v) 내에 포트 %d에서 시작되지 않았습니다", timeout, port)
}
