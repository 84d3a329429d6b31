package camunda

import (
	"net"
	"net/http"
	"time"
)

// Transport HTTP 요청을 실제로 수행하는 협력자 인터페이스입니다.
//
// 운영 환경에서는 커넥션 풀을 공유하는 pooledTransport가 사용되며,
// 테스트에서는 요청을 기록하거나 응답을 조작하는 대체 구현을 주입할 수 있습니다.
type Transport interface {
	// Do HTTP 요청을 수행하고 응답을 반환합니다.
	// 반환된 응답의 Body는 호출자가 반드시 닫아야 합니다.
	Do(req *http.Request) (*http.Response, error)
}

// 기본 커넥션 풀 설정값
const (
	defaultMaxIdleConns        = 10
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
	defaultDialTimeout         = 10 * time.Second
)

// pooledTransport 커넥션 풀을 공유하는 기본 Transport 구현입니다.
//
// 내부 http.Client의 Timeout은 설정하지 않습니다. 요청별 데드라인은
// 호출 측에서 context로 지정하며, 롱 폴링 요청과 일반 요청이 서로 다른
// 데드라인을 가지면서도 하나의 커넥션 풀을 공유할 수 있습니다.
type pooledTransport struct {
	client *http.Client
}

// 컴파일 타임에 인터페이스 구현 여부를 검증합니다.
var _ Transport = (*pooledTransport)(nil)

// newPooledTransport 새로운 pooledTransport 인스턴스를 생성합니다.
func newPooledTransport() *pooledTransport {
	return &pooledTransport{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   defaultDialTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConns,
				IdleConnTimeout:     defaultIdleConnTimeout,
				TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
			},
		},
	}
}

// Do HTTP 요청을 수행합니다.
func (t *pooledTransport) Do(req *http.Request) (*http.Response, error) {
	return t.client.Do(req)
}

// CloseIdleConnections 풀에 남아 있는 유휴 커넥션을 모두 닫습니다.
func (t *pooledTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}
