package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// T 테스트 프레임워크에 대한 의존을 끊기 위한 최소 인터페이스입니다.
type T interface {
	Fatalf(format string, args ...interface{})
}

// GenerateSelfSignedCert 127.0.0.1을 대상으로 하는 자체 서명 인증서와 키를
// 임시 디렉토리에 PEM 파일로 생성합니다.
//
// 반환된 정리 함수는 테스트 종료 시 호출되어야 합니다.
func GenerateSelfSignedCert(t T) (certPath, keyPath string, cleanup func()) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("테스트용 개인 키 생성 실패: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Test Co"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("테스트용 인증서 생성 실패: %v", err)
	}

	keyBytes, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("테스트용 개인 키 인코딩 실패: %v", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes})

	tempDir, err := os.MkdirTemp("", "tls-test")
	if err != nil {
		t.Fatalf("임시 디렉토리 생성 실패: %v", err)
	}

	certPath = filepath.Join(tempDir, "cert.pem")
	keyPath = filepath.Join(tempDir, "key.pem")

	if err := os.WriteFile(certPath, certPEM, 0600); err != nil {
		t.Fatalf("인증서 파일 저장 실패: %v", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		t.Fatalf("키 파일 저장 실패: %v", err)
	}

	return certPath, keyPath, func() { os.RemoveAll(tempDir) }
}
