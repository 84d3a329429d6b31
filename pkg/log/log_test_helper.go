package log

import "os"

// writeEmptyFile 테스트에서 빈 파일을 생성하기 위한 헬퍼 함수입니다.
func writeEmptyFile(path string) error {
	return os.WriteFile(path, nil, 0644)
}
