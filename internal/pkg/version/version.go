// Package version 애플리케이션의 빌드 및 버저닝 정보를 관리하는 패키지입니다.
//
// 빌드 시점에 링커 플래그(-ldflags)를 통해 주입된 메타데이터(버전, 커밋 해시,
// 빌드 시간)와 실행 시점의 환경 정보(Go 버전, OS, 아키텍처)를 통합하여 제공합니다.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const unknown = "unknown"

// 다음 변수들은 컴파일 시점에 링커 플래그(ldflags)를 통해 주입됩니다.
// 애플리케이션 로직에서는 직접 접근하지 말고 Get()을 통해 조회해야 합니다.
var (
	appVersion    = "" // 애플리케이션 버전 (예: v1.0.1-15-gf25b8bf)
	gitCommitHash = "" // Git 커밋 해시 (예: f25b8bf)
	gitTreeState  = "" // Git 작업 트리의 변경 상태 (clean 또는 dirty)
	buildDate     = "" // 빌드 수행 시간
)

// readBuildInfo 테스트에서 교체 가능하도록 변수로 선언합니다.
var readBuildInfo = debug.ReadBuildInfo

// globalBuildInfo init()에서 한 번만 설정되며 이후에는 읽기 전용입니다.
var globalBuildInfo Info

func init() {
	bi := Info{
		Version:   strings.TrimSpace(appVersion),
		Commit:    strings.TrimSpace(gitCommitHash),
		BuildDate: strings.TrimSpace(buildDate),
	}
	if strings.EqualFold(strings.TrimSpace(gitTreeState), "dirty") {
		bi.DirtyBuild = true
	}

	globalBuildInfo = enrich(bi)
}

// Info 애플리케이션의 빌드 정보를 담고 있습니다.
// /version 응답과 시작 로그 출력에 사용됩니다.
type Info struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	DirtyBuild bool   `json:"dirty_build"`
}

// Get 애플리케이션의 빌드 정보를 반환합니다.
func Get() Info {
	return globalBuildInfo
}

// enrich 초기화되지 않은 빌드 정보에 런타임 환경 값을 채워 넣습니다.
//
// ldflags 주입이 누락된 개발 환경(go run 등)에서도 최소한의 버전 정보를
// 확보하기 위해 실행 파일의 디버그 메타데이터(debug.ReadBuildInfo)를 분석합니다.
func enrich(bi Info) Info {
	bi.GoVersion = runtime.Version()
	bi.OS = runtime.GOOS
	bi.Arch = runtime.GOARCH

	if val, ok := readBuildInfo(); ok {
		for _, setting := range val.Settings {
			switch setting.Key {
			case "vcs.revision":
				if bi.Commit == "" {
					bi.Commit = setting.Value
				}
			case "vcs.time":
				if bi.BuildDate == "" {
					bi.BuildDate = setting.Value
				}
			case "vcs.modified":
				if setting.Value == "true" {
					bi.DirtyBuild = true
				}
			}
		}
		if bi.Version == "" && val.Main.Version != "(devel)" {
			bi.Version = val.Main.Version
		}
	}

	if bi.Version == "" {
		bi.Version = unknown
	}
	if bi.Commit == "" {
		bi.Commit = unknown
	}
	if bi.BuildDate == "" {
		bi.BuildDate = unknown
	}

	return bi
}

// ToMap 빌드 정보를 맵 형태로 반환합니다. (구조적 로깅용)
func (i Info) ToMap() map[string]any {
	return map[string]any{
		"version":     i.Version,
		"commit":      i.Commit,
		"build_date":  i.BuildDate,
		"go_version":  i.GoVersion,
		"os":          i.OS,
		"arch":        i.Arch,
		"dirty_build": i.DirtyBuild,
	}
}

// String 빌드 정보를 사람이 읽기 쉬운 하나의 문자열로 요약해 반환합니다.
func (i Info) String() string {
	version := i.Version
	if version == "" {
		version = unknown
	}
	if i.DirtyBuild {
		version += "+dirty"
	}

	commit := i.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}

	return fmt.Sprintf("%s (commit: %s, date: %s, %s %s/%s)",
		version, commit, i.BuildDate, i.GoVersion, i.OS, i.Arch)
}
