// Package auth 오케스트레이터 요청에 사용할 자격증명 전략을 제공합니다.
//
// 전략은 요청마다 헤더 조립 시점에 평가됩니다. 동적으로 갱신되는 토큰을
// 사용하는 경우에도 항상 최신 값이 헤더에 반영됩니다.
package auth

import (
	"encoding/base64"
	"fmt"

	apperrors "github.com/darkkaiser/camunda-worker/internal/pkg/errors"
)

// 자격증명 설정 오류 (헤더 조립 시점에 감지)
var (
	// ErrMissingUsername Basic 인증의 사용자 이름이 비어 있는 경우
	ErrMissingUsername = apperrors.New(apperrors.InvalidInput, "Basic 인증의 사용자 이름이 비어 있습니다")

	// ErrMissingPassword Basic 인증의 비밀번호가 비어 있는 경우
	ErrMissingPassword = apperrors.New(apperrors.InvalidInput, "Basic 인증의 비밀번호가 비어 있습니다")

	// ErrEmptyToken Bearer 토큰이 비어 있는 경우
	ErrEmptyToken = apperrors.New(apperrors.InvalidInput, "Bearer 토큰이 비어 있습니다")

	// ErrNilTokenSource Bearer 토큰 공급 함수가 nil인 경우
	ErrNilTokenSource = apperrors.New(apperrors.InvalidInput, "Bearer 토큰 공급 함수가 설정되지 않았습니다")
)

// Provider Authorization 헤더 값을 생성하는 자격증명 전략입니다.
//
// HeaderValue는 요청마다 호출되며, 자격증명 설정이 유효하지 않으면
// 에러를 반환합니다. 이 에러는 클라이언트에서 설정 오류로 분류됩니다.
type Provider interface {
	HeaderValue() (string, error)
}

// Basic HTTP Basic 인증 전략입니다.
type Basic struct {
	Username string
	Password string
}

var _ Provider = (*Basic)(nil)

// HeaderValue "Basic <base64(username:password)>" 형태의 헤더 값을 반환합니다.
func (b *Basic) HeaderValue() (string, error) {
	if b.Username == "" {
		return "", ErrMissingUsername
	}
	if b.Password == "" {
		return "", ErrMissingPassword
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(b.Username + ":" + b.Password))
	return "Basic " + credentials, nil
}

// Bearer 정적 토큰을 사용하는 Bearer 인증 전략입니다.
type Bearer struct {
	Token string
}

var _ Provider = (*Bearer)(nil)

// HeaderValue "Bearer <token>" 형태의 헤더 값을 반환합니다.
func (b *Bearer) HeaderValue() (string, error) {
	if b.Token == "" {
		return "", ErrEmptyToken
	}
	return "Bearer " + b.Token, nil
}

// BearerFunc 요청마다 토큰을 동적으로 조회하는 Bearer 인증 전략입니다.
// 외부 인증 서버에서 주기적으로 갱신되는 토큰을 사용할 때 적합합니다.
type BearerFunc struct {
	// TokenSource 호출 시점의 유효한 토큰을 반환합니다.
	TokenSource func() (string, error)
}

var _ Provider = (*BearerFunc)(nil)

// HeaderValue 토큰 공급 함수를 호출하여 "Bearer <token>" 헤더 값을 반환합니다.
func (b *BearerFunc) HeaderValue() (string, error) {
	if b.TokenSource == nil {
		return "", ErrNilTokenSource
	}

	token, err := b.TokenSource()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.InvalidInput, "Bearer 토큰 조회 실패")
	}
	if token == "" {
		return "", ErrEmptyToken
	}
	return "Bearer " + token, nil
}

// FromConfig 설정값으로부터 자격증명 전략을 구성합니다.
//
// Bearer 토큰이 설정된 경우 Basic 설정보다 우선합니다. 두 전략이 모두
// 설정되어 있으면 Bearer가 적용되며, 아무것도 설정되지 않으면 nil을
// 반환합니다. (Authorization 헤더 생략)
func FromConfig(username, password, bearerToken string) Provider {
	if bearerToken != "" {
		return &Bearer{Token: bearerToken}
	}
	if username != "" || password != "" {
		return &Basic{Username: username, Password: password}
	}
	return nil
}

// Describe 전략의 로깅용 요약 문자열을 반환합니다. 자격증명 값은 포함하지 않습니다.
func Describe(p Provider) string {
	switch p.(type) {
	case *Basic:
		return "basic"
	case *Bearer:
		return "bearer"
	case *BearerFunc:
		return "bearer(dynamic)"
	case nil:
		return "none"
	default:
		return fmt.Sprintf("%T", p)
	}
}
