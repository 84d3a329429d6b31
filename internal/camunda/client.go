// Package camunda 오케스트레이터의 외부 작업(External Task) 임대 프로토콜 클라이언트입니다.
//
// 워커는 이 클라이언트를 통해 작업을 임대(fetchAndLock)하고, 처리 결과를
// 완료(complete), 기술적 실패(failure), 비즈니스 에러(bpmnError)로 보고합니다.
//
// 클라이언트는 작업 상태를 전혀 보관하지 않으며, 모든 메서드는 여러 고루틴에서
// 동시에 호출해도 안전합니다. 프로토콜 호출은 재시도되지 않습니다. 실패 시
// 재시도 여부는 호출자가 결정합니다.
//
// # 에러 분류
//
// 모든 메서드는 실패 원인에 따라 세 종류의 에러를 반환합니다:
//
//   - TransportError: HTTP 응답을 받지 못한 경우 (연결 실패, 타임아웃 등)
//   - OrchestratorError: 오케스트레이터가 비 2xx 상태로 요청을 거부한 경우
//   - ConfigurationError: 자격증명 설정 오류가 헤더 조립 시점에 감지된 경우
package camunda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/darkkaiser/camunda-worker/internal/camunda/auth"
	"github.com/darkkaiser/camunda-worker/internal/camunda/variables"
	apperrors "github.com/darkkaiser/camunda-worker/internal/pkg/errors"
	applog "github.com/darkkaiser/camunda-worker/pkg/log"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const component = "camunda.client"

// VariableFormatter 변수 맵을 오케스트레이터 와이어 포맷으로 변환하는 함수입니다.
// nil 맵이 전달되어도 항상 비어 있는 (nil이 아닌) 맵을 반환해야 합니다.
type VariableFormatter func(raw map[string]any) map[string]variables.Value

// Client 외부 작업 임대 프로토콜의 클라이언트입니다.
//
// 생성 후 모든 필드는 변경되지 않으며, 하나의 인스턴스를 여러 고루틴이
// 공유할 수 있습니다. 요청별 타임아웃은 context로 처리되므로 롱 폴링과
// 일반 호출이 독립적인 데드라인을 가집니다.
type Client struct {
	cfg     Config
	baseURL string

	transport    Transport
	authProvider auth.Provider
	formatVars   VariableFormatter
}

// Option Client 생성 시 적용할 설정 함수입니다.
type Option func(*Client)

// WithTransport HTTP 전송 구현을 교체합니다. (테스트용 대체 구현 주입 등)
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithAuthProvider 자격증명 전략을 설정합니다.
// 이미 설정된 전략이 있으면 마지막에 적용된 전략이 사용됩니다.
func WithAuthProvider(p auth.Provider) Option {
	return func(c *Client) {
		c.authProvider = p
	}
}

// WithBasicAuth HTTP Basic 자격증명 전략을 설정합니다.
func WithBasicAuth(username, password string) Option {
	return WithAuthProvider(&auth.Basic{Username: username, Password: password})
}

// WithBearerToken 정적 Bearer 토큰 자격증명 전략을 설정합니다.
// Basic 전략이 이미 설정되어 있더라도 이 전략이 이를 대체합니다.
func WithBearerToken(token string) Option {
	return WithAuthProvider(&auth.Bearer{Token: token})
}

// WithVariableFormatter 변수 포맷터를 교체합니다. (기본값: variables.Format)
func WithVariableFormatter(f VariableFormatter) Option {
	return func(c *Client) {
		c.formatVars = f
	}
}

// NewClient 새로운 Client 인스턴스를 생성합니다.
//
// cfg.WorkerID가 비어 있으면 "worker-<uuid>" 형태의 식별자가 자동으로
// 생성됩니다. 설정이 유효하지 않으면 에러를 반환합니다.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.WorkerID == "" {
		cfg.WorkerID = "worker-" + uuid.NewString()
	}

	c := &Client{
		cfg:     cfg,
		baseURL: cfg.normalizedBaseURL(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport = newPooledTransport()
	}
	if c.formatVars == nil {
		c.formatVars = variables.Format
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"worker_id": c.cfg.WorkerID,
		"base_url":  c.baseURL,
		"auth":      auth.Describe(c.authProvider),
	}).Debug("클라이언트가 생성되었습니다.")

	return c, nil
}

// WorkerID 이 클라이언트가 사용하는 워커 식별자를 반환합니다.
func (c *Client) WorkerID() string {
	return c.cfg.WorkerID
}

// Config 클라이언트 설정의 복사본을 반환합니다.
func (c *Client) Config() Config {
	return c.cfg
}

// Close 커넥션 풀의 유휴 커넥션을 정리합니다.
// 진행 중인 요청에는 영향을 주지 않습니다.
func (c *Client) Close() {
	type idleCloser interface {
		CloseIdleConnections()
	}
	if closer, ok := c.transport.(idleCloser); ok {
		closer.CloseIdleConnections()
	}
}

// FetchAndLock 지정된 토픽에서 작업 하나를 임대합니다.
//
// 오케스트레이터는 작업이 생길 때까지 최대 AsyncResponseTimeout 동안 응답을
// 지연하는 롱 폴링을 수행합니다. 이 호출의 HTTP 데드라인은 롱 폴링 대기
// 시간에 TimeoutDelta를 더한 값으로, 오케스트레이터의 빈 응답이 클라이언트
// 타임아웃보다 항상 먼저 도착하도록 보장합니다.
//
// 한 번의 호출에서 작업은 최대 하나만 임대되며, 반환된 작업의 원본 JSON은
// 변형 없이 LockedTask.Raw로 전달됩니다. 작업이 없으면 빈 슬라이스를
// 반환합니다.
func (c *Client) FetchAndLock(ctx context.Context, query FetchQuery) ([]LockedTask, error) {
	if err := validateFetchQuery(query); err != nil {
		return nil, err
	}

	const op = "fetchAndLock"

	// 롱 폴링 대기 시간보다 항상 긴 실효 데드라인을 적용한다.
	deadline := c.cfg.AsyncResponseTimeout + c.cfg.TimeoutDelta
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	body := fetchAndLockRequest{
		WorkerID:             c.cfg.WorkerID,
		MaxTasks:             1, // 한 번의 임대 호출에서 작업은 하나만 가져온다.
		UsePriority:          c.cfg.UsePriority,
		AsyncResponseTimeout: c.cfg.AsyncResponseTimeout.Milliseconds(),
		Topics:               c.buildTopicSubscriptions(query),
		Sorting:              c.cfg.Sorting,
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"worker_id": c.cfg.WorkerID,
		"topics":    query.Topics,
	}).Trace("작업 임대를 요청합니다.")

	resp, err := c.post(ctx, op, "/external-task/fetchAndLock", body)
	if err != nil {
		return nil, err
	}
	defer drainAndCloseBody(resp.Body)

	if !is2xx(resp.StatusCode) {
		return nil, newOrchestratorError(resp)
	}

	return decodeLockedTasks(resp.Body)
}

// Complete 작업 완료를 보고하고 임대를 해제합니다.
//
// variables와 localVariables는 nil이어도 되며, 변수 포맷터를 거쳐 항상
// 직렬화됩니다. 오케스트레이터가 204로 응답하면 true를, 그 외의 2xx 상태로
// 응답하면 false를 반환합니다. 비 2xx 상태는 에러로 반환됩니다.
func (c *Client) Complete(ctx context.Context, taskID string, req CompletionRequest) (bool, error) {
	if err := validateTaskID(taskID); err != nil {
		return false, err
	}

	body := completeRequest{
		WorkerID:       c.cfg.WorkerID,
		Variables:      c.formatVars(req.Variables),
		LocalVariables: c.formatVars(req.LocalVariables),
	}

	return c.postReport(ctx, "complete", fmt.Sprintf("/external-task/%s/complete", taskID), body)
}

// ReportFailure 작업의 기술적 실패를 보고합니다.
//
// report.Retries 값은 그대로 오케스트레이터에 전달됩니다. 0이면 재시도가
// 소진되어 인시던트가 생성되며, 감소 계산은 호출자의 책임입니다.
// report.ErrorDetails가 비어 있으면 해당 필드는 와이어에서 완전히 생략됩니다.
func (c *Client) ReportFailure(ctx context.Context, taskID string, report FailureReport) (bool, error) {
	if err := validateTaskID(taskID); err != nil {
		return false, err
	}

	body := failureRequest{
		WorkerID:     c.cfg.WorkerID,
		ErrorMessage: report.ErrorMessage,
		ErrorDetails: report.ErrorDetails,
		Retries:      report.Retries,
		RetryTimeout: report.RetryTimeout.Milliseconds(),
	}

	return c.postReport(ctx, "failure", fmt.Sprintf("/external-task/%s/failure", taskID), body)
}

// ReportBusinessError 작업의 비즈니스 에러(BPMN 에러)를 보고합니다.
// 에러는 프로세스 정의의 에러 경계 이벤트로 라우팅됩니다.
func (c *Client) ReportBusinessError(ctx context.Context, taskID string, report BusinessErrorReport) (bool, error) {
	if err := validateTaskID(taskID); err != nil {
		return false, err
	}

	body := bpmnErrorRequest{
		WorkerID:     c.cfg.WorkerID,
		ErrorCode:    report.ErrorCode,
		ErrorMessage: report.ErrorMessage,
		Variables:    c.formatVars(report.Variables),
	}

	return c.postReport(ctx, "bpmnError", fmt.Sprintf("/external-task/%s/bpmnError", taskID), body)
}

// Version 오케스트레이터의 버전을 조회합니다.
// 연결 상태 점검(Readiness Probe)에 사용됩니다.
func (c *Client) Version(ctx context.Context) (string, error) {
	const op = "version"

	ctx, cancel := context.WithTimeout(ctx, c.cfg.HTTPTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/version", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		return "", newTransportError(op, req.URL.String(), err)
	}
	defer drainAndCloseBody(resp.Body)

	if !is2xx(resp.StatusCode) {
		return "", newOrchestratorError(resp)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySnippetBytes))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ParsingFailed, "버전 응답 읽기 실패")
	}

	return gjson.GetBytes(payload, "version").String(), nil
}

// buildTopicSubscriptions 토픽 이름마다 구독 항목을 하나씩 생성합니다.
// 모든 항목은 필터와 클라이언트 설정값을 공유하며, 토픽 이름만 다릅니다.
func (c *Client) buildTopicSubscriptions(query FetchQuery) []topicSubscription {
	// 필터가 없어도 항상 빈 객체로 직렬화한다.
	processVariables := query.ProcessVariables
	if processVariables == nil {
		processVariables = map[string]any{}
	}

	subscriptions := make([]topicSubscription, 0, len(query.Topics))
	for _, topic := range query.Topics {
		subscriptions = append(subscriptions, topicSubscription{
			TopicName:                  topic,
			LockDuration:               c.cfg.LockDuration.Milliseconds(),
			ProcessVariables:           processVariables,
			Variables:                  query.Variables,
			IncludeExtensionProperties: c.cfg.IncludeExtensionProperties,
			DeserializeValues:          c.cfg.DeserializeValues,
		})
	}

	return subscriptions
}

// postReport 완료/실패/비즈니스 에러 보고 요청을 수행합니다.
// 오케스트레이터가 204로 응답한 경우에만 true를 반환합니다.
func (c *Client) postReport(ctx context.Context, op, path string, body any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HTTPTimeout)
	defer cancel()

	resp, err := c.post(ctx, op, path, body)
	if err != nil {
		return false, err
	}
	defer drainAndCloseBody(resp.Body)

	if !is2xx(resp.StatusCode) {
		return false, newOrchestratorError(resp)
	}

	// 보고의 성공 기준은 204 하나뿐이다. 그 외의 2xx는 보고가 반영되지
	// 않았을 수 있으므로 false를 반환하고 경고를 남긴다.
	if resp.StatusCode != http.StatusNoContent {
		applog.WithComponentAndFields(component, applog.Fields{
			"op":     op,
			"status": resp.Status,
		}).Warn("보고 요청이 204가 아닌 성공 상태로 응답되었습니다.")
		return false, nil
	}

	return true, nil
}

// post JSON 본문의 POST 요청을 수행합니다.
func (c *Client) post(ctx context.Context, op, path string, body any) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		return nil, newTransportError(op, req.URL.String(), err)
	}

	return resp, nil
}

// newRequest 헤더가 조립된 HTTP 요청을 생성합니다.
//
// 헤더는 요청마다 새로 조립됩니다. 자격증명 전략이 설정된 경우에만
// Authorization 헤더가 추가되며, 전략 평가에 실패하면 ConfigurationError를
// 반환합니다.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ParsingFailed, "요청 본문 직렬화 실패")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "HTTP 요청 생성 실패")
	}

	req.Header.Set("Content-Type", "application/json")

	if c.authProvider != nil {
		headerValue, err := c.authProvider.HeaderValue()
		if err != nil {
			return nil, &ConfigurationError{cause: err}
		}
		req.Header.Set("Authorization", headerValue)
	}

	return req, nil
}

// decodeLockedTasks 임대 응답 본문을 작업 목록으로 디코딩합니다.
func decodeLockedTasks(body io.Reader) ([]LockedTask, error) {
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ParsingFailed, "임대 응답 읽기 실패")
	}
	if len(payload) == 0 {
		return []LockedTask{}, nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(payload, &elements); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ParsingFailed, "임대 응답 디코딩 실패")
	}

	tasks := make([]LockedTask, 0, len(elements))
	for _, element := range elements {
		tasks = append(tasks, newLockedTask(element))
	}

	return tasks, nil
}

// validateFetchQuery 임대 조건의 유효성을 검증합니다.
func validateFetchQuery(query FetchQuery) error {
	if len(query.Topics) == 0 {
		return apperrors.New(apperrors.InvalidInput, "구독할 토픽이 지정되지 않았습니다")
	}
	for _, topic := range query.Topics {
		if topic == "" {
			return apperrors.New(apperrors.InvalidInput, "토픽 이름은 비어 있을 수 없습니다")
		}
	}
	return nil
}

// validateTaskID 작업 식별자의 유효성을 검증합니다.
func validateTaskID(taskID string) error {
	if taskID == "" {
		return apperrors.New(apperrors.InvalidInput, "작업 ID가 비어 있습니다")
	}
	return nil
}

// is2xx 상태 코드가 성공(2xx) 범위인지 확인합니다.
func is2xx(statusCode int) bool {
	return statusCode >= 200 && statusCode <= 299
}
