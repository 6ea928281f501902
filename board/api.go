package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

func defaultClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
	}
}

type apiCallback[R any] interface {
	Result(result R, err error)
}

// for internal use
type simpleApiCallback[R any] struct {
	callback func(result R, err error)
}

func NewApiCallback[R any](callback func(result R, err error)) apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: callback,
	}
}

func NewNoopApiCallback[R any]() apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: func(result R, err error) {},
	}
}

func (self *simpleApiCallback[R]) Result(result R, err error) {
	self.callback(result, err)
}

type ApiCallbackResult[R any] struct {
	Result R
	Error  error
}

func NewBlockingApiCallback[R any]() (apiCallback[R], chan ApiCallbackResult[R]) {
	c := make(chan ApiCallbackResult[R])
	apiCallback := NewApiCallback[R](func(result R, err error) {
		c <- ApiCallbackResult[R]{
			Result: result,
			Error:  err,
		}
	})
	return apiCallback, c
}

// BoardApi issues the out-of-band mutations against the board
// collaborator api. It never touches the question store: every
// mutation is observed back through the event stream, which keeps the
// store single-writer. Mutations that require a credential fail
// locally with ErrUnauthorized before any request is made.
type BoardApi struct {
	ctx    context.Context
	cancel context.CancelFunc

	apiUrl string

	byJwt string
}

func NewBoardApi(apiUrl string) *BoardApi {
	return NewBoardApiWithContext(context.Background(), apiUrl)
}

func NewBoardApiWithContext(ctx context.Context, apiUrl string) *BoardApi {
	cancelCtx, cancel := context.WithCancel(ctx)

	return &BoardApi{
		ctx:    cancelCtx,
		cancel: cancel,
		apiUrl: apiUrl,
	}
}

// this gets attached to api calls that need it
func (self *BoardApi) SetByJwt(byJwt string) {
	self.byJwt = byJwt
}

func (self *BoardApi) Close() {
	self.cancel()
}

type GetQuestionsCallback apiCallback[[]*Question]

// the initial snapshot used to seed the store before the stream
// starts delivering events
func (self *BoardApi) GetQuestions(callback GetQuestionsCallback) {
	go get(
		self.ctx,
		fmt.Sprintf("%s/questions/", self.apiUrl),
		self.byJwt,
		[]*Question{},
		callback,
	)
}

func (self *BoardApi) GetQuestionsSync() ([]*Question, error) {
	return get(
		self.ctx,
		fmt.Sprintf("%s/questions/", self.apiUrl),
		self.byJwt,
		[]*Question{},
		NewNoopApiCallback[[]*Question](),
	)
}

type CreateQuestionCallback apiCallback[*Question]

type CreateQuestionArgs struct {
	Content     string `json:"content"`
	IsAnonymous bool   `json:"is_anonymous"`
}

func (self *BoardApi) CreateQuestion(createQuestion *CreateQuestionArgs, callback CreateQuestionCallback) {
	go request(
		self.ctx,
		"POST",
		fmt.Sprintf("%s/questions/", self.apiUrl),
		createQuestion,
		self.byJwt,
		&Question{},
		callback,
	)
}

func (self *BoardApi) CreateQuestionSync(createQuestion *CreateQuestionArgs) (*Question, error) {
	return request(
		self.ctx,
		"POST",
		fmt.Sprintf("%s/questions/", self.apiUrl),
		createQuestion,
		self.byJwt,
		&Question{},
		NewNoopApiCallback[*Question](),
	)
}

type AnswerQuestionCallback apiCallback[*Answer]

type AnswerQuestionArgs struct {
	QuestionId int64  `json:"-"`
	Content    string `json:"content"`
}

func (self *BoardApi) AnswerQuestion(answerQuestion *AnswerQuestionArgs, callback AnswerQuestionCallback) {
	if self.byJwt == "" {
		go callback.Result(nil, ErrUnauthorized)
		return
	}
	go request(
		self.ctx,
		"PUT",
		fmt.Sprintf("%s/questions/%d/answer", self.apiUrl, answerQuestion.QuestionId),
		answerQuestion,
		self.byJwt,
		&Answer{},
		callback,
	)
}

func (self *BoardApi) AnswerQuestionSync(answerQuestion *AnswerQuestionArgs) (*Answer, error) {
	if self.byJwt == "" {
		return nil, ErrUnauthorized
	}
	return request(
		self.ctx,
		"PUT",
		fmt.Sprintf("%s/questions/%d/answer", self.apiUrl, answerQuestion.QuestionId),
		answerQuestion,
		self.byJwt,
		&Answer{},
		NewNoopApiCallback[*Answer](),
	)
}

type SetQuestionStatusCallback apiCallback[*Question]

type SetQuestionStatusArgs struct {
	QuestionId int64
	Status     QuestionStatus
}

func (self *BoardApi) SetQuestionStatus(setQuestionStatus *SetQuestionStatusArgs, callback SetQuestionStatusCallback) {
	if self.byJwt == "" {
		go callback.Result(nil, ErrUnauthorized)
		return
	}
	go request(
		self.ctx,
		"PUT",
		self.statusUrl(setQuestionStatus),
		nil,
		self.byJwt,
		&Question{},
		callback,
	)
}

func (self *BoardApi) SetQuestionStatusSync(setQuestionStatus *SetQuestionStatusArgs) (*Question, error) {
	if self.byJwt == "" {
		return nil, ErrUnauthorized
	}
	return request(
		self.ctx,
		"PUT",
		self.statusUrl(setQuestionStatus),
		nil,
		self.byJwt,
		&Question{},
		NewNoopApiCallback[*Question](),
	)
}

func (self *BoardApi) statusUrl(setQuestionStatus *SetQuestionStatusArgs) string {
	return fmt.Sprintf(
		"%s/questions/%d/status?status=%s",
		self.apiUrl,
		setQuestionStatus.QuestionId,
		url.QueryEscape(string(setQuestionStatus.Status)),
	)
}

type SuggestAnswerCallback apiCallback[*SuggestAnswerResult]

type SuggestAnswerArgs struct {
	QuestionId int64
}

// an opaque collaborator capability. The suggestion text is passed
// through to the caller unmodified.
type SuggestAnswerResult struct {
	Suggestion string `json:"suggestion"`
}

func (self *BoardApi) SuggestAnswer(suggestAnswer *SuggestAnswerArgs, callback SuggestAnswerCallback) {
	if self.byJwt == "" {
		go callback.Result(nil, ErrUnauthorized)
		return
	}
	go request(
		self.ctx,
		"POST",
		fmt.Sprintf("%s/questions/%d/suggest", self.apiUrl, suggestAnswer.QuestionId),
		nil,
		self.byJwt,
		&SuggestAnswerResult{},
		callback,
	)
}

func (self *BoardApi) SuggestAnswerSync(suggestAnswer *SuggestAnswerArgs) (*SuggestAnswerResult, error) {
	if self.byJwt == "" {
		return nil, ErrUnauthorized
	}
	return request(
		self.ctx,
		"POST",
		fmt.Sprintf("%s/questions/%d/suggest", self.apiUrl, suggestAnswer.QuestionId),
		nil,
		self.byJwt,
		&SuggestAnswerResult{},
		NewNoopApiCallback[*SuggestAnswerResult](),
	)
}

type AuthLoginCallback apiCallback[*AuthLoginResult]

type AuthLoginArgs struct {
	Username string
	Password string
}

type AuthLoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// the token endpoint takes the oauth2 password form
func (self *BoardApi) AuthLogin(authLogin *AuthLoginArgs, callback AuthLoginCallback) {
	go postForm(
		self.ctx,
		fmt.Sprintf("%s/auth/token", self.apiUrl),
		url.Values{
			"username": []string{authLogin.Username},
			"password": []string{authLogin.Password},
		},
		&AuthLoginResult{},
		callback,
	)
}

func (self *BoardApi) AuthLoginSync(authLogin *AuthLoginArgs) (*AuthLoginResult, error) {
	return postForm(
		self.ctx,
		fmt.Sprintf("%s/auth/token", self.apiUrl),
		url.Values{
			"username": []string{authLogin.Username},
			"password": []string{authLogin.Password},
		},
		&AuthLoginResult{},
		NewNoopApiCallback[*AuthLoginResult](),
	)
}

type AuthRegisterCallback apiCallback[*AuthRegisterResult]

type AuthRegisterArgs struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthRegisterResult struct {
	Id       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (self *BoardApi) AuthRegister(authRegister *AuthRegisterArgs, callback AuthRegisterCallback) {
	go request(
		self.ctx,
		"POST",
		fmt.Sprintf("%s/auth/register", self.apiUrl),
		authRegister,
		self.byJwt,
		&AuthRegisterResult{},
		callback,
	)
}

func (self *BoardApi) AuthRegisterSync(authRegister *AuthRegisterArgs) (*AuthRegisterResult, error) {
	return request(
		self.ctx,
		"POST",
		fmt.Sprintf("%s/auth/register", self.apiUrl),
		authRegister,
		self.byJwt,
		&AuthRegisterResult{},
		NewNoopApiCallback[*AuthRegisterResult](),
	)
}

func request[R any](ctx context.Context, method string, requestUrl string, args any, byJwt string, result R, callback apiCallback[R]) (R, error) {
	var requestBodyBytes []byte
	if args == nil {
		requestBodyBytes = make([]byte, 0)
	} else {
		var err error
		requestBodyBytes, err = json.Marshal(args)
		if err != nil {
			var empty R
			callback.Result(empty, err)
			return empty, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, requestUrl, bytes.NewReader(requestBodyBytes))
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	req.Header.Add("Content-Type", "application/json")

	if byJwt != "" {
		auth := fmt.Sprintf("Bearer %s", byJwt)
		req.Header.Add("Authorization", auth)
	}

	return do(req, result, callback)
}

func get[R any](ctx context.Context, requestUrl string, byJwt string, result R, callback apiCallback[R]) (R, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", requestUrl, nil)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	if byJwt != "" {
		auth := fmt.Sprintf("Bearer %s", byJwt)
		req.Header.Add("Authorization", auth)
	}

	return do(req, result, callback)
}

func postForm[R any](ctx context.Context, requestUrl string, form url.Values, result R, callback apiCallback[R]) (R, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", requestUrl, strings.NewReader(form.Encode()))
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	return do(req, result, callback)
}

func do[R any](req *http.Request, result R, callback apiCallback[R]) (R, error) {
	client := defaultClient()
	r, err := client.Do(req)
	if err != nil {
		var empty R
		netErr := &NetworkError{
			Op:  fmt.Sprintf("%s %s", req.Method, req.URL),
			Err: err,
		}
		callback.Result(empty, netErr)
		return empty, netErr
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)

	if http.StatusOK != r.StatusCode {
		// the response body carries the server error message
		requestErr := &RequestFailedError{
			StatusCode: r.StatusCode,
			Message:    serverErrorMessage(responseBodyBytes),
		}
		callback.Result(result, requestErr)
		return result, requestErr
	}

	if err != nil {
		callback.Result(result, err)
		return result, err
	}

	err = json.Unmarshal(responseBodyBytes, &result)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	callback.Result(result, nil)
	return result, nil
}

// error bodies are `{"detail": ...}` json when the server produced
// them, or plain text from an intermediary
func serverErrorMessage(body []byte) string {
	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return detail.Detail
	}
	return strings.TrimSpace(string(body))
}
