package board

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestAnswerQuestionWithoutJwt(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
	}))
	defer server.Close()

	api := NewBoardApi(server.URL)
	defer api.Close()

	result, err := api.AnswerQuestionSync(&AnswerQuestionArgs{
		QuestionId: 1,
		Content:    "an answer",
	})

	// fails locally before any request leaves the client
	assert.Equal(t, nil, result)
	assert.Equal(t, ErrUnauthorized, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&requestCount))
}

func TestSetQuestionStatusWithoutJwt(t *testing.T) {
	api := NewBoardApi("http://localhost:0")
	defer api.Close()

	_, err := api.SetQuestionStatusSync(&SetQuestionStatusArgs{
		QuestionId: 1,
		Status:     StatusAnswered,
	})
	assert.Equal(t, ErrUnauthorized, err)

	_, err = api.SuggestAnswerSync(&SuggestAnswerArgs{
		QuestionId: 1,
	})
	assert.Equal(t, ErrUnauthorized, err)
}

func TestAnswerQuestion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PUT", r.Method)
		assert.Equal(t, "/questions/5/answer", r.URL.Path)
		assert.Equal(t, "Bearer test-jwt", r.Header.Get("Authorization"))

		bodyBytes, _ := io.ReadAll(r.Body)
		var body map[string]any
		json.Unmarshal(bodyBytes, &body)
		assert.Equal(t, "an answer", body["content"])

		json.NewEncoder(w).Encode(&Answer{
			Id:      10,
			Content: "an answer",
			UserId:  3,
		})
	}))
	defer server.Close()

	api := NewBoardApi(server.URL)
	defer api.Close()
	api.SetByJwt("test-jwt")

	answer, err := api.AnswerQuestionSync(&AnswerQuestionArgs{
		QuestionId: 5,
		Content:    "an answer",
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, int64(10), answer.Id)
}

func TestCreateQuestion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/questions/", r.URL.Path)

		bodyBytes, _ := io.ReadAll(r.Body)
		var body map[string]any
		json.Unmarshal(bodyBytes, &body)
		assert.Equal(t, "is this on?", body["content"])
		assert.Equal(t, true, body["is_anonymous"])

		json.NewEncoder(w).Encode(&Question{
			Id:          1,
			Content:     "is this on?",
			Status:      StatusPending,
			IsAnonymous: true,
		})
	}))
	defer server.Close()

	api := NewBoardApi(server.URL)
	defer api.Close()

	// no credential required to ask
	question, err := api.CreateQuestionSync(&CreateQuestionArgs{
		Content:     "is this on?",
		IsAnonymous: true,
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, int64(1), question.Id)
	assert.Equal(t, StatusPending, question.Status)
}

func TestSetQuestionStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PUT", r.Method)
		assert.Equal(t, "/questions/5/status", r.URL.Path)
		assert.Equal(t, "Escalated", r.URL.Query().Get("status"))

		json.NewEncoder(w).Encode(&Question{
			Id:     5,
			Status: StatusEscalated,
		})
	}))
	defer server.Close()

	api := NewBoardApi(server.URL)
	defer api.Close()
	api.SetByJwt("test-jwt")

	question, err := api.SetQuestionStatusSync(&SetQuestionStatusArgs{
		QuestionId: 5,
		Status:     StatusEscalated,
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, StatusEscalated, question.Status)
}

func TestRequestFailedCarriesServerMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Question not found"}`))
	}))
	defer server.Close()

	api := NewBoardApi(server.URL)
	defer api.Close()
	api.SetByJwt("test-jwt")

	_, err := api.AnswerQuestionSync(&AnswerQuestionArgs{
		QuestionId: 99,
		Content:    "too late",
	})

	requestErr, ok := err.(*RequestFailedError)
	assert.Equal(t, true, ok)
	assert.Equal(t, http.StatusNotFound, requestErr.StatusCode)
	assert.Equal(t, "Question not found", requestErr.Message)
}

func TestNetworkErrorOnUnreachableServer(t *testing.T) {
	api := NewBoardApi("http://127.0.0.1:1")
	defer api.Close()

	_, err := api.GetQuestionsSync()
	_, ok := err.(*NetworkError)
	assert.Equal(t, true, ok)
}

func TestGetQuestions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/questions/", r.URL.Path)

		w.Write([]byte(`[
			{"id": 1, "content": "first", "status": "Pending", "timestamp": "2024-05-01T10:00:00"},
			{"id": 2, "content": "second", "status": "Escalated", "timestamp": "2024-05-01T09:00:00"}
		]`))
	}))
	defer server.Close()

	api := NewBoardApi(server.URL)
	defer api.Close()

	questions, err := api.GetQuestionsSync()
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(questions))
	assert.Equal(t, int64(1), questions[0].Id)
	assert.Equal(t, StatusEscalated, questions[1].Status)
}

func TestAuthLoginPostsPasswordForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/auth/token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		r.ParseForm()
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "hunter2", r.PostForm.Get("password"))

		w.Write([]byte(`{"access_token": "a-jwt", "token_type": "bearer"}`))
	}))
	defer server.Close()

	api := NewBoardApi(server.URL)
	defer api.Close()

	result, err := api.AuthLoginSync(&AuthLoginArgs{
		Username: "alice",
		Password: "hunter2",
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, "a-jwt", result.AccessToken)
	assert.Equal(t, "bearer", result.TokenType)
}

func TestSuggestAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/questions/5/suggest", r.URL.Path)

		w.Write([]byte(`{"suggestion": "try turning it off and on"}`))
	}))
	defer server.Close()

	api := NewBoardApi(server.URL)
	defer api.Close()
	api.SetByJwt("test-jwt")

	result, err := api.SuggestAnswerSync(&SuggestAnswerArgs{
		QuestionId: 5,
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, "try turning it off and on", result.Suggestion)
}

func TestBlockingApiCallback(t *testing.T) {
	callback, c := NewBlockingApiCallback[*Question]()
	go callback.Result(&Question{Id: 1}, nil)
	result := <-c
	assert.Equal(t, nil, result.Error)
	assert.Equal(t, int64(1), result.Result.Id)
}
