package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingResponder struct {
	sessionID string
	input     string
	answer    string
	err       error
}

func (r *recordingResponder) Respond(_ context.Context, sessionID, userInput string) (string, error) {
	r.sessionID, r.input = sessionID, userInput
	return r.answer, r.err
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	router := NewRouter(NewAPIHandler(&recordingResponder{}, nil))

	rec := serve(t, router, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"AI Agent is running!"}`, rec.Body.String())
}

func TestAskIssuesSessionID(t *testing.T) {
	responder := &recordingResponder{answer: "Paris is the capital of France."}
	router := NewRouter(NewAPIHandler(responder, nil))

	rec := serve(t, router, http.MethodPost, "/ask", `{"user_input":"What is the capital of France?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Paris is the capital of France.", resp.Response)
	_, err := uuid.Parse(resp.SessionID)
	require.NoError(t, err)
	require.Equal(t, resp.SessionID, responder.sessionID)
	require.Equal(t, "What is the capital of France?", responder.input)
}

func TestAskKeepsGivenSessionID(t *testing.T) {
	responder := &recordingResponder{answer: "ok"}
	router := NewRouter(NewAPIHandler(responder, nil))

	rec := serve(t, router, http.MethodPost, "/ask/", `{"user_input":"yes","session_id":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"response":"ok","session_id":"abc"}`, rec.Body.String())
	require.Equal(t, "abc", responder.sessionID)
}

func TestAskAcceptsEmptyInput(t *testing.T) {
	responder := &recordingResponder{answer: "No relevant context found."}
	router := NewRouter(NewAPIHandler(responder, nil))

	rec := serve(t, router, http.MethodPost, "/ask", `{"user_input":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "", responder.input)
}

func TestAskRejectsBadRequests(t *testing.T) {
	router := NewRouter(NewAPIHandler(&recordingResponder{}, nil))

	for _, body := range []string{`{}`, `{"question":"hi"}`, `not json`, `{"user_input":null}`} {
		rec := serve(t, router, http.MethodPost, "/ask", body)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Detail)
	}

	rec := serve(t, router, http.MethodPost, "/ask", `{}`)
	require.Contains(t, rec.Body.String(), "user_input")
}

func TestAskResponderError(t *testing.T) {
	router := NewRouter(NewAPIHandler(&recordingResponder{err: errors.New("model unavailable")}, nil))

	rec := serve(t, router, http.MethodPost, "/ask", `{"user_input":"hello"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"detail":"Internal Server Error"}`, rec.Body.String())
}

func TestAskWrongMethod(t *testing.T) {
	router := NewRouter(NewAPIHandler(&recordingResponder{}, nil))
	rec := serve(t, router, http.MethodGet, "/ask", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
