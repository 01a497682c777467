package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const statusMessage = "AI Agent is running!"

// Responder answers one user turn within a session.
type Responder interface {
	Respond(ctx context.Context, sessionID, userInput string) (string, error)
}

type APIHandler struct {
	responder Responder
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewAPIHandler(responder Responder, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		responder: responder,
		validate:  validator.New(),
		logger:    logger,
	}
}

type StatusResponse struct {
	Message string `json:"message"`
}

func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Message: statusMessage})
}

// AskRequest is the /ask body. UserInput may be empty but must be present.
type AskRequest struct {
	UserInput *string `json:"user_input" validate:"required"`
	SessionID string  `json:"session_id,omitempty" validate:"omitempty,max=128"`
}

type AskResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (h *APIHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: "Invalid request body: " + err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: validationDetail(err)})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	answer, err := h.responder.Respond(r.Context(), sessionID, *req.UserInput)
	if err != nil {
		h.logger.Error("error answering question", zap.String("session_id", sessionID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: "Internal Server Error"})
		return
	}
	writeJSON(w, http.StatusOK, AskResponse{Response: answer, SessionID: sessionID})
}

func validationDetail(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return "field required: " + jsonName(fe.Field())
	case "max":
		return jsonName(fe.Field()) + " is too long"
	default:
		return fe.Error()
	}
}

func jsonName(field string) string {
	switch field {
	case "UserInput":
		return "user_input"
	case "SessionID":
		return "session_id"
	default:
		return field
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
