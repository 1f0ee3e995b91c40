// Package answers exposes the answer lifecycle over a JSON HTTP API.
package answers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/answerdesk/internal/platform/errors"
	"github.com/louisbranch/answerdesk/internal/platform/requestctx"
	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
)

const maxBodyBytes = 1 << 20

// Service is the lifecycle surface the handlers call.
type Service interface {
	Create(ctx context.Context, input domain.CreateInput) (domain.Answer, error)
	Update(ctx context.Context, input domain.UpdateInput) (domain.Answer, error)
	Moderate(ctx context.Context, input domain.ModerateInput) (domain.Answer, error)
	Accept(ctx context.Context, input domain.AcceptInput) (domain.Answer, error)
	Delete(ctx context.Context, input domain.DeleteInput) error
	BulkModerate(ctx context.Context, input domain.BulkModerateInput) (domain.BulkResult, error)
	ListForQuestion(ctx context.Context, input domain.ListInput) (domain.AnswerPage, error)
	ListActions(ctx context.Context, input domain.ListActionsInput) ([]domain.Action, error)
}

var _ Service = (*domain.Manager)(nil)

// Handler serves the answers HTTP API.
type Handler struct {
	service Service
	auth    *Authenticator
}

// NewHandler builds a Handler. auth guards every route except /up.
func NewHandler(service Service, auth *Authenticator) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("answer service is required")
	}
	if auth == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	return &Handler{service: service, auth: auth}, nil
}

// Routes returns the HTTP routes.
func (h *Handler) Routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/questions/{questionID}/answers", h.handleCreate)
	api.HandleFunc("GET /v1/questions/{questionID}/answers", h.handleList)
	api.HandleFunc("POST /v1/answers/bulk-moderate", h.handleBulkModerate)
	api.HandleFunc("PATCH /v1/answers/{answerID}", h.handleUpdate)
	api.HandleFunc("DELETE /v1/answers/{answerID}", h.handleDelete)
	api.HandleFunc("POST /v1/answers/{answerID}/moderate", h.handleModerate)
	api.HandleFunc("POST /v1/answers/{answerID}/accept", h.handleAccept)
	api.HandleFunc("GET /v1/answers/{answerID}/actions", h.handleListActions)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/v1/", h.auth.Middleware(api))
	return mux
}

type contentRequest struct {
	Content string `json:"content"`
}

type moderateRequest struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment"`
}

type bulkModerateRequest struct {
	AnswerIDs []string `json:"answer_ids"`
	Approve   bool     `json:"approve"`
	Comment   string   `json:"comment"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	answer, err := h.service.Create(r.Context(), domain.CreateInput{
		QuestionID: r.PathValue("questionID"),
		ExpertID:   requestctx.UserIDFromContext(r.Context()),
		Content:    req.Content,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, answerToView(answer))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	pageSize := 0
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, apperrors.WithMetadata(apperrors.CodeValidationFailed, "page_size must be a non-negative integer", map[string]string{"field": "page_size"}))
			return
		}
		pageSize = parsed
	}
	page, err := h.service.ListForQuestion(r.Context(), domain.ListInput{
		QuestionID: r.PathValue("questionID"),
		ViewerID:   requestctx.UserIDFromContext(r.Context()),
		Filter:     query.Get("filter"),
		PageSize:   pageSize,
		PageToken:  query.Get("page_token"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	view := pageView{Answers: make([]answerView, 0, len(page.Answers)), NextPageToken: page.NextPageToken}
	for _, answer := range page.Answers {
		view.Answers = append(view.Answers, answerToView(answer))
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	answer, err := h.service.Update(r.Context(), domain.UpdateInput{
		AnswerID: r.PathValue("answerID"),
		ActorID:  requestctx.UserIDFromContext(r.Context()),
		Content:  req.Content,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answerToView(answer))
}

func (h *Handler) handleModerate(w http.ResponseWriter, r *http.Request) {
	var req moderateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	answer, err := h.service.Moderate(r.Context(), domain.ModerateInput{
		AnswerID:    r.PathValue("answerID"),
		ModeratorID: requestctx.UserIDFromContext(r.Context()),
		Approve:     req.Approve,
		Comment:     req.Comment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answerToView(answer))
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	answer, err := h.service.Accept(r.Context(), domain.AcceptInput{
		AnswerID: r.PathValue("answerID"),
		ActorID:  requestctx.UserIDFromContext(r.Context()),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answerToView(answer))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), domain.DeleteInput{
		AnswerID: r.PathValue("answerID"),
		ActorID:  requestctx.UserIDFromContext(r.Context()),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBulkModerate(w http.ResponseWriter, r *http.Request) {
	var req bulkModerateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.service.BulkModerate(r.Context(), domain.BulkModerateInput{
		AnswerIDs:   req.AnswerIDs,
		ModeratorID: requestctx.UserIDFromContext(r.Context()),
		Approve:     req.Approve,
		Comment:     req.Comment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkToView(result))
}

func (h *Handler) handleListActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.service.ListActions(r.Context(), domain.ListActionsInput{
		AnswerID: r.PathValue("answerID"),
		ActorID:  requestctx.UserIDFromContext(r.Context()),
		Filter:   r.URL.Query().Get("filter"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	view := actionsView{Actions: make([]actionView, 0, len(actions))}
	for _, action := range actions {
		view.Actions = append(view.Actions, actionToView(action))
	}
	writeJSON(w, http.StatusOK, view)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, apperrors.Wrap(apperrors.CodeValidationFailed, "request body is not valid JSON", err))
		return false
	}
	return true
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func writeError(w http.ResponseWriter, err error) {
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		log.Printf("answers http: internal error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, string(apperrors.CodeUnknown), "internal error")
		return
	}
	writeJSONError(w, domainErr.Code.HTTPStatus(), string(domainErr.Code), domainErr.Message)
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, errorResponse{Error: code, ErrorDescription: description})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}
