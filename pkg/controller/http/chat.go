package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/domain/interfaces"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
)

const (
	defaultListLimit = 20
	maxRequestBody   = 1 << 20
)

// ChatHandler serves the relay API
type ChatHandler struct {
	relayUC interfaces.RelayUseCase
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(relayUC interfaces.RelayUseCase) *ChatHandler {
	return &ChatHandler{
		relayUC: relayUC,
	}
}

// Routes mounts the relay endpoints on r
func (h *ChatHandler) Routes(r chi.Router) {
	r.Get("/account", h.Account)
	r.Get("/models", h.Models)

	r.Route("/chats", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Start)

		r.Route("/{chatID}", func(r chi.Router) {
			r.Patch("/", h.Rename)
			r.Delete("/", h.Delete)
			r.Get("/log", h.Log)
			r.Post("/messages", h.Continue)
			r.Post("/regenerate", h.Regenerate)
			r.Post("/back", h.GoBack)
		})
	})
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type titleRequest struct {
	Title string `json:"title"`
}

// Account returns the account status
func (h *ChatHandler) Account(w http.ResponseWriter, r *http.Request) {
	status, err := h.relayUC.AccountStatus(r.Context())
	if err != nil {
		writeError(w, r, err, statusOf(err))
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// Models returns the model categories available to the account
func (h *ChatHandler) Models(w http.ResponseWriter, r *http.Request) {
	models, err := h.relayUC.ValidModels(r.Context())
	if err != nil {
		writeError(w, r, err, statusOf(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string][]string{"models": models})
}

// List returns conversations. Query: offset, limit, order.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	limit, err := intParam(q.Get("limit"), defaultListLimit)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	order := q.Get("order")
	switch order {
	case "":
		order = model.OrderUpdated
	case model.OrderUpdated, model.OrderCreated:
	default:
		writeError(w, r, goerr.New("order must be updated or created", goerr.V("order", order)), http.StatusBadRequest)
		return
	}

	chats, err := h.relayUC.ChatList(r.Context(), offset, limit, order)
	if err != nil {
		writeError(w, r, err, statusOf(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"items": chats})
}

// Start creates a conversation from the first prompt
func (h *ChatHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		writeError(w, r, goerr.New("prompt is required"), http.StatusBadRequest)
		return
	}

	reply, err := h.relayUC.Start(r.Context(), req.Prompt)
	if err != nil {
		writeError(w, r, err, statusOf(err))
		return
	}
	writeJSON(w, r, http.StatusCreated, reply)
}

// Continue asks the next question of a conversation
func (h *ChatHandler) Continue(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		writeError(w, r, goerr.New("prompt is required"), http.StatusBadRequest)
		return
	}

	reply, err := h.relayUC.Continue(r.Context(), chi.URLParam(r, "chatID"), req.Prompt)
	if err != nil {
		writeError(w, r, err, statusOf(err))
		return
	}
	writeJSON(w, r, http.StatusOK, reply)
}

// Regenerate answers the current question again, or an edited one when a prompt is given
func (h *ChatHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	// body is optional
	var req promptRequest
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	reply, err := h.relayUC.Regenerate(r.Context(), chi.URLParam(r, "chatID"), req.Prompt)
	if err != nil {
		writeError(w, r, err, statusOf(err))
		return
	}
	writeJSON(w, r, http.StatusOK, reply)
}

// GoBack moves a conversation to the previous answer
func (h *ChatHandler) GoBack(w http.ResponseWriter, r *http.Request) {
	reply, err := h.relayUC.GoBack(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		writeError(w, r, err, statusOf(err))
		return
	}
	writeJSON(w, r, http.StatusOK, reply)
}

// Log returns the messages from the root to the current node
func (h *ChatHandler) Log(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	entries, err := h.relayUC.ChatLog(r.Context(), chatID)
	if err != nil {
		writeError(w, r, err, statusOf(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"chat_id": chatID, "messages": entries})
}

// Rename changes the title of a conversation
func (h *ChatHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		writeError(w, r, goerr.New("title is required"), http.StatusBadRequest)
		return
	}

	if err := h.relayUC.RenameChat(r.Context(), chi.URLParam(r, "chatID"), req.Title); err != nil {
		writeError(w, r, err, statusOf(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete hides a conversation
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.relayUC.DeleteChat(r.Context(), chi.URLParam(r, "chatID")); err != nil {
		writeError(w, r, err, statusOf(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return goerr.Wrap(err, "invalid request body")
	}
	return nil
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, goerr.New("query parameter must be a non-negative integer", goerr.V("value", s))
	}
	return n, nil
}
