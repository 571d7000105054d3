package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"example.com/banking-assistant/backend/internal/ai"
	"example.com/banking-assistant/backend/internal/orchestrator"
	"example.com/banking-assistant/backend/internal/query"
	"example.com/banking-assistant/backend/internal/store"
)

type ChatHandler struct {
	Orchestrator   *orchestrator.Orchestrator
	DefaultAccount string
}

// NewChatHandler создает обработчик чата.
func NewChatHandler(orch *orchestrator.Orchestrator, defaultAccount string) *ChatHandler {
	return &ChatHandler{
		Orchestrator:   orch,
		DefaultAccount: defaultAccount,
	}
}

type ChatContext struct {
	SelectedTransactionID string `json:"selectedTransactionId"`
}

type ChatRequest struct {
	AccountID string       `json:"accountId"`
	Message   string       `json:"message" validate:"required"`
	Context   *ChatContext `json:"context"`
}

// Chat принимает сообщение пользователя и возвращает query и ui.
func (h *ChatHandler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "message is required")
	}

	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		accountID = h.DefaultAccount
	}

	chatReq := orchestrator.ChatRequest{
		AccountID: accountID,
		Message:   req.Message,
	}
	if req.Context != nil {
		chatReq.SelectedTransactionID = req.Context.SelectedTransactionID
	}

	response, err := h.Orchestrator.Chat(c.Request().Context(), chatReq)
	if err != nil {
		var invalidSpec *ai.InvalidQuerySpecError
		switch {
		case errors.As(err, &invalidSpec):
			return unprocessable(c, "model returned an invalid query spec", invalidSpec.Errors)
		case errors.Is(err, query.ErrInvalidTimeRange):
			return unprocessable(c, err.Error(), nil)
		case errors.Is(err, ai.ErrUpstreamUnavailable):
			return badGateway(c, "model backend unavailable")
		case errors.Is(err, store.ErrNotFound):
			return notFound(c, "account data not found")
		default:
			slog.Error("chat request failed", slog.String("error", err.Error()))
			return serverError(c)
		}
	}

	return c.JSON(http.StatusOK, response)
}
