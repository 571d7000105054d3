package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/banking-assistant/backend/internal/store"
)

const dateLayout = "2006-01-02"

// ToolsHandler — коллаборатор-API поверх источника транзакций.
type ToolsHandler struct {
	Source store.Source
}

// NewToolsHandler создает обработчик tool-эндпоинтов.
func NewToolsHandler(source store.Source) *ToolsHandler {
	return &ToolsHandler{Source: source}
}

// ListTransactions отдает транзакции счета за окно дат, новые сверху.
func (h *ToolsHandler) ListTransactions(c echo.Context) error {
	accountID := strings.TrimSpace(c.QueryParam("accountId"))
	if accountID == "" {
		return badRequest(c, "accountId is required")
	}

	start, err := parseDateParam(c, "start")
	if err != nil {
		return badRequest(c, err.Error())
	}

	end, err := parseDateParam(c, "end")
	if err != nil {
		return badRequest(c, err.Error())
	}

	includePending := true
	if raw := c.QueryParam("includePending"); raw != "" {
		includePending, err = strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "includePending must be a boolean")
		}
	}

	limit := store.DefaultLimit
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > store.MaxLimit {
			return badRequest(c, "limit must be between 1 and 5000")
		}
	}

	transactions, err := store.Fetch(c.Request().Context(), h.Source, accountID, start, end, includePending, limit)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, transactions)
}

// GetTransaction отдает одну транзакцию счета по идентификатору.
func (h *ToolsHandler) GetTransaction(c echo.Context) error {
	accountID := strings.TrimSpace(c.QueryParam("accountId"))
	txID := strings.TrimSpace(c.Param("txId"))
	if accountID == "" || txID == "" {
		return badRequest(c, "accountId and txId are required")
	}

	tx, err := store.Find(c.Request().Context(), h.Source, accountID, txID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "transaction not found")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, tx)
}

// GetBalance отдает баланс счета.
func (h *ToolsHandler) GetBalance(c echo.Context) error {
	accountID := strings.TrimSpace(c.QueryParam("accountId"))
	if accountID == "" {
		return badRequest(c, "accountId is required")
	}

	balance, err := h.Source.Balance(c.Request().Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "balance not found")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, balance)
}

func parseDateParam(c echo.Context, name string) (time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return time.Time{}, errors.New(name + " is required")
	}

	value, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, errors.New(name + " must be a YYYY-MM-DD date")
	}

	return value, nil
}
