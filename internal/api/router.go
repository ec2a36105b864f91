package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"scramble-service/internal/board"
	"scramble-service/internal/service"
	"scramble-service/internal/ws"
	appErr "scramble-service/pkg/errors"
	"scramble-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Game)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	// Game routes answer text/plain board views, matching the original
	// wire format the web clients expect.
	r.GET("/look/:player", handler.Look)
	r.GET("/flip/:player/:location", handler.Flip)
	r.GET("/replace/:player/:from/:to", handler.Replace)
	r.GET("/watch/:player", handler.Watch)

	r.GET("/scores", handler.Scores)

	adminGroup := r.Group("/admin")
	{
		adminGroup.GET("/matches", handler.ListMatches)
	}

	r.GET("/ws/board", wsHandler.HandleBoardWS)
}

func (h *Handler) Look(c *gin.Context) {
	player, ok := playerParam(c)
	if !ok {
		return
	}

	view, err := h.services.Game.Look(player)
	if err != nil {
		writeBoardError(c, err)
		return
	}
	c.String(http.StatusOK, view)
}

func (h *Handler) Flip(c *gin.Context) {
	player, ok := playerParam(c)
	if !ok {
		return
	}

	row, col, err := parseLocation(c.Param("location"))
	if err != nil {
		c.String(http.StatusBadRequest, "error: %v", err)
		return
	}

	view, err := h.services.Game.Flip(c.Request.Context(), player, row, col)
	if err != nil {
		writeBoardError(c, err)
		return
	}
	c.String(http.StatusOK, view)
}

func (h *Handler) Replace(c *gin.Context) {
	player, ok := playerParam(c)
	if !ok {
		return
	}

	from := c.Param("from")
	to := c.Param("to")
	if !board.ValidLabel(from) || !board.ValidLabel(to) {
		c.String(http.StatusBadRequest, "error: %v", appErr.ErrInvalidLabel)
		return
	}

	transform := func(ctx context.Context, label string) (string, error) {
		if label == from {
			return to, nil
		}
		return label, nil
	}

	view, err := h.services.Game.Map(c.Request.Context(), player, transform)
	if err != nil {
		writeBoardError(c, err)
		return
	}
	c.String(http.StatusOK, view)
}

func (h *Handler) Watch(c *gin.Context) {
	player, ok := playerParam(c)
	if !ok {
		return
	}

	// The request context cancels the wait when the client disconnects,
	// so abandoned watchers do not pile up.
	view, err := h.services.Game.Watch(c.Request.Context(), player)
	if err != nil {
		writeBoardError(c, err)
		return
	}
	c.String(http.StatusOK, view)
}

func (h *Handler) Scores(c *gin.Context) {
	n := int64(10)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 || parsed > 100 {
			response.Error(c, http.StatusBadRequest, "invalid limit")
			return
		}
		n = parsed
	}

	entries, err := h.services.Score.Top(c.Request.Context(), n)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"scores": entries})
}

func (h *Handler) ListMatches(c *gin.Context) {
	page, err := parsePositiveIntQuery(c, "page", 1)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	size, err := parsePositiveIntQuery(c, "size", 20)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.History.List(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.Success(c, gin.H{
		"items": result.Items,
		"total": result.Total,
		"page":  page,
		"size":  size,
	})
}

func playerParam(c *gin.Context) (string, bool) {
	player := c.Param("player")
	if !board.ValidPlayerID(player) {
		c.String(http.StatusBadRequest, "error: %v", appErr.ErrInvalidPlayer)
		return "", false
	}
	return player, true
}

func parsePositiveIntQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

func parseLocation(location string) (int, int, error) {
	parts := strings.Split(location, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("location must be row,column, got %q", location)
	}
	row, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid row %q", parts[0])
	}
	col, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid column %q", parts[1])
	}
	return row, col, nil
}

// writeBoardError maps board errors to statuses: illegal moves are
// conflicts, bad input is a client error, a corrupted board is a server
// error. Cancelled waits (client gone) get no body.
func writeBoardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErr.ErrEmptyCell), errors.Is(err, appErr.ErrSameCell):
		c.String(http.StatusConflict, "cannot flip this card: %v", err)
	case errors.Is(err, appErr.ErrOutOfBounds),
		errors.Is(err, appErr.ErrInvalidPlayer),
		errors.Is(err, appErr.ErrInvalidLabel):
		c.String(http.StatusBadRequest, "error: %v", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.Status(http.StatusRequestTimeout)
	default:
		c.String(http.StatusInternalServerError, "error: %v", err)
	}
}
