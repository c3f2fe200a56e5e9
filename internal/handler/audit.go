package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoPolymarket/panelgate/internal/model"
	"github.com/GoPolymarket/panelgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/panelgate/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type AuditLister interface {
	List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditRecord, error)
}

type AuditSubscriber interface {
	Subscribe() (<-chan *model.AuditRecord, func())
}

type AuditHandler struct {
	lister   AuditLister
	hub      AuditSubscriber
	upgrader websocket.Upgrader
}

func NewAuditHandler(lister AuditLister, hub AuditSubscriber, allowedOrigins []string) *AuditHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimSpace(o)] = struct{}{}
	}
	return &AuditHandler{
		lister: lister,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// List serves GET /v1/audit?actor=&resource=&from=&to=&limit=, newest first.
func (h *AuditHandler) List(c *gin.Context) {
	filter := model.AuditFilter{
		ActorID:      strings.TrimSpace(c.Query("actor")),
		ResourceType: strings.TrimSpace(c.Query("resource")),
		Limit:        100,
	}
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			fail(c, apperrors.NewValidation("limit must be a positive integer"))
			return
		}
		filter.Limit = parsed
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		t, err := parseTime(raw)
		if err != nil {
			fail(c, apperrors.NewValidation(p.name+" must be RFC3339 or unix seconds"))
			return
		}
		*p.dst = &t
	}

	records, err := h.lister.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, apperrors.NewStorage(err).WithDetail("operation", "audit_list"))
		return
	}
	if records == nil {
		records = []*model.AuditRecord{}
	}
	c.JSON(http.StatusOK, model.OK(records))
}

// Stream upgrades to a websocket and pushes every new record as JSON.
func (h *AuditHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写回了错误响应
		logger.Warn("audit stream upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	records, cancel := h.hub.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case rec, ok := <-records:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(rec); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time format")
}
