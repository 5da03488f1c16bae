package handler

import (
	"log"
	"net/http"

	"clickbag.eco/backend/internal/service"
	"clickbag.eco/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type StatsHandler struct {
	statsService service.StatsService
	upgrader     websocket.Upgrader
}

func NewStatsHandler(statsService service.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}
}

func (h *StatsHandler) GetCommunityStats(c *gin.Context) {
	stats, err := h.statsService.Community(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// HandleLiveStats upgrades to a websocket and pushes the community counters
// whenever the ledger commits an aggregate change. The initial snapshot is
// sent on connect so dashboards render immediately.
func (h *StatsHandler) HandleLiveStats(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("failed to upgrade stats websocket: %v", err)
		return
	}
	defer conn.Close()

	hub := h.statsService.Hub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	if stats, err := h.statsService.Community(c.Request.Context()); err == nil {
		if err := conn.WriteJSON(stats); err != nil {
			return
		}
	}

	// Reader goroutine detects client disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case stats, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(stats); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
