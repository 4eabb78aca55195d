package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/room"
)

func (s *GameServer) newRouter() *gin.Engine {
	if !s.cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/ws", s.handleWebSocket)
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.monitor.Handler()))
	r.GET("/debug/vars", gin.WrapH(s.monitor.VarsHandler()))

	api := r.Group("/api")
	api.GET("/rooms", s.handleListRooms)
	api.GET("/rooms/:code", s.handleRoomDetail)
	return r
}

// requestLogger logs every HTTP request except the websocket upgrade, whose
// lifetime is logged by the connection itself.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/ws" {
			return
		}
		logger.Log.Debugw("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func (s *GameServer) handleHealth(c *gin.Context) {
	if s.shuttingDown.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": s.pool.Len(),
		"rooms":       s.rooms.Len(),
	})
}

func (s *GameServer) handleListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": s.roomService.ListRooms()})
}

func (s *GameServer) handleRoomDetail(c *gin.Context) {
	detail, err := s.roomService.RoomDetail(c.Param("code"))
	if errors.Is(err, room.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, detail)
}
