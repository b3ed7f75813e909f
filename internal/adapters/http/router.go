package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/dkeye/Relay/internal/adapters/ws"
	"github.com/dkeye/Relay/internal/app/stats"
	"github.com/dkeye/Relay/internal/config"
	"github.com/dkeye/Relay/internal/core"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Relay is what the router needs from the running relay core.
type Relay interface {
	core.Hub
	Stats() stats.Snapshot
	Subscribe() (<-chan stats.Snapshot, func())
	Rooms(ctx context.Context) ([]core.RoomInfo, error)
}

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, relay Relay) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("RelaySessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/stats", func(c *gin.Context) {
		snap := relay.Stats()
		body := snap.Metrics()
		body["sampledAt"] = snap.SampledAt.UTC().Format(time.RFC3339)
		c.JSON(http.StatusOK, body)
	})

	api.GET("/stats/stream", func(c *gin.Context) {
		updates, cancel := relay.Subscribe()
		defer cancel()

		first := true
		c.Stream(func(w io.Writer) bool {
			if first {
				first = false
				c.SSEvent("stats", relay.Stats().Metrics())
				return true
			}
			select {
			case <-c.Request.Context().Done():
				return false
			case snap, ok := <-updates:
				if !ok {
					return false
				}
				c.SSEvent("stats", snap.Metrics())
				return true
			}
		})
	})

	api.GET("/rooms", func(c *gin.Context) {
		rooms, err := relay.Rooms(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rooms": rooms})
	})

	wsHandler := ws.NewHandler(relay, ws.Options{
		SendQueue:  cfg.SendQueue,
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
	})
	api.GET("/ws/relay", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("token", c.GetString("client_token")).Msg("ws relay endpoint hit")
		wsHandler.ServeHTTP(c.Writer, c.Request)
	})

	return r
}
