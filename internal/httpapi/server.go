package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kiselevos/wordchain_game_bot/internal/game"
)

type StandingsReader interface {
	Standings(ctx context.Context, chatID int64) (game.Session, []game.Standing, error)
}

// Deps - всё, что показывает служебный HTTP. Queue и Timers необязательны.
type Deps struct {
	Standings StandingsReader
	Queue     interface{ Pending() int }
	Timers    interface{ Len() int }
	// Origins, с которых можно читать таблицу из браузера
	AllowedOrigins []string
}

type standingsResponse struct {
	SessionID int64           `json:"session_id"`
	State     game.State      `json:"state"`
	Players   []game.Standing `json:"players"`
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: d.AllowedOrigins,
			AllowMethods: []string{http.MethodGet},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/health", func(ctx *gin.Context) {
		body := gin.H{"status": "ok"}
		if d.Queue != nil {
			body["pending_updates"] = d.Queue.Pending()
		}
		if d.Timers != nil {
			body["armed_timers"] = d.Timers.Len()
		}
		ctx.JSON(http.StatusOK, body)
	})

	r.GET("/chats/:chat_id/standings", func(ctx *gin.Context) {
		chatID, err := strconv.ParseInt(ctx.Param("chat_id"), 10, 64)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-chat-id"})
			return
		}

		s, players, err := d.Standings.Standings(ctx.Request.Context(), chatID)
		switch {
		case errors.Is(err, game.ErrNoSession):
			ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no-session"})
			return
		case err != nil:
			slog.Error("standings failed", "chat_id", chatID, "err", err)
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
			return
		}

		ctx.JSON(http.StatusOK, standingsResponse{SessionID: s.ID, State: s.State, Players: players})
	})

	return r
}

// Serve держит сервер до отмены ctx, потом мягко гасит его.
func Serve(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
