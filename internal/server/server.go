package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/prometna/internal/ai"
	"github.com/dukerupert/prometna/internal/chat"
	"github.com/dukerupert/prometna/internal/config"
	"github.com/dukerupert/prometna/internal/content"
	"github.com/dukerupert/prometna/internal/handler"
	"github.com/dukerupert/prometna/internal/middleware"
	"github.com/dukerupert/prometna/internal/push"
	"github.com/dukerupert/prometna/internal/report"
	"github.com/dukerupert/prometna/internal/sheets"
	"github.com/dukerupert/prometna/internal/store"
	ws "github.com/dukerupert/prometna/internal/websocket"
)

const (
	aiRateLimit  = 20
	aiRateWindow = time.Minute
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	pushH       *handler.PushHandler
	chatH       *handler.ChatHandler
	reportH     *handler.ReportHandler
	transcribeH *handler.TranscribeHandler
	contentH    *handler.ContentHandler
	chatManager *chat.Manager
	mirror      *sheets.Mirror
	rateLimiter *middleware.RateLimiter
	adminToken  string
	logger      *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	pushStore := store.NewPushStore(db)
	contentStore := store.NewContentStore(db)

	aiClient := ai.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, ai.WithLiveModel(cfg.GeminiLiveModel))
	if !aiClient.Enabled() {
		logger.Warn("GEMINI_API_KEY is not set, AI features will fail and report categories fall back to keywords")
	}

	mirror := sheets.NewMirror(sheets.NewClient(cfg.SheetsWebhookURL), logger.With("component", "sheets"))

	// Push notification service
	var pushH *handler.PushHandler
	if cfg.PushEnabled() {
		pushSvc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber)
		broadcaster := push.NewBroadcaster(pushSvc, pushStore, hub, logger.With("component", "broadcast"))
		pushH = handler.NewPushHandler(pushStore, pushSvc, hub, broadcaster, logger.With("component", "push"))
	} else {
		logger.Warn("VAPID keys are not set, push notification routes are disabled")
	}

	chatManager := chat.NewManager(chat.NewAIBackend(aiClient), mirror, cfg.ChatIdleTTL, logger.With("component", "chat"))
	composer := report.NewComposer(aiClient, mirror, logger.With("component", "report"))
	dial := func(ctx context.Context) (report.LiveSession, error) {
		sess, err := aiClient.ConnectLive(ctx, ai.LiveConfig{TranscribeInput: true})
		if err != nil {
			return nil, err
		}
		return sess, nil
	}

	return &Server{
		db:          db,
		hub:         hub,
		pushH:       pushH,
		chatH:       handler.NewChatHandler(chatManager, logger.With("component", "chat_handler")),
		reportH:     handler.NewReportHandler(composer, logger.With("component", "report_handler")),
		transcribeH: handler.NewTranscribeHandler(dial, logger.With("component", "transcribe")),
		contentH:    handler.NewContentHandler(contentStore, content.NewService(aiClient, logger.With("component", "content")), logger.With("component", "content_handler")),
		chatManager: chatManager,
		mirror:      mirror,
		rateLimiter: middleware.NewRateLimiter(),
		adminToken:  cfg.AdminToken,
		logger:      logger,
	}
}

// ChatManager returns the chat session manager for the idle sweep.
func (s *Server) ChatManager() *chat.Manager {
	return s.chatManager
}

// Mirror returns the spreadsheet mirror so pending records can be flushed on shutdown.
func (s *Server) Mirror() *sheets.Mirror {
	return s.mirror
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	mux.HandleFunc("GET /health", s.healthHandler)

	s.registerRoutes(mux)

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(mux)
	return middleware.IdentifyDevice(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// rateLimitedHandler caps AI-backed routes per device.
func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.ByDevice, aiRateLimit, aiRateWindow)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Static content
	mux.HandleFunc("GET /api/content/calendar", s.contentH.Calendar)
	mux.HandleFunc("GET /api/content/documents", s.contentH.Documents)
	mux.HandleFunc("GET /api/content/contact", s.contentH.Contact)
	mux.HandleFunc("POST /api/content/news/search", s.rateLimitedHandler(s.contentH.SearchNews))
	mux.HandleFunc("GET /api/content/nearby", s.rateLimitedHandler(s.contentH.Nearby))

	// Chat
	mux.HandleFunc("POST /api/chat/sessions", s.chatH.Open)
	mux.HandleFunc("GET /api/chat/sessions/{id}", s.chatH.Get)
	mux.HandleFunc("POST /api/chat/sessions/{id}/messages", s.rateLimitedHandler(s.chatH.Send))
	mux.HandleFunc("DELETE /api/chat/sessions/{id}", s.chatH.Close)

	// Reports
	mux.HandleFunc("GET /api/report/categories", s.reportH.Categories)
	mux.HandleFunc("POST /api/report/analyze-image", s.rateLimitedHandler(s.reportH.AnalyzeImage))
	mux.HandleFunc("POST /api/report/suggest-category", s.rateLimitedHandler(s.reportH.SuggestCategory))
	mux.HandleFunc("POST /api/report/submit", s.rateLimitedHandler(s.reportH.Submit))
	mux.HandleFunc("GET /api/report/transcribe", s.rateLimitedHandler(s.transcribeH.Relay))

	// Push notification routes
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("GET /api/push/status", s.pushH.Status)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscription", s.pushH.Unsubscribe)
		mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)
		mux.Handle("POST /api/push/broadcast", middleware.RequireAdminToken(s.adminToken)(http.HandlerFunc(s.pushH.Broadcast)))
		mux.HandleFunc("GET /service-worker.js", s.pushH.ServiceWorker)
	}

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
