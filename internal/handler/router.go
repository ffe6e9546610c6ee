package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/messagely/internal/metrics"
	"github.com/hitoshi/messagely/internal/middleware"
)

// healthCheckTimeout はヘルスチェック時のDB疎通確認のタイムアウト。
const healthCheckTimeout = 2 * time.Second

// Pinger はヘルスチェックに必要なインターフェース。*sql.DBが満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	TokenVerifier     middleware.TokenVerifier

	// trueの場合のみX-Forwarded-For / X-Real-IPでRemoteAddrを書き換える。
	// falseではレート制限のIPキーに接続元アドレスを使う。
	TrustProxyHeaders bool

	// メトリクス（Gathererがnilの場合は/metricsを公開しない）
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	// ヘルスチェック
	DB Pinger

	// サービス
	AuthService    AuthServiceInterface
	UserService    UserServiceInterface
	MessageService interface {
		MessageServiceInterface
		MessageListerInterface
	}
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	[RealIP] → Recovery → Logging → Metrics → SecurityHeaders → CORS
//	  → Authenticate → RateLimit(General)
//
// RealIPはTrustProxyHeadersがtrueの場合のみ適用する。
// /health と /metrics は認証とレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}

	r := chi.NewRouter()

	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, collector)
	userHandler := NewUserHandler(deps.UserService, deps.MessageService)
	messageHandler := NewMessageHandler(deps.MessageService, collector)

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler(deps.DB))
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- API ---
	// ミドルウェアスタック: Authenticate → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthenticateMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 認証ルート（ログイン・登録専用のIP単位レート制限を追加）
		authRoutes := func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
		}
		r.Route("/auth", authRoutes)
		r.Group(authRoutes)

		// ユーザー
		r.Route("/users", func(r chi.Router) {
			r.With(middleware.RequireLoggedIn).Get("/", userHandler.List)

			r.Route("/{username}", func(r chi.Router) {
				r.Use(middleware.RequireCorrectUser("username"))
				r.Get("/", userHandler.Get)
				r.Get("/to", userHandler.Received)
				r.Get("/from", userHandler.Sent)
			})
		})

		// メッセージ
		r.Route("/messages", func(r chi.Router) {
			r.Use(middleware.RequireLoggedIn)
			r.Post("/", messageHandler.Create)
			r.Get("/{id}", messageHandler.Get)
			r.Post("/{id}/read", messageHandler.MarkRead)
		})
	})

	return r
}

// healthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
