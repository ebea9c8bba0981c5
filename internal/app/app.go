package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/coladapo/wealthincome/api"
	"github.com/coladapo/wealthincome/internal/config"
	"github.com/coladapo/wealthincome/internal/engine"
	"github.com/coladapo/wealthincome/internal/explain"
	"github.com/coladapo/wealthincome/internal/fusion"
	"github.com/coladapo/wealthincome/internal/indicator"
	"github.com/coladapo/wealthincome/internal/infrastructure"
	"github.com/coladapo/wealthincome/internal/ledger"
	"github.com/coladapo/wealthincome/internal/marketdata"
	"github.com/coladapo/wealthincome/internal/model"
	"github.com/coladapo/wealthincome/internal/news"
	"github.com/coladapo/wealthincome/internal/push"
	"github.com/coladapo/wealthincome/internal/risk"
	"github.com/coladapo/wealthincome/internal/sentiment"
	"github.com/coladapo/wealthincome/internal/sim"
	"github.com/coladapo/wealthincome/internal/storage"
)

// App defines the application structure and its dependencies
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *pgxpool.Pool
	NC     *nats.Conn
	JS     nats.JetStreamContext
	Redis  *redis.Client

	Store       *storage.Store
	Book        *ledger.Portfolio
	RiskMgr     *risk.Manager
	Executor    *sim.Executor
	Alerts      *sim.AlertEvaluator
	Pipeline    *engine.Pipeline
	Market      marketdata.Provider
	News        *news.StaticSource
	PushGateway *push.Gateway
	HTTPServer  *http.Server
}

// NewApp creates a new application instance
func NewApp() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	infrastructure.Init()
	logger := infrastructure.Logger

	return &App{
		Config: &cfg,
		Logger: logger,
	}, nil
}

// Init initializes all application components
func (a *App) Init(ctx context.Context) error {
	// 1. Database
	dbPool, err := pgxpool.Connect(ctx, a.Config.DB_DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = dbPool

	if err := a.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// 2. NATS
	nc, js, err := infrastructure.InitNATS(a.Config.NatsURL, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.NC = nc
	a.JS = js

	// 3. Redis cache
	a.Redis = redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})

	// 4. Core services
	a.Store = storage.NewStore(a.DB, a.Logger)

	initialCash, err := decimal.NewFromString(a.Config.InitialCash)
	if err != nil {
		return fmt.Errorf("invalid INITIAL_CASH: %w", err)
	}
	a.Book = ledger.NewPortfolio(initialCash, a.Logger)

	publisher := push.NewEventPublisher(a.JS, a.Logger)
	a.RiskMgr = risk.NewManager(a.Config.RiskProfile(), a.Logger)
	a.Executor = sim.NewExecutor(a.Book, a.Config.SlippageBps, a.Config.FeeRate, publisher, a.Logger)
	a.Alerts = sim.NewAlertEvaluator(a.Book, a.Executor, publisher, a.Logger)

	a.Market = marketdata.NewCachedProvider(
		marketdata.NewSimProvider(), a.Redis,
		a.Config.BarCacheTTL(), a.Config.QuoteCacheTTL(), a.Logger)
	a.News = news.NewStaticSource()

	a.Pipeline = engine.NewPipeline(*a.Config, engine.Deps{
		Market:     a.Market,
		News:       a.News,
		Indicators: indicator.NewEngine(),
		Scorer:     sentiment.NewScorer(a.Config.SentimentHalfLife(), a.Config.NewsLookback()),
		Fuser:      fusion.NewFuser(a.Config.TechWeight, a.Config.SentimentWeight, a.Config.SignalHorizon()),
		Risk:       a.RiskMgr,
		Executor:   a.Executor,
		Alerts:     a.Alerts,
		Book:       a.Book,
		Explainer:  explain.NewRuleBased(),
		Store:      a.Store,
		Publisher:  publisher,
		Logger:     a.Logger,
	})

	a.PushGateway = push.NewGateway(a.JS, a.Logger)
	api.SetJWTSecret(a.Config.JWTSecret)

	return nil
}

// Run starts the application services and the HTTP server
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Journal persistence rides the fill event stream.
	if err := a.startPersistenceService(ctx); err != nil {
		return fmt.Errorf("failed to start persistence service: %w", err)
	}

	// Signal generation scheduler
	go a.Pipeline.Run(ctx)

	// Periodic portfolio snapshots
	go a.snapshotLoop(ctx)

	// Setup HTTP Server
	a.HTTPServer = &http.Server{
		Addr:    ":" + a.Config.Port,
		Handler: a.setupRouter(),
	}

	go func() {
		a.Logger.Info("starting http server", zap.String("port", a.Config.Port))
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	return a.waitForShutdown(cancel)
}

// startPersistenceService subscribes to fill events and appends closed
// trades to the journal.
func (a *App) startPersistenceService(ctx context.Context) error {
	_, err := a.JS.Subscribe("paper.fill.*", func(m *nats.Msg) {
		var event struct {
			Order *model.Order       `json:"order"`
			Trade *model.TradeRecord `json:"trade"`
		}
		if err := json.Unmarshal(m.Data, &event); err != nil {
			a.Logger.Error("failed to unmarshal fill event", zap.Error(err))
			return
		}
		if event.Trade != nil {
			if err := a.Store.InsertTrade(ctx, *event.Trade); err != nil {
				a.Logger.Error("failed to journal trade", zap.Error(err))
			}
		}
		m.Ack()
	}, nats.Durable("trade_journal"), nats.ManualAck())
	return err
}

// snapshotLoop periodically stores the portfolio state for the session
// history.
func (a *App) snapshotLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Store.InsertSnapshot(ctx, a.Book.View()); err != nil {
				a.Logger.Error("failed to store portfolio snapshot", zap.Error(err))
			}
		}
	}
}

// waitForShutdown handles graceful shutdown signals
func (a *App) waitForShutdown(cancel context.CancelFunc) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	a.Logger.Info("shutting down...")
	cancel()

	ctx, cancelTimeout := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelTimeout()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.NC.Close()
	a.Redis.Close()
	a.DB.Close()

	return nil
}

// initDatabase runs the database initialization script
func (a *App) initDatabase(ctx context.Context) error {
	sqlFile := "scripts/init.sql"
	content, err := os.ReadFile(sqlFile)
	if err != nil {
		return fmt.Errorf("failed to read init script: %w", err)
	}

	_, err = a.DB.Exec(ctx, string(content))
	if err != nil {
		return fmt.Errorf("failed to execute init script: %w", err)
	}

	a.Logger.Info("database initialized successfully")
	return nil
}

// setupRouter configures the Gin router and its routes
func (a *App) setupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	h := api.NewHandler(a.Store, a.Book, a.RiskMgr, a.Alerts, a.Executor, a.Pipeline, a.Market, a.Logger)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/register", h.Register)
		v1.POST("/login", h.Login)
		v1.GET("/signals/:symbol", h.GetSignal)
		v1.GET("/signals/:symbol/history", h.GetSignalHistory)
	}

	protected := r.Group("/api/v1")
	protected.Use(api.AuthMiddleware())
	{
		protected.GET("/portfolio", h.GetPortfolio)
		protected.GET("/positions", h.GetPositions)
		protected.GET("/journal", h.GetJournal)
		protected.POST("/orders", h.PlaceOrder)
		protected.GET("/risk", h.GetRiskProfile)
		protected.PUT("/risk", h.UpdateRiskProfile)
		protected.POST("/alerts", h.CreateAlert)
		protected.GET("/alerts", h.ListAlerts)
	}

	r.GET("/ws", func(c *gin.Context) {
		a.PushGateway.ServeHTTP(c.Writer, c.Request)
	})

	return r
}
