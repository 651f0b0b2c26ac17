package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/imageflow/api"
	"github.com/BaSui01/imageflow/api/handlers"
	"github.com/BaSui01/imageflow/config"
	"github.com/BaSui01/imageflow/editor"
	"github.com/BaSui01/imageflow/history"
	"github.com/BaSui01/imageflow/internal/cache"
	"github.com/BaSui01/imageflow/internal/metrics"
	"github.com/BaSui01/imageflow/internal/server"
	"github.com/BaSui01/imageflow/internal/telemetry"
	"github.com/BaSui01/imageflow/session"
)

// 后台巡检周期
const (
	sessionsPollInterval = 15 * time.Second
	dbStatsPollInterval  = 30 * time.Second
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 ImageFlow 的主服务器
type Server struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	db         *gorm.DB
	otel       *telemetry.Providers

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 核心部件
	store        session.Store
	cacheManager *cache.Manager
	provider     *editor.SwitchableProvider
	manager      *session.Manager
	repo         *history.Repository
	tokens       *api.TokenIssuer

	// Handlers
	sessionHandler *handlers.SessionHandler
	historyHandler *handlers.HistoryHandler
	healthHandler  *handlers.HealthHandler

	// 指标收集器
	metricsCollector *metrics.Collector

	// 热更新管理器
	hotReloadManager *config.HotReloadManager
	configAPIHandler *config.ConfigAPIHandler

	// 后台任务与限流清理的生命周期
	bgCtx    context.Context
	bgCancel context.CancelFunc

	wg sync.WaitGroup
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, configPath string, logger *zap.Logger, otelProviders *telemetry.Providers, db *gorm.DB) *Server {
	return &Server{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		otel:       otelProviders,
		db:         db,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	s.bgCtx, s.bgCancel = context.WithCancel(context.Background())

	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("imageflow", s.logger)

	// 2. 初始化会话存储
	if err := s.initStore(); err != nil {
		return fmt.Errorf("failed to init session store: %w", err)
	}

	// 3. 初始化编辑提供者
	if err := s.initEditor(); err != nil {
		return fmt.Errorf("failed to init editor provider: %w", err)
	}

	// 4. 初始化会话编排器（含历史落库）
	s.initSessionManager()

	// 5. 初始化媒体令牌签发器与 Handlers
	if err := s.initTokenIssuer(); err != nil {
		return fmt.Errorf("failed to init token issuer: %w", err)
	}
	s.initHandlers()

	// 6. 初始化热更新管理器
	if err := s.initHotReloadManager(); err != nil {
		return fmt.Errorf("failed to init hot reload manager: %w", err)
	}

	// 7. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 8. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	// 9. 启动后台任务
	s.startBackgroundWorkers()

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("session_store", s.cfg.Session.Store),
		zap.Bool("history_enabled", s.repo != nil),
		zap.Bool("hot_reload_enabled", s.configPath != ""),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initStore 初始化会话存储（memory 或 redis）
func (s *Server) initStore() error {
	switch s.cfg.Session.Store {
	case "redis":
		cacheManager, err := cache.NewManager(cache.Config{
			Addr:         s.cfg.Redis.Addr,
			Password:     s.cfg.Redis.Password,
			DB:           s.cfg.Redis.DB,
			DefaultTTL:   s.cfg.Session.TTL,
			PoolSize:     s.cfg.Redis.PoolSize,
			MinIdleConns: s.cfg.Redis.MinIdleConns,
		}, s.logger)
		if err != nil {
			return err
		}
		s.cacheManager = cacheManager
		s.store = session.NewRedisStore(cacheManager, s.cfg.Session.TTL)
		s.logger.Info("session store initialized",
			zap.String("store", "redis"),
			zap.String("addr", s.cfg.Redis.Addr),
		)
	default:
		s.store = session.NewMemoryStore(s.cfg.Session.TTL, s.cfg.Session.SweepInterval)
		s.logger.Info("session store initialized", zap.String("store", "memory"))
	}
	return nil
}

// initEditor 初始化编辑提供者并包装为可热切换的代理
func (s *Server) initEditor() error {
	provider, err := editor.New(editorConfig(s.cfg.Editor), s.logger)
	if err != nil {
		return err
	}
	s.provider = editor.NewSwitchable(provider)
	s.logger.Info("editor provider initialized", zap.String("provider", s.provider.Name()))
	return nil
}

// initSessionManager 初始化会话编排器与编辑历史仓库
func (s *Server) initSessionManager() {
	if s.db != nil && s.cfg.History.Enabled {
		repo, err := history.NewRepository(s.db, s.logger)
		if err != nil {
			s.logger.Error("failed to init history repository, edit history disabled", zap.Error(err))
		} else {
			s.repo = repo
		}
	}

	// 接口里包一个 nil 指针会绕过 EditRecorder 的 nil 判断，必须保持真 nil
	var sink session.Recorder
	if s.repo != nil {
		sink = s.repo
	}
	recorder := metrics.NewEditRecorder(s.metricsCollector, sink)

	managerCfg := session.ManagerConfig{MaxPayloadBytes: s.cfg.Session.MaxPayloadBytes}
	s.manager = session.NewManager(managerCfg, s.store, s.provider, s.logger).WithRecorder(recorder)
}

// initTokenIssuer 初始化媒体访问令牌签发器
func (s *Server) initTokenIssuer() error {
	if s.cfg.Auth.MediaSecret == "" {
		s.logger.Warn("auth.media_secret not configured, using an ephemeral secret; media URLs will not survive a restart")
	}
	issuer, err := api.NewTokenIssuer(s.cfg.Auth.MediaSecret, s.cfg.Auth.MediaTokenTTL)
	if err != nil {
		return err
	}
	s.tokens = issuer
	return nil
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	if s.repo != nil {
		s.healthHandler.RegisterCheck(handlers.NewDatabaseHealthCheck("history-db", s.repo.Ping))
	}
	if s.cacheManager != nil {
		s.healthHandler.RegisterCheck(handlers.NewRedisHealthCheck("session-redis", s.cacheManager.Ping))
	}

	s.sessionHandler = handlers.NewSessionHandler(s.manager, s.tokens, int64(s.cfg.Session.MaxPayloadBytes), s.logger)
	s.historyHandler = handlers.NewHistoryHandler(s.repo, s.logger)

	s.logger.Info("handlers initialized")
}

// initHotReloadManager 初始化热更新管理器
func (s *Server) initHotReloadManager() error {
	opts := []config.HotReloadOption{
		config.WithHotReloadLogger(s.logger),
	}

	if s.configPath != "" {
		opts = append(opts, config.WithConfigPath(s.configPath))
	}

	s.hotReloadManager = config.NewHotReloadManager(s.cfg, opts...)

	// 注册配置变更回调
	s.hotReloadManager.OnChange(func(change config.ConfigChange) {
		s.logger.Info("Configuration changed",
			zap.String("path", change.Path),
			zap.String("source", change.Source),
			zap.Bool("requires_restart", change.RequiresRestart),
		)
	})

	// 注册配置重载回调：编辑提供者配置变化时热切换提供者
	s.hotReloadManager.OnReload(func(oldConfig, newConfig *config.Config) {
		s.logger.Info("Configuration reloaded")
		s.cfg = newConfig
		s.applyEditorConfig(oldConfig.Editor, newConfig.Editor)
	})

	// 启动热更新管理器
	ctx := context.Background()
	if err := s.hotReloadManager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start hot reload manager: %w", err)
	}

	// 创建配置 API 处理器
	s.configAPIHandler = config.NewConfigAPIHandler(s.hotReloadManager)

	return nil
}

// applyEditorConfig 在编辑提供者配置变化时重建并热切换提供者。
// 重建失败时保留旧提供者继续服务。
func (s *Server) applyEditorConfig(oldCfg, newCfg config.EditorConfig) {
	if oldCfg == newCfg {
		return
	}

	provider, err := editor.New(editorConfig(newCfg), s.logger)
	if err != nil {
		s.logger.Error("failed to rebuild editor provider, keeping previous one", zap.Error(err))
		return
	}

	s.provider.Swap(provider)
	s.logger.Info("editor provider swapped", zap.String("provider", provider.Name()))
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)

	// 版本信息端点
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// ========================================
	// 会话 API
	// ========================================
	mux.HandleFunc("POST /v1/sessions", s.sessionHandler.HandleCreate)
	mux.HandleFunc("GET /v1/sessions/{id}", s.sessionHandler.HandleGet)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.sessionHandler.HandleDelete)
	mux.HandleFunc("PUT /v1/sessions/{id}/image", s.sessionHandler.HandleSelectImage)
	mux.HandleFunc("POST /v1/sessions/{id}/edits", s.sessionHandler.HandleSubmitEdit)
	mux.HandleFunc("GET /v1/sessions/{id}/preview", s.sessionHandler.HandlePreview)
	mux.HandleFunc("GET /v1/sessions/{id}/result", s.sessionHandler.HandleResult)

	// 编辑历史
	mux.HandleFunc("GET /v1/history", s.historyHandler.HandleList)

	// ========================================
	// 配置管理 API（需要独立认证保护）
	// 配置 API 是敏感的管理端点，必须经过认证中间件保护，
	// 不依赖全局中间件链的顺序，而是显式包装认证检查。
	// ========================================
	if s.configAPIHandler != nil {
		configAuth := config.NewConfigAPIMiddleware(s.configAPIHandler, s.cfg.Auth.APIKeys)
		mux.HandleFunc("/v1/config", configAuth.RequireAuth(s.configAPIHandler.HandleConfig))
		mux.HandleFunc("/v1/config/reload", configAuth.RequireAuth(s.configAPIHandler.HandleReload))
		mux.HandleFunc("/v1/config/fields", configAuth.RequireAuth(s.configAPIHandler.HandleFields))
		mux.HandleFunc("/v1/config/changes", configAuth.RequireAuth(s.configAPIHandler.HandleChanges))
		s.logger.Info("Configuration API registered with authentication")
	}

	// ========================================
	// 构建中间件链
	// ========================================
	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}
	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		OTelTracing(),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(s.bgCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	}
	if len(s.cfg.Auth.APIKeys) > 0 {
		middlewares = append(middlewares, APIKeyAuth(s.cfg.Auth.APIKeys, skipAuthPaths, s.logger))
	} else {
		s.logger.Warn("auth.api_keys not configured, API authentication disabled")
	}
	handler := Chain(mux, middlewares...)

	// ========================================
	// 使用 internal/server.Manager
	// ========================================
	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout, // 2x ReadTimeout
		MaxHeaderBytes:  1 << 20,                      // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager("api", handler, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager("metrics", mux, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🔁 后台任务
// =============================================================================

// startBackgroundWorkers 启动后台巡检任务
func (s *Server) startBackgroundWorkers() {
	s.wg.Add(1)
	go s.pollSessions(s.bgCtx)

	if s.repo != nil {
		s.wg.Add(1)
		go s.purgeHistory(s.bgCtx)

		s.wg.Add(1)
		go s.pollDBStats(s.bgCtx)
	}
}

// pollSessions 周期性刷新活跃会话数指标
func (s *Server) pollSessions(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(sessionsPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.manager.Count(ctx)
			if err != nil {
				s.logger.Warn("failed to count sessions", zap.Error(err))
				continue
			}
			s.metricsCollector.SetSessionsActive(n)
		}
	}
}

// purgeHistory 周期性清理超过保留时长的编辑历史。
// 保留时长每轮从热更新管理器读取，配置热更新即时生效。
func (s *Server) purgeHistory(ctx context.Context) {
	defer s.wg.Done()

	interval := s.cfg.History.PurgeInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			retention := s.hotReloadManager.GetConfig().History.Retention
			if retention <= 0 {
				continue
			}

			start := time.Now()
			n, err := s.repo.Purge(ctx, time.Now().Add(-retention))
			s.metricsCollector.RecordDBQuery("history", "purge", time.Since(start))
			if err != nil {
				s.logger.Warn("history purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("history purged",
					zap.Int64("records", n),
					zap.Duration("retention", retention),
				)
			}
		}
	}
}

// pollDBStats 周期性刷新数据库连接池指标
func (s *Server) pollDBStats(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(dbStatsPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := s.repo.Stats()
			if err != nil {
				continue
			}
			s.metricsCollector.RecordDBConnections("history", stats.OpenConnections, stats.Idle)
		}
	}
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	// 使用 httpManager 的 WaitForShutdown（它会监听信号）
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	// 执行清理
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 0. 停止后台任务与限流清理 goroutine
	if s.bgCancel != nil {
		s.bgCancel()
	}

	// 1. 停止热更新管理器
	if s.hotReloadManager != nil {
		if err := s.hotReloadManager.Stop(); err != nil {
			s.logger.Error("Hot reload manager shutdown error", zap.Error(err))
		}
	}

	// 2. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 4. 等待所有后台 goroutine 完成
	s.wg.Wait()

	// 5. 关闭会话存储与 Redis 连接
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("Session store close error", zap.Error(err))
		}
	}
	if s.cacheManager != nil {
		if err := s.cacheManager.Close(); err != nil {
			s.logger.Error("Redis close error", zap.Error(err))
		}
	}

	// 6. 关闭数据库连接
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	// 7. 刷新并关闭遥测
	if s.otel != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.otel.Shutdown(flushCtx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
		cancel()
	}

	s.logger.Info("Graceful shutdown completed")
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// editorConfig 将应用配置映射为编辑提供者配置。
// APIKey、BaseURL、Model、Timeout 按 provider 择一生效，
// 未覆盖的字段保留各提供者的默认值。
func editorConfig(cfg config.EditorConfig) editor.Config {
	gemini := editor.DefaultGeminiConfig()
	openai := editor.DefaultOpenAIConfig()

	gemini.APIKey = cfg.APIKey
	openai.APIKey = cfg.APIKey
	if cfg.BaseURL != "" {
		gemini.BaseURL = cfg.BaseURL
		openai.BaseURL = cfg.BaseURL
	}
	if cfg.Model != "" {
		gemini.Model = cfg.Model
		openai.Model = cfg.Model
	}
	if cfg.Timeout > 0 {
		gemini.Timeout = cfg.Timeout
		openai.Timeout = cfg.Timeout
	}

	return editor.Config{
		Provider: cfg.Provider,
		Gemini:   gemini,
		OpenAI:   openai,
	}
}
