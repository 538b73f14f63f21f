package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/lostmahbles/listial-api/internal/api/auth"
	"github.com/lostmahbles/listial-api/internal/api/middleware"
	"github.com/lostmahbles/listial-api/internal/config"
	"github.com/lostmahbles/listial-api/internal/credential"
	"github.com/lostmahbles/listial-api/internal/model"
	"github.com/lostmahbles/listial-api/internal/pkg/mailqueue"
	"github.com/lostmahbles/listial-api/internal/pkg/metrics"
	"github.com/lostmahbles/listial-api/internal/pkg/notify"
	"github.com/lostmahbles/listial-api/internal/pkg/ratelimit"
	"github.com/lostmahbles/listial-api/internal/pkg/tokencache"
	"github.com/lostmahbles/listial-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、Redis 客户端以及 Gin 路由引擎；
// 清单操作通过 ListStore 接口进出，便于在测试里替换。
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *gorm.DB
	rdb      *redis.Client
	router   *gin.Engine
	auth     *auth.Handler
	lists    ListStore
	quota    QuotaPolicy
	notifier Notifier
}

// ListStore 是清单聚合的全部操作。
type ListStore interface {
	Create(ctx context.Context, title string, ownerID uint) (*model.List, error)
	ListsFor(ctx context.Context, userID uint, email string) ([]model.List, error)
	Get(ctx context.Context, listID, userID uint) (*model.List, error)
	Invite(ctx context.Context, listID, userID uint, email string) (*model.Invitation, error)
	RespondToInvite(ctx context.Context, listID uint, user *model.User, accept bool) (*model.List, error)
	RemoveMember(ctx context.Context, listID, userID uint) (bool, error)
	AddItem(ctx context.Context, listID, userID uint, text string) ([]model.ListItem, error)
	SetItemCompleted(ctx context.Context, listID, itemID, userID uint, completed bool) (*model.ListItem, error)
	ClearCompleted(ctx context.Context, listID, userID uint) (*model.List, error)
}

// Notifier 给受邀邮箱发邀请邮件，尽力而为。
type Notifier interface {
	SendInvitation(ctx context.Context, listID uint, toEmail, listTitle, inviterEmail string) error
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 连接 Redis
// 3. 组装凭证存储、清单存储与中间件
// 4. 初始化 Gin 路由引擎
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.List{},
		&model.ListMember{},
		&model.Invitation{},
		&model.ListItem{},
	); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	metrics.InitMetrics()

	credStore := credential.NewStore(db, logger)
	listStore := store.NewStore(db, logger)
	resolver := tokencache.NewResolver(rdb, credStore, cfg.App.TokenCacheTTL, logger)
	limiter := ratelimit.NewRedisRateLimiter(rdb, cfg.App.RateLimit, cfg.App.RateBurst)

	// 邀请邮件经由 Redis Streams 异步投递；worker 跟随服务生命周期。
	mailer := notify.NewEmailNotifier(&cfg.Email, logger)
	producer := mailqueue.NewProducer(rdb, logger)
	consumer, err := mailqueue.NewConsumer(rdb, logger, mailqueue.DefaultStream, "listial-mailer", "")
	if err != nil {
		return nil, err
	}
	go mailqueue.NewWorker(consumer, mailer, logger).Run(ctx)
	var notifier Notifier = notify.NewQueuedNotifier(producer)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics())

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		rdb:      rdb,
		router:   r,
		auth:     auth.NewHandler(credStore, resolver, logger),
		lists:    listStore,
		quota:    NewMaxListsPolicy(listStore, cfg.App.MaxListsPerUser),
		notifier: notifier,
	}
	s.registerRoutes(resolver, limiter)

	if cfg.App.InvitationTTL > 0 {
		go s.runJanitor(ctx, listStore, cfg.App.InvitationTTL)
	}
	return s, nil
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭数据库与缓存连接。
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil {
				if firstErr == nil {
					firstErr = closeErr
				}
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes(resolver middleware.TokenResolver, limiter middleware.Allower) {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/healthz", s.handleHealthz)

	// 凭证接口不要求令牌，但按来源 IP 限流。
	open := s.router.Group("/")
	open.Use(middleware.RateLimit(limiter, s.logger))
	open.POST("/auth", s.auth.Login)
	open.POST("/users", s.auth.Register)

	authed := s.router.Group("/")
	authed.Use(middleware.AuthMiddleware(resolver))
	authed.GET("/users/:id", s.auth.Show)
	authed.PUT("/users/:id", s.auth.Update)

	authed.POST("/lists", s.handleCreateList)
	authed.GET("/lists", s.handleListLists)
	authed.GET("/lists/:id", s.handleShowList)
	authed.DELETE("/lists/:id", s.handleDeleteList)
	authed.POST("/lists/:id/invitation", s.handleInvite)
	authed.PUT("/lists/:id/invitation", s.handleRespondInvite)
	authed.POST("/lists/:id/items", s.handleAddItem)
	authed.PUT("/lists/:id/items", s.handleClearCompleted)
	authed.PUT("/lists/:id/items/:item_id", s.handleUpdateItem)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
