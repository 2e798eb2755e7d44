package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/lib/pq"
	redislib "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	_ "potencialize/docs"
	"potencialize/internal/ai"
	"potencialize/internal/authz"
	"potencialize/internal/config"
	"potencialize/internal/handlers"
	"potencialize/internal/lifecycle"
	"potencialize/internal/lock"
	"potencialize/internal/middleware"
	"potencialize/internal/migrate"
	"potencialize/internal/notify"
	"potencialize/internal/pdf"
	"potencialize/internal/repositories"
	"potencialize/internal/routes"
	"potencialize/internal/services"
	"potencialize/internal/sla"
	"potencialize/internal/workflow"
	"potencialize/pkg/logger"
)

type Services struct {
	Auth       *services.AuthService
	User       *services.UserService
	Role       *services.RoleService
	Lead       *services.LeadService
	Deal       *services.DealService
	Product    *services.ProductService
	Project    *services.ProjectService
	Task       *services.TaskService
	Ticket     *services.TicketService
	Onboarding *services.OnboardingService
	Cascade    *services.CascadeService
	Report     *services.ReportService
	Proposal   *services.ProposalService
}

// App holds the wired components shared by the HTTP server and the ops CLI.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	DB         *sql.DB
	Registry   *authz.Registry
	Dispatcher *notify.Dispatcher
	Services   Services

	lifecycle *lifecycle.Manager
}

// New opens the database, the outbox and the optional Redis/SMTP/Telegram
// integrations, then builds every service. Close releases them.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log, lifecycle: lifecycle.New(cfg.Server.ShutdownTimeout, log)}
	if err := a.init(ctx); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	a.DB = db
	a.lifecycle.Register("database", func(context.Context) error { return db.Close() })

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if cfg.Database.Migrate {
		if err := migrate.Up(db, cfg.Database.Name, a.Logger); err != nil {
			return err
		}
	}
	store := repositories.NewPostgresStore(db)

	// === Locks ===
	var locker lock.Locker = lock.NewLocal()
	if cfg.Redis.URL != "" {
		opts, err := redislib.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		if cfg.Redis.DB != 0 {
			opts.DB = cfg.Redis.DB
		}
		client := redislib.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("ping redis: %w", err)
		}
		a.lifecycle.Register("redis", func(context.Context) error { return client.Close() })
		locker = lock.NewRedis(client, "potencialize:lock:")
	} else {
		a.Logger.Warn("redis not configured, using in-process locks")
	}

	// === Notifications ===
	outbox, err := notify.OpenOutbox(cfg.Outbox.Path)
	if err != nil {
		return fmt.Errorf("open outbox %s: %w", cfg.Outbox.Path, err)
	}
	a.lifecycle.Register("outbox", func(context.Context) error { return outbox.Close() })

	sinks := []notify.Sink{notify.LogSink{Logger: a.Logger}}
	if cfg.Email.SMTPHost != "" {
		dialer := gomail.NewDialer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPassword)
		sinks = append(sinks, notify.NewEmailSink(dialer, cfg.Email.FromEmail, cfg.Automation.MembershipProduct, cfg.Email.WelcomeEmails))
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.OpsChatID != 0 {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			a.Logger.Warn("telegram alerts disabled", zap.Error(err))
		} else {
			sinks = append(sinks, notify.NewTelegramSink(bot, cfg.Telegram.OpsChatID))
		}
	}
	a.Dispatcher = notify.NewDispatcher(outbox, cfg.Outbox.MaxAttempts, a.Logger, sinks...)

	// === Services ===
	roles := cfg.Roles
	if len(roles) == 0 {
		roles = authz.DefaultRoles()
	}
	a.Registry = authz.NewRegistry(roles)
	deps := services.Deps{
		Store:     store,
		Registry:  a.Registry,
		Locker:    locker,
		Publisher: a.Dispatcher,
		Logger:    a.Logger,
	}

	var completer ai.TextCompleter
	if cfg.AI.APIKey != "" {
		completer = ai.NewMistralClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.Timeout, a.Logger)
	}
	classifier := sla.NewClassifier(cfg.SLA)
	auto := cfg.Automation
	cascade := services.NewCascadeService(deps, services.CascadeConfig{
		Membership:   workflow.MembershipRule{ProductTitle: auto.MembershipProduct, RoleID: auto.MembershipRole},
		Project:      workflow.ProjectDefaults{DurationMonths: auto.ProjectDurationMonths, DefaultAssignee: auto.DefaultAssignee},
		CodeAttempts: auto.CodeAttempts,
	})

	a.Services = Services{
		Auth:       services.NewAuthService(deps, cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer),
		User:       services.NewUserService(deps),
		Role:       services.NewRoleService(deps, roles),
		Lead:       services.NewLeadService(deps, workflow.LeadConversionDefaults{ProductTitle: auto.LeadDefaultProduct, Owner: auto.LeadDefaultOwner}),
		Deal:       services.NewDealService(deps, cascade),
		Product:    services.NewProductService(deps),
		Project:    services.NewProjectService(deps, classifier, auto.CodeAttempts),
		Task:       services.NewTaskService(deps),
		Ticket:     services.NewTicketService(deps, classifier),
		Onboarding: services.NewOnboardingService(deps, cascade),
		Cascade:    cascade,
		Report:     services.NewReportService(deps),
		Proposal:   services.NewProposalService(deps, ai.NewAssistant(completer), pdf.NewDocumentGenerator(cfg.Files.RootDir, cfg.Files.FontPath)),
	}
	return a.Services.Role.Load(ctx)
}

// Close runs the registered shutdown hooks in reverse order.
func (a *App) Close(ctx context.Context) error {
	return a.lifecycle.Shutdown(ctx)
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(a.Logger))
	router.Use(corsMiddleware())

	if a.Config.Server.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	s := a.Services
	return routes.SetupRoutes(router, a.Registry, s.Auth, routes.Handlers{
		Auth:       handlers.NewAuthHandler(s.Auth, a.Logger),
		Health:     handlers.NewHealthHandler(a.DB),
		User:       handlers.NewUserHandler(s.User),
		Role:       handlers.NewRoleHandler(s.Role),
		Lead:       handlers.NewLeadHandler(s.Lead),
		Deal:       handlers.NewDealHandler(s.Deal, s.Proposal),
		Product:    handlers.NewProductHandler(s.Product),
		Project:    handlers.NewProjectHandler(s.Project, s.Proposal),
		Task:       handlers.NewTaskHandler(s.Task),
		Ticket:     handlers.NewTicketHandler(s.Ticket),
		Onboarding: handlers.NewOnboardingHandler(s.Onboarding),
		Report:     handlers.NewReportHandler(s.Report),
		Cascade:    handlers.NewCascadeHandler(s.Cascade),
		File:       handlers.NewFileHandler(a.Config.Files.RootDir),
	})
}

// Run serves HTTP and the background jobs until SIGINT or SIGTERM.
func Run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{Level: cfg.Logger.Level, Encoding: cfg.Logger.Encoding})
	defer log.Sync() //nolint:errcheck

	ctx, stop := lifecycle.New(0, log).NotifyContext(context.Background())
	defer stop()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}

	sched, err := a.Scheduler()
	if err != nil {
		_ = a.Close(context.Background())
		return err
	}
	sched.Start()
	a.lifecycle.Register("scheduler", func(ctx context.Context) error {
		select {
		case <-sched.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	a.lifecycle.Register("http", srv.Shutdown)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil {
			log.Error("http server failed", zap.Error(err))
		}
	}
	if cerr := a.Close(context.Background()); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
