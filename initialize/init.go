package initialize

import (
	"fmt"
	"net/http"

	"klik-guard/app/cloudflare"
	"klik-guard/app/controllers"
	"klik-guard/app/db"
	jwtutil "klik-guard/app/jwt"
	"klik-guard/app/middleware"
	"klik-guard/app/models"
	"klik-guard/app/repo"
	"klik-guard/app/services"
	"klik-guard/config"
	"klik-guard/global"
	"klik-guard/router"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type App struct {
	Cfg           config.Config
	DB            *gorm.DB
	Router        http.Handler
	Pool          *services.AccountPool
	Policies      *services.PolicyService
	Notifications *services.NotificationService
	Users         *services.UserService
}

func Build(configPath string) (*App, error) {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	global.Config = *cfg
	SetLogLevel(cfg.LogLevel)

	// Connect DB
	gdb, err := db.Connect(db.Config{
		Driver:   cfg.DB.Driver,
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Pass,
		DBName:   cfg.DB.Name,
		Path:     cfg.DB.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	global.Mdb = gdb

	// Migrate
	if err := gdb.AutoMigrate(&models.Account{}, &models.User{}, &models.Policy{}, &models.Notification{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// Redis is optional; without it e-mail verification and the sweep guard
	// are disabled.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		global.Rdb = rdb
	}

	// Gateway client
	gw := cloudflare.New(cfg.Cloudflare.BaseURL, cfg.Cloudflare.Timeout)

	// Repositories and services
	accountRepo := repo.NewAccountRepository(gdb)
	userRepo := repo.NewUserRepository(gdb)
	policyRepo := repo.NewPolicyRepository(gdb)
	notifRepo := repo.NewNotificationRepository(gdb)

	pool := services.NewAccountPool(accountRepo, gw)
	policySvc := services.NewPolicyService(policyRepo, gw)
	logSvc := services.NewLogService(gw, policyRepo, accountRepo)
	notifSvc := services.NewNotificationService(notifRepo, policyRepo, accountRepo, logSvc, rdb, cfg.Sweep.Window, cfg.Sweep.PageSize)
	deviceSvc := services.NewDeviceService(gw, userRepo, policyRepo, notifSvc)
	userSvc := services.NewUserService(userRepo)

	signer := &jwtutil.Signer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, ExpMin: cfg.JWT.ExpMin}
	authSvc := services.NewAuthService(userRepo, pool, policySvc, signer, rdb, &services.LogSender{}, cfg.BaseURL)

	if err := userSvc.EnsureAdmin(cfg.Admin.Email, cfg.Admin.Password); err != nil {
		global.Logger.Warn().Err(err).Msg("ensure admin user")
	}

	// Controllers
	authCtrl := controllers.NewAuthController(authSvc)
	policyCtrl := controllers.NewPolicyController(policySvc, userSvc)
	deviceCtrl := controllers.NewDeviceController(deviceSvc, userSvc)
	logCtrl := controllers.NewLogController(logSvc, userSvc)
	notifCtrl := controllers.NewNotificationController(notifSvc, userSvc)
	adminCtrl := controllers.NewAdminController(pool, userSvc, logSvc)
	mw := &middleware.Auth{Signer: signer}

	// Router
	h := router.NewRouter(authCtrl, policyCtrl, deviceCtrl, logCtrl, notifCtrl, adminCtrl, mw)
	h = middleware.Logging(h)

	return &App{
		Cfg:           *cfg,
		DB:            gdb,
		Router:        h,
		Pool:          pool,
		Policies:      policySvc,
		Notifications: notifSvc,
		Users:         userSvc,
	}, nil
}
