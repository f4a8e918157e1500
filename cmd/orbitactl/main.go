// Основной пакет утилиты OrbitaCRM. Отвечает за инициализацию базы данных,
// миграцию моделей, проверку подключения к каталогу, разовую проверку входа
// и запуск планировщика фоновой синхронизации.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	authprovider "github.com/orbita-it/orbitacrm/internal/orbitacrm/auth-provider"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/apierrors"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/config"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/cronmanager"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/dao"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/gormlogger"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/identity"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/maintenance"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"flag"
)

var version string = "DEV"

var models = []any{&dao.User{}, &dao.Team{}, &dao.Role{}}

func main() {
	noTranslateFlag := flag.Bool("noTranslate", false, "Turn off BD errors translate")
	paramQueries := flag.Bool("paramQueries", true, "Mask queries params in log")
	noMigration := flag.Bool("noMigration", false, "Turn off DB migration")
	trace := flag.Bool("trace", false, "Verbose logs and sql trace")
	checkLogin := flag.String("checkLogin", "", "Try to authenticate the given username and exit")
	flag.Parse()

	PrintBanner()

	cfg := config.ReadConfig()

	if *trace {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// Set prod log format
	if version != "DEV" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})))
	}

	slog.Info("OrbitaCRM auth service start.")

	if cfg.SecretKey == "" {
		slog.Error("Secret key not preset")
		os.Exit(1)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DatabaseDSN,
		PreferSimpleProtocol: false, // disables implicit prepared statement usage
	}), &gorm.Config{
		TranslateError: !*noTranslateFlag,
		Logger:         gormlogger.NewGormLogger(slog.Default(), time.Second*4, *paramQueries),
	})
	if err != nil {
		slog.Error("Fail init DB connection", "err", err)
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Fail set settings to conn pool", "err", err)
		os.Exit(1)
	}
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(time.Minute * 15)

	if !*noMigration {
		slog.Info("Migrate models")
		if err := db.AutoMigrate(models...); err != nil {
			slog.Error("Fail migrate models", "err", err)
			os.Exit(1)
		}

		if _, err := dao.EnsureSystemUser(db); err != nil {
			slog.Error("Fail ensure system user", "err", err)
			os.Exit(1)
		}
	}

	ldapProvider, err := authprovider.InitLDAP(cfg)
	if err != nil {
		slog.Error("Fail init LDAP connection", "err", err)
		os.Exit(1)
	}

	authprovider.RegisterMetrics(prometheus.DefaultRegisterer)

	resolver := authprovider.NewResolver(db, ldapProvider, cfg, slog.Default())

	if *checkLogin != "" {
		checkLoginAndExit(resolver, *checkLogin)
	}

	registry := cronmanager.JobRegistry{}
	if cfg.LdapSyncSchedule != "" {
		synchronizer := maintenance.NewLdapSynchronizer(db, ldapProvider, cfg)
		registry["ldap_sync"] = cronmanager.Job{
			Func:     synchronizer.SyncJob,
			Schedule: cfg.LdapSyncSchedule,
		}
	}

	cm := cronmanager.NewCronManager(registry)
	if err := cm.LoadJobs(); err != nil {
		slog.Error("Fail load cron jobs", "err", err)
		os.Exit(1)
	}
	cm.Start()
	defer cm.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("OrbitaCRM auth service stop.")
}

// checkLoginAndExit выполняет разовую проверку входа для диагностики
// настроек каталога. Пароль запрашивается из переменной окружения, чтобы
// не светился в списке процессов.
func checkLoginAndExit(resolver *authprovider.Resolver, username string) {
	password := os.Getenv("ORBITACTL_CHECK_PASSWORD")
	if password == "" {
		slog.Error("ORBITACTL_CHECK_PASSWORD is not set")
		os.Exit(1)
	}

	user, err := resolver.Authenticate(identity.NewSlot(), authprovider.Request{
		Username:   username,
		Password:   password,
		RemoteAddr: "127.0.0.1",
	})
	if err != nil {
		slog.Error("Login check failed", "err", err, "masked", apierrors.IsAuthFailure(err))
		os.Exit(1)
	}
	if user == nil {
		slog.Error("Login check: no attempt was made")
		os.Exit(1)
	}

	slog.Info("Login check passed", "user_id", user.GetId(), "type", string(user.Type))
	os.Exit(0)
}

func PrintBanner() {
	banner := `
  ____       _     _ _         _____ _____  __  __
 / __ \     | |   (_) |       / ____|  __ \|  \/  |
| |  | |_ __| |__  _| |_ __ _| |    | |__) | \  / |
| |  | | '__| '_ \| | __/ _  | |    |  _  /| |\/| |
| |__| | |  | |_) | | || (_| | |____| | \ \| |  | |
 \____/|_|  |_.__/|_|\__\__,_|\_____|_|  \_\_|  |_| %s
Directory-backed authentication service
%s
----------------------------------------------------
`
	colorReset := "\033[0m"

	colorYellow := "\033[33m"
	colorBlue := "\033[34m"

	formattedVersion := version
	if version == "DEV" {
		formattedVersion = colorYellow + version + colorReset
	}

	fmt.Printf(banner, formattedVersion, colorBlue+"https://orbita-it.ru"+colorReset)
}
