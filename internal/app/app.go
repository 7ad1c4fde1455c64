package app

import (
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/alocode/restopos/config"
	"github.com/alocode/restopos/internal/catalog"
	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/internal/events"
	"github.com/alocode/restopos/internal/orders"
	"github.com/alocode/restopos/internal/register"
	"github.com/alocode/restopos/internal/reporting"
	"github.com/alocode/restopos/internal/repository"
	"github.com/alocode/restopos/pkg/metrics"
	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/singleflight"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	location  *time.Location
	sched     *cron.Cron
	pool      *ants.Pool
	jobGroup  singleflight.Group
	bus       *events.Bus

	orders    *orders.Service
	registers *register.Service
	catalog   *catalog.Service
	reporter  *reporting.Reporter
	mailer    *reporting.Mailer
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ ServiceProvider   = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig, location: time.Local}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Init(cfg *config.AppConfig) {
	a.appConfig = cfg
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
		a.location = loc
	}

	if err := cfg.InitDirs(); err != nil {
		zap.S().Warn("Failed to create workdir:", err)
	}

	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)

	// Initialize metrics with workdir convention
	err = metrics.InitMetrics(cfg.System.Workdir)
	if err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB = getDatabase(cfg.Database, cfg.System.Workdir)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	a.checkSuper()
	a.checkDefaultTables()

	if err := a.InitServices(); err != nil {
		zap.S().Errorf("init services failed: %v", err)
	}

	a.initJob()
}

// InitServices builds the event bus and the workflow services over the
// current database. Every service shares the clock of the configured location.
func (a *Application) InitServices() error {
	now := a.Now
	a.bus = events.NewBus()

	if err := events.NewAuditRecorder(repository.NewGormAuditRepository(a.gormDB)).Attach(a.bus); err != nil {
		return err
	}

	a.orders = orders.NewService(a.gormDB, orders.WithClock(now), orders.WithPublisher(a.bus))
	a.registers = register.NewService(a.gormDB, a.orders, register.WithClock(now), register.WithPublisher(a.bus))
	a.catalog = catalog.NewService(a.gormDB)
	a.reporter = reporting.NewReporter(a.gormDB, now)
	a.mailer = reporting.NewMailer(a.appConfig.Mail, a.reporter)
	return a.mailer.Attach(a.bus)
}

// Now current time in the configured location
func (a *Application) Now() time.Time {
	return time.Now().In(a.location)
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	if track {
		if err := a.gormDB.Debug().Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	} else {
		if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	}
	return nil
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Orders() *orders.Service {
	return a.orders
}

func (a *Application) Registers() *register.Service {
	return a.registers
}

func (a *Application) Catalog() *catalog.Service {
	return a.catalog
}

func (a *Application) Reporter() *reporting.Reporter {
	return a.reporter
}

func (a *Application) Mailer() *reporting.Mailer {
	return a.mailer
}

// Bus returns the domain event bus
func (a *Application) Bus() *events.Bus {
	return a.bus
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.pool != nil {
		a.pool.Release()
	}
	if a.bus != nil {
		a.bus.Wait()
	}

	_ = metrics.Close()
	_ = zap.L().Sync()
}
