package app

import (
	"github.com/alocode/restopos/config"
	"github.com/alocode/restopos/internal/catalog"
	"github.com/alocode/restopos/internal/orders"
	"github.com/alocode/restopos/internal/register"
	"github.com/alocode/restopos/internal/reporting"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// ServiceProvider provides the point-of-sale workflow services
type ServiceProvider interface {
	Orders() *orders.Service
	Registers() *register.Service
	Catalog() *catalog.Service
	Reporter() *reporting.Reporter
	Mailer() *reporting.Mailer
}

// AppContext combines all provider interfaces for full application context
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	ServiceProvider

	MigrateDB(track bool) error
	// RunJobNow runs a named background job synchronously
	RunJobNow(name string) error
}
