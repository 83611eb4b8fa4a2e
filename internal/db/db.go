package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mkravets/gamescout/internal/belief"
	"github.com/mkravets/gamescout/internal/trend"
)

// Connect opens the configured database and migrates the schema. An empty
// dsn returns (nil, nil): the service then runs purely in memory.
func Connect(driver, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, nil
	}

	var dial gorm.Dialector
	switch driver {
	case "", "sqlite":
		dial = sqlite.Open(dsn)
	case "mysql":
		dial = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	gdb, err := gorm.Open(dial, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(&belief.Game{}, &trend.Event{}); err != nil {
		return nil, err
	}
	return gdb, nil
}
