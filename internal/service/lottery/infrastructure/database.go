package infrastructure

import (
	"fmt"
	"time"

	"promo-lottery/internal/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenDatabase 按驱动名打开数据库并迁移抽奖相关表
func OpenDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  newGormLogger(),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		// SQLite 只允许一个写连接
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&ParticipationModel{}, &MemberModel{}); err != nil {
		return nil, fmt.Errorf("migrate lottery tables: %w", err)
	}
	logger.L().Info().Str("driver", driver).Msg("Database ready")
	return db, nil
}

// gormWriter 把 GORM 的日志转到 zerolog
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	logger.L().Warn().Str("component", "gorm").Msgf(format, args...)
}

// newGormLogger 只输出慢查询和错误，未命中记录不算错误
func newGormLogger() gormlogger.Interface {
	return gormlogger.New(gormWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
