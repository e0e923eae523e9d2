package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	xerrors "SettleX-Atlas/internal/errors"
)

const defaultDialTimeout = 5 * time.Second

// openDatabase 解析 DSN 并建立连接池，返回前会 Ping 一次。
func openDatabase(ctx context.Context, cfg Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}

	dsn, err := mysqldrv.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "解析 MySQL DSN 失败")
	}
	if dsn.Timeout == 0 {
		dsn.Timeout = defaultDialTimeout
	}
	connector, err := mysqldrv.NewConnector(dsn)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "创建 MySQL 连接器失败")
	}
	db := sql.OpenDB(connector)

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(20)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(10)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到 MySQL")
	}
	return db, nil
}

// MySQL 中可以直接重试的错误号：死锁与锁等待超时。
var transientErrors = map[uint16]struct{}{
	1205: {},
	1213: {},
}

// storageError 把驱动错误包装为统一错误码，瞬时错误标记为可重试。
func storageError(err error, message string) error {
	retryable := false
	var mysqlErr *mysqldrv.MySQLError
	if errors.As(err, &mysqlErr) {
		_, retryable = transientErrors[mysqlErr.Number]
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, message,
			xerrors.WithRetryable(retryable),
			xerrors.WithMetadata("mysql_errno", fmt.Sprint(mysqlErr.Number)))
	}
	return xerrors.Wrap(xerrors.CodeStorageFailure, err, message)
}
