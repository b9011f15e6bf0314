// Package mongodb 提供 MongoDB 客户端初始化。
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/gavelworks/auctionhouse/pkg/logger"
)

// Config MongoDB 配置
type Config struct {
	URI         string
	Database    string
	ConnTimeout int
}

// Connect 建立连接并 ping 校验，返回目标数据库句柄。
func Connect(ctx context.Context, cfg Config) (*mongo.Database, error) {
	timeout := time.Duration(cfg.ConnTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.Info(ctx, "mongodb connected", "database", cfg.Database)
	return client.Database(cfg.Database), nil
}
