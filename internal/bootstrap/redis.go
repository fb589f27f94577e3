package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/snowdash/config"
	redisadapter "github.com/target/snowdash/internal/adapters/redis"
	mockauth "github.com/target/snowdash/internal/mocks/auth"
	"github.com/target/snowdash/internal/ports"
)

// redisPingTimeout bounds the connectivity check in ConnectRedis.
const redisPingTimeout = 5 * time.Second

// ConnectRedis builds the client selected by cfg (cluster, sentinel or a single
// node) and pings it. The client is closed again when the ping fails.
//
//nolint:ireturn // the concrete client type depends on cfg.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	opts, desc, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	var client redis.UniversalClient
	switch {
	case cfg.UseCluster:
		client = redis.NewClusterClient(opts.Cluster())
	case cfg.UseSentinel:
		client = redis.NewFailoverClient(opts.Failover())
	default:
		client = redis.NewClient(opts.Simple())
	}

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping redis: %w", err), client.Close())
	}

	if logger != nil {
		logger.Info("redis connected", "addr", redactAddr(desc))
	}
	return client, nil
}

// redisOptions translates cfg into go-redis options plus a loggable description.
// REDIS_URI may be host:port or a redis:// / rediss:// URL; a URL contributes
// username, password, DB and TLS. In cluster mode it is the seed when
// REDIS_CLUSTER_NODES is empty.
func redisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	target, err := parseRedisTarget(cfg.URI, cfg.Password)
	if err != nil {
		return nil, "", err
	}

	opts := &redis.UniversalOptions{
		Username:  target.username,
		Password:  target.password,
		DB:        target.db,
		TLSConfig: target.tls,
	}

	switch {
	case cfg.UseCluster:
		opts.Addrs = cfg.ClusterNodes
		if len(opts.Addrs) == 0 && target.addr != "" {
			opts.Addrs = []string{target.addr}
		}
		if len(opts.Addrs) == 0 {
			return nil, "", errors.New("redis cluster configuration requires at least one address")
		}
		return opts, "cluster:" + strings.Join(opts.Addrs, ","), nil

	case cfg.UseSentinel:
		if len(cfg.SentinelNodes) == 0 {
			return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		opts.Addrs = cfg.SentinelNodes
		opts.MasterName = cfg.SentinelMasterName
		opts.SentinelPassword = cfg.SentinelPassword
		return opts, "sentinel:" + cfg.SentinelMasterName, nil

	default:
		if target.addr == "" {
			return nil, "", errors.New("redis direct configuration requires a URI")
		}
		opts.Addrs = []string{target.addr}
		return opts, target.addr, nil
	}
}

// redisTarget is the connection detail carried by REDIS_URI.
type redisTarget struct {
	addr     string
	username string
	password string
	db       int
	tls      *tls.Config
}

// parseRedisTarget reads uri; fallbackPassword applies when the URI carries none.
func parseRedisTarget(uri, fallbackPassword string) (redisTarget, error) {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		return redisTarget{addr: uri, password: fallbackPassword}, nil
	}

	opt, err := redis.ParseURL(uri)
	if err != nil {
		return redisTarget{}, fmt.Errorf("parse redis url: %w", err)
	}
	t := redisTarget{addr: opt.Addr, username: opt.Username, password: opt.Password, db: opt.DB, tls: opt.TLSConfig}
	if t.password == "" {
		t.password = fallbackPassword
	}
	return t, nil
}

// redactAddr strips credentials from a connection description before logging.
func redactAddr(desc string) string {
	if u, err := url.Parse(desc); err == nil && u.User != nil {
		u.User = nil
		return u.String()
	}
	if _, host, found := strings.Cut(desc, "@"); found {
		return host
	}
	return desc
}

// RevocationBackend is the session revocation list plus the resource backing it.
type RevocationBackend struct {
	Store ports.RevocationStore
	// Client is nil for the in-memory store.
	Client redis.UniversalClient
}

// Close releases the Redis connection, if any.
func (b RevocationBackend) Close() error {
	if b.Client == nil {
		return nil
	}
	return b.Client.Close()
}

// BuildRevocationStore connects the Redis revocation list when enabled and falls
// back to process memory otherwise. Memory revocations are lost on restart and
// are not shared between replicas.
func BuildRevocationStore(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (RevocationBackend, error) {
	if !cfg.Enabled {
		if logger != nil {
			logger.Warn("redis disabled; session revocations are kept in memory")
		}
		return RevocationBackend{Store: mockauth.NewMemoryRevocationStore()}, nil
	}

	client, err := ConnectRedis(ctx, cfg, logger)
	if err != nil {
		return RevocationBackend{}, fmt.Errorf("connect redis: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = redisadapter.DefaultRevocationPrefix
	}
	return RevocationBackend{
		Store:  redisadapter.NewRevocationStoreWithPrefix(client, prefix),
		Client: client,
	}, nil
}
