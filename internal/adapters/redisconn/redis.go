// Package redisconn opens go-redis clients from connection URLs.
package redisconn

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Open connects to addr and pings the server.
func Open(ctx context.Context, addr string) (redis.UniversalClient, error) {
	opts, err := ParseURL(addr)
	if err != nil {
		return nil, err
	}
	c := redis.NewUniversalClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addrs, err)
	}
	return c, nil
}

// ParseURL converts addr into UniversalOptions. Plain host:port strings are
// accepted; redis, rediss, redis-sentinel and rediss-sentinel schemes are
// understood. Comma separated hosts select cluster mode.
func ParseURL(addr string) (*redis.UniversalOptions, error) {
	if !strings.Contains(addr, "://") {
		return &redis.UniversalOptions{Addrs: []string{addr}}, nil
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}

	opts := &redis.UniversalOptions{Addrs: strings.Split(u.Host, ",")}
	if u.User != nil {
		opts.Username = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			opts.Password = pw
		}
	}

	q := u.Query()
	switch u.Scheme {
	case "redis", "rediss":
		db := strings.TrimPrefix(u.Path, "/")
		if db == "" {
			db = q.Get("db")
		}
		if opts.DB, err = parseDB(db); err != nil {
			return nil, err
		}
	case "redis-sentinel", "rediss-sentinel":
		opts.MasterName = strings.TrimPrefix(u.Path, "/")
		if opts.DB, err = parseDB(q.Get("db")); err != nil {
			return nil, err
		}
		opts.SentinelUsername = q.Get("sentinel_username")
		opts.SentinelPassword = q.Get("sentinel_password")
	default:
		return nil, fmt.Errorf("redis: invalid URL scheme: %s", u.Scheme)
	}
	if strings.HasPrefix(u.Scheme, "rediss") {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

func parseDB(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	db, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("redis: invalid db: %w", err)
	}
	return db, nil
}
