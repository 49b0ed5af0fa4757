package config

import (
	"context"
	"crypto/tls"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a Redis client from REDIS_ADDR (or REDIS_HOST and
// REDIS_PORT), REDIS_PASSWORD, REDIS_DB and REDIS_TLS. It returns nil when
// the server does not answer a ping; the cache and rate limiter then run as
// pass-through middleware.
func NewRedisClient() *redis.Client {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	var tlsConf *tls.Config
	if envBool("REDIS_TLS", false) {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis unavailable at %s: %v (cache and rate limit disabled)", addr, err)
		_ = client.Close()
		return nil
	}
	return client
}
