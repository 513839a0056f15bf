// Package cache holds the Redis-backed pieces shared between replicas: stop
// flags and mirrored run status.
package cache

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewClient parses redisURL and verifies connectivity.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// KeyBuilder namespaces keys as "<namespace>:<kind>:<id>".
type KeyBuilder struct {
	namespace string
}

func NewKeyBuilder(namespace string) KeyBuilder {
	namespace = strings.Trim(namespace, ":")
	if namespace == "" {
		namespace = "jobmatcher"
	}
	return KeyBuilder{namespace: namespace}
}

func (k KeyBuilder) Build(kind, id string) string {
	return k.namespace + ":" + kind + ":" + id
}

func (k KeyBuilder) Stop(subjectID string) string {
	return k.Build("stop", subjectID)
}

func (k KeyBuilder) Status(subjectID string) string {
	return k.Build("status", subjectID)
}
