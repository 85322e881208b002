package session

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/tutorbot/pkg/config"
)

// Open builds the store selected by cfg.Backend. client is only used by the
// redis backend.
func Open(cfg config.SessionConfig, client *redis.Client) (Store, error) {
	switch cfg.Backend {
	case "", config.SessionMemory:
		return NewMemoryStore(cfg.TTL), nil
	case config.SessionRedis:
		if client == nil {
			return nil, fmt.Errorf("session backend redis requires a redis client")
		}
		return NewRedisStore(client, cfg.KeyPrefix, cfg.TTL), nil
	case config.SessionBolt:
		return OpenBoltStore(cfg.BoltPath, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
