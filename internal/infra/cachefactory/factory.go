// Package cachefactory opens the configured cache backend.
package cachefactory

import (
	"strings"

	"github.com/authhub/authhub/internal/cache"
	cmem "github.com/authhub/authhub/internal/cache/memory"
	credis "github.com/authhub/authhub/internal/cache/redis"
)

// Open builds a cache client from config. Unknown drivers fall back to memory.
func Open(cfg cache.Config) cache.Client {
	switch strings.ToLower(cfg.Driver) {
	case "redis":
		return credis.New(cfg.Addr, cfg.DB, cfg.Prefix)
	default:
		return cmem.New(cfg.Prefix)
	}
}
