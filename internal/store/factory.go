// Package store selects a core.Store implementation by configured driver.
package store

import (
	"context"
	"fmt"

	"github.com/authhub/authhub/internal/store/core"
	"github.com/authhub/authhub/internal/store/memory"
	"github.com/authhub/authhub/internal/store/pg"
)

// Open builds the configured store. Supported drivers: "memory", "postgres".
func Open(ctx context.Context, driver, dsn string) (core.Store, error) {
	switch driver {
	case "", "memory":
		return memory.New(), nil
	case "postgres":
		return pg.Open(ctx, dsn)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}
