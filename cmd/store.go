package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catchment/internal/config"
	"github.com/sells-group/catchment/internal/store"
)

// initStore opens and migrates the store configured in c.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	if err := c.Validate("store"); err != nil {
		return nil, err
	}
	st, err := store.New(ctx, c.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
