package infrastructure

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

func connectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	db, err := pgxpool.New(connectCtx, dsn)
	if err != nil {
		return nil, err
	}

	// The database container may come up after us; ping with backoff
	// before giving up.
	backoff := retry.WithMaxRetries(4, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(connectCtx, backoff, func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
