package server

import (
	"context"
	"fmt"

	"github.com/heroverse/apiserver/config"
	"github.com/heroverse/apiserver/internal/db"
	"github.com/heroverse/apiserver/internal/services"
	"github.com/heroverse/apiserver/internal/store"
	"github.com/heroverse/apiserver/internal/store/memstore"
	"github.com/heroverse/apiserver/internal/store/mongostore"
)

// Stores bundles the repositories for one store driver.
type Stores struct {
	Users services.UserRepository
	Posts services.PostRepository
	close func(context.Context) error
}

// Close releases the underlying connection, if any.
func (s Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// OpenStores connects to the store selected by cfg.StoreDriver.
func OpenStores(ctx context.Context, cfg config.Config) (Stores, error) {
	switch cfg.StoreDriver {
	case "", config.StoreMemory:
		return Stores{
			Users: memstore.NewUserRepository(),
			Posts: memstore.NewPostRepository(),
		}, nil
	case config.StorePostgres:
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return Stores{}, fmt.Errorf("open postgres: %w", err)
		}
		return Stores{
			Users: store.NewUserRepository(conn),
			Posts: store.NewPostRepository(conn),
			close: func(context.Context) error { return conn.Close() },
		}, nil
	case config.StoreMongo:
		client, database, err := db.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return Stores{}, fmt.Errorf("open mongo: %w", err)
		}
		users := mongostore.NewUserRepository(database)
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return Stores{}, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return Stores{
			Users: users,
			Posts: mongostore.NewPostRepository(database),
			close: client.Disconnect,
		}, nil
	default:
		return Stores{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
