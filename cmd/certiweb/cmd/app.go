package cmd

import (
	"context"

	"github.com/goliatone/go-errors"
	redis "github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	auth "github.com/certiweb/go-auth"
	"github.com/certiweb/go-auth/activitymap"
	"github.com/certiweb/go-auth/config"
	"github.com/certiweb/go-auth/middleware/gate"
	"github.com/certiweb/go-auth/revocation/redisstore"
	"github.com/certiweb/go-auth/storage"
)

// services holds everything a command needs once the database is open.
type services struct {
	db          *bun.DB
	repo        auth.RepositoryManager
	hasher      auth.Hasher
	tokens      *auth.TokenServiceImpl
	verifier    gate.TokenVerifier
	auther      *auth.Auther
	revocations auth.RevocationStore
	redis       *redis.Client
}

// openStore opens the database, applies migrations and builds the
// repositories. It needs no signing key.
func openStore(ctx context.Context, cfg *config.Config) (*services, error) {
	db, err := storage.NewDB(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	if err := auth.Migrate(ctx, db); err != nil {
		_ = storage.Close(db)
		return nil, err
	}

	svc := &services{
		db:     db,
		repo:   auth.NewRepositoryManager(db),
		hasher: auth.NewHasher(cfg.GetBcryptCost()),
	}
	svc.repo.MustValidate()

	return svc, nil
}

// openServices is openStore plus token issuing, verification and
// revocation. It refuses to start without a signing key.
func openServices(ctx context.Context, cfg *config.Config) (*services, error) {
	if err := cfg.RequireSigningKey(); err != nil {
		return nil, err
	}

	svc, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc.tokens, err = auth.NewTokenServiceFromConfig(cfg, lgr.GetLogger("tokens"))
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.verifier = auth.NewRotatingVerifier(svc.tokens, cfg.Auth.PreviousSigningKeys...)

	switch cfg.Revocation.Backend {
	case config.RevocationDatabase:
		svc.revocations = svc.repo.RevokedTokens()
	case config.RevocationRedis:
		store, client, err := redisstore.Dial(ctx, cfg.Revocation.RedisAddr, "", cfg.Revocation.RedisDB,
			redisstore.WithPrefix(cfg.Revocation.KeyPrefix),
		)
		if err != nil {
			svc.Close()
			return nil, err
		}
		svc.revocations = store
		svc.redis = client
	}

	svc.auther = auth.NewAuthenticator(svc.repo, svc.tokens, svc.hasher).
		WithLogger(lgr.GetLogger("auth")).
		WithHashidUserIDs(cfg.Auth.UseHashid).
		WithActivitySink(activitymap.Sink(lgr.GetLogger("activity")))
	if svc.revocations != nil {
		svc.auther = svc.auther.WithRevocationStore(svc.revocations)
	}

	return svc, nil
}

func (s *services) seedAdmin(ctx context.Context, seed config.AdminSeedConfig) error {
	_, err := s.auther.SeedAdmin(ctx, auth.AdminSeed{
		Name:     seed.Name,
		Email:    seed.Email,
		Password: seed.Password,
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "seeding admin account")
	}
	return nil
}

func (s *services) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	_ = storage.Close(s.db)
}
