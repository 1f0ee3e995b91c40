package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
	"github.com/louisbranch/answerdesk/internal/services/answers/notify"
	answerspostgres "github.com/louisbranch/answerdesk/internal/services/answers/storage/postgres"
	answerssqlite "github.com/louisbranch/answerdesk/internal/services/answers/storage/sqlite"
	"github.com/louisbranch/answerdesk/internal/services/answers/syndication"
	"github.com/louisbranch/answerdesk/internal/services/answers/syndication/facebook"
	"github.com/louisbranch/answerdesk/internal/services/answers/syndication/linkedin"
	"github.com/louisbranch/answerdesk/internal/services/answers/syndication/render"
	"github.com/redis/go-redis/v9"
)

// Store is the persistence surface both storage backends provide.
type Store interface {
	domain.AnswerStore
	domain.QuestionStore
	domain.UserStore
	domain.SocialTokenStore
	PutUser(ctx context.Context, user domain.User) error
	PutQuestion(ctx context.Context, question domain.Question) error
	Close() error
}

var (
	_ Store = (*answerssqlite.Store)(nil)
	_ Store = (*answerspostgres.Store)(nil)
)

// Runtime holds the wired lifecycle manager and the resources it owns.
type Runtime struct {
	Store   Store
	Tokens  domain.SocialTokenStore
	Manager *domain.Manager
	Engine  *syndication.Engine

	redis *redis.Client
}

// Build opens storage and wires syndication, notifications, and the
// lifecycle manager from cfg.
func Build(ctx context.Context, cfg Config) (*Runtime, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	runtime := &Runtime{Store: store, Tokens: store}
	fail := func(err error) (*Runtime, error) {
		_ = runtime.Close()
		return nil, err
	}

	if cfg.TokenSealKey != "" {
		sealed, err := linkedin.OpenSealedTokenStore(store, cfg.TokenSealKey)
		if err != nil {
			return fail(err)
		}
		runtime.Tokens = sealed
	}

	adapters, err := buildAdapters(cfg, runtime.Tokens)
	if err != nil {
		return fail(err)
	}

	var overrides render.Overrides
	if cfg.SocialTemplatesPath != "" {
		overrides, err = render.LoadOverrides(cfg.SocialTemplatesPath)
		if err != nil {
			return fail(err)
		}
	}
	renderer, err := render.New(render.Config{
		Language:  cfg.SocialLanguage,
		BaseURL:   cfg.PublicBaseURL,
		Overrides: overrides,
	})
	if err != nil {
		return fail(err)
	}
	runtime.Engine = syndication.NewEngine(renderer, time.Now, adapters...)

	var notifier domain.Notifier = notify.LogDispatcher{}
	if cfg.RedisAddr != "" {
		runtime.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := runtime.redis.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("ping redis: %w", err))
		}
		notifier = notify.NewRedisStreamDispatcher(runtime.redis, cfg.NotifyStream)
	}

	runtime.Manager = domain.NewManager(domain.Deps{
		Answers:    store,
		Questions:  store,
		Users:      store,
		Syndicator: runtime.Engine,
		Notifier:   notifier,
	})
	log.Printf("answers runtime ready storage=%s platforms=%v", cfg.Storage, runtime.Engine.Platforms())
	return runtime, nil
}

// Close releases the store and notification client.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// OpenStore opens the configured storage backend.
func OpenStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Storage {
	case StoragePostgres:
		store, err := answerspostgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open answers postgres store: %w", err)
		}
		return store, nil
	case StorageSQLite, "":
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := answerssqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open answers sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}

func buildAdapters(cfg Config, tokens domain.SocialTokenStore) ([]syndication.Adapter, error) {
	httpClient := &http.Client{Timeout: cfg.SocialTimeout}
	var adapters []syndication.Adapter

	if cfg.FacebookEnabled() {
		client, err := facebook.New(facebook.Config{
			APIBase:    cfg.FacebookAPIBase,
			PageID:     cfg.FacebookPageID,
			PageToken:  cfg.FacebookPageToken,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, fmt.Errorf("facebook adapter: %w", err)
		}
		adapters = append(adapters, client)
	}

	if cfg.LinkedInEnabled() {
		source := linkedin.NewTokenSource(tokens, linkedin.TokenSourceConfig{
			ClientID:     cfg.LinkedInClientID,
			ClientSecret: cfg.LinkedInClientSecret,
			TokenURL:     cfg.LinkedInTokenURL,
			HTTPClient:   httpClient,
		})
		client, err := linkedin.New(linkedin.Config{
			APIBase:        cfg.LinkedInAPIBase,
			Version:        cfg.LinkedInVersion,
			OrganizationID: cfg.LinkedInOrganizationID,
			HTTPClient:     httpClient,
		}, source)
		if err != nil {
			return nil, fmt.Errorf("linkedin adapter: %w", err)
		}
		adapters = append(adapters, client)
	}
	return adapters, nil
}
