package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/constants"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage"
)

const snapshotKey = "wallets"

// snapshot is one immutable view of the tracked wallets.
type snapshot struct {
	addresses map[string]struct{}
	details   map[string]models.WalletDetails
}

// Config holds registry settings.
type Config struct {
	// TTL bounds how stale a snapshot may get before the next read refreshes it.
	TTL time.Duration

	// LoadTimeout bounds one refresh from the source. A refresh is shared by
	// every waiting caller, so it does not inherit any caller's deadline.
	LoadTimeout time.Duration

	Logger *logrus.Logger
}

// Registry is a read-through cache in front of a storage.WalletSource.
// Concurrent refreshes collapse into a single load.
type Registry struct {
	source storage.WalletSource
	cache  *cache.Cache
	group  singleflight.Group
	ttl    time.Duration

	loadTimeout time.Duration
	logger      *logrus.Logger
}

var _ storage.WalletRegistry = (*Registry)(nil)

// New creates a registry over source.
func New(source storage.WalletSource, cfg Config) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = constants.DefaultRegistryTTL
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = constants.DefaultStoreTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Registry{
		source:      source,
		cache:       cache.New(cfg.TTL, 2*cfg.TTL),
		ttl:         cfg.TTL,
		loadTimeout: cfg.LoadTimeout,
		logger:      cfg.Logger,
	}
}

// ListAddresses returns the set of tracked addresses. The returned map is
// shared and must not be modified.
func (r *Registry) ListAddresses(ctx context.Context) (map[string]struct{}, error) {
	snap, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.addresses, nil
}

// Lookup returns the wallet's display details, or models.UnknownWallet for
// an untracked address.
func (r *Registry) Lookup(ctx context.Context, address string) (models.WalletDetails, error) {
	snap, err := r.load(ctx)
	if err != nil {
		return models.UnknownWallet, err
	}
	if d, ok := snap.details[address]; ok {
		return d, nil
	}
	return models.UnknownWallet, nil
}

// Invalidate drops the cached snapshot so the next read reloads it.
func (r *Registry) Invalidate() {
	r.cache.Delete(snapshotKey)
}

func (r *Registry) load(ctx context.Context) (*snapshot, error) {
	if v, ok := r.cache.Get(snapshotKey); ok {
		return v.(*snapshot), nil
	}

	v, err, _ := r.group.Do(snapshotKey, func() (interface{}, error) {
		if v, ok := r.cache.Get(snapshotKey); ok {
			return v, nil
		}

		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.loadTimeout)
		defer cancel()

		wallets, err := r.source.ListWallets(lctx)
		if err != nil {
			return nil, fmt.Errorf("load wallet registry: %w", err)
		}

		snap := &snapshot{
			addresses: make(map[string]struct{}, len(wallets)),
			details:   make(map[string]models.WalletDetails, len(wallets)),
		}
		for _, w := range wallets {
			if w.Address == "" {
				continue
			}
			snap.addresses[w.Address] = struct{}{}
			snap.details[w.Address] = models.WalletDetails{Name: w.Name, Category: w.Category}
		}

		r.cache.Set(snapshotKey, snap, r.ttl)
		r.logger.WithField("wallets", len(snap.addresses)).Debug("wallet registry refreshed")
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*snapshot), nil
}
