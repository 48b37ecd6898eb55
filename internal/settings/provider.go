package settings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"visitor_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const defaultCacheTTL = time.Minute

// Reader loads stored settings. Get returns nil when none were saved.
type Reader interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*Settings, error)
}

type cacheEntry struct {
	settings Settings
	expires  time.Time
}

// Provider resolves tenant settings through a short-lived cache.
// Concurrent misses for one tenant share a single load.
type Provider struct {
	store  Reader
	cipher *Cipher
	ttl    time.Duration
	log    *logger.Logger
	now    func() time.Time

	mu    sync.RWMutex
	cache map[uuid.UUID]cacheEntry
	group singleflight.Group
}

// NewProvider creates a provider. cipher may be nil when no SMTP secrets are stored.
func NewProvider(store Reader, cipher *Cipher, ttl time.Duration, log *logger.Logger) *Provider {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Provider{
		store:  store,
		cipher: cipher,
		ttl:    ttl,
		log:    log,
		now:    time.Now,
		cache:  make(map[uuid.UUID]cacheEntry),
	}
}

func (p *Provider) load(ctx context.Context, tenantID uuid.UUID) (Settings, error) {
	p.mu.RLock()
	entry, ok := p.cache[tenantID]
	p.mu.RUnlock()
	if ok && p.now().Before(entry.expires) {
		return entry.settings, nil
	}

	v, err, _ := p.group.Do(tenantID.String(), func() (any, error) {
		stored, err := p.store.Get(ctx, tenantID)
		if err != nil {
			return Settings{}, err
		}
		s := Settings{TenantID: tenantID, Preferences: DefaultPreferences()}
		if stored != nil {
			s = *stored
		}
		p.mu.Lock()
		p.cache[tenantID] = cacheEntry{settings: s, expires: p.now().Add(p.ttl)}
		p.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return Settings{}, err
	}
	return v.(Settings), nil
}

// Invalidate drops the cached settings of a tenant after they were saved.
func (p *Provider) Invalidate(tenantID uuid.UUID) {
	p.mu.Lock()
	delete(p.cache, tenantID)
	p.mu.Unlock()
}

func (p *Provider) Preferences(ctx context.Context, tenantID uuid.UUID) (Preferences, error) {
	s, err := p.load(ctx, tenantID)
	if err != nil {
		return Preferences{}, err
	}
	return s.Preferences, nil
}

// IsChannelEnabled reports the master switch. Load failures count as disabled.
func (p *Provider) IsChannelEnabled(ctx context.Context, tenantID uuid.UUID, ch Channel) bool {
	prefs, err := p.Preferences(ctx, tenantID)
	if err != nil {
		p.log.Warn("failed to load notification settings", "tenantId", tenantID, "error", err)
		return false
	}
	return prefs.ChannelEnabled(ch)
}

// WhatsAppConfig returns nil when the tenant has no own WhatsApp device.
func (p *Provider) WhatsAppConfig(ctx context.Context, tenantID uuid.UUID) (*WhatsAppCredentials, error) {
	s, err := p.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if s.WhatsApp.URL == "" {
		return nil, nil
	}
	creds := s.WhatsApp
	return &creds, nil
}

// SMTPConfig returns nil when the tenant has no own mail server. The password comes back decrypted.
func (p *Provider) SMTPConfig(ctx context.Context, tenantID uuid.UUID) (*SMTPCredentials, error) {
	s, err := p.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if s.SMTP.Host == "" {
		return nil, nil
	}

	creds := s.SMTP
	if creds.Password != "" {
		if p.cipher == nil {
			return nil, fmt.Errorf("smtp password stored but no encryption secret configured")
		}
		plain, err := p.cipher.Decrypt(creds.Password)
		if err != nil {
			return nil, err
		}
		creds.Password = plain
	}
	return &creds, nil
}
