package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/scry-chat/internal/conversation"
	"github.com/phrazzld/scry-chat/internal/domain"
	"github.com/phrazzld/scry-chat/internal/events"
)

// DefaultFlushTimeout bounds the final save performed when Run stops.
const DefaultFlushTimeout = 10 * time.Second

// PersisterConfig controls save timing.
type PersisterConfig struct {
	// Interval between periodic saves; zero disables them
	Interval time.Duration

	// Debounce skips a save when the previous one is more recent than this
	Debounce time.Duration

	// FlushTimeout bounds the shutdown flush
	FlushTimeout time.Duration
}

// Persister moves conversations between a Provider and a Store.
// A nil store turns every operation into a no-op.
type Persister struct {
	store    Store
	provider conversation.Provider
	config   PersisterConfig
	logger   *slog.Logger
	now      func() time.Time
	changed  chan struct{}

	// generation counts change notifications; savedGen is the generation
	// covered by the last write
	generation atomic.Uint64
	mu         sync.Mutex
	savedGen   uint64
}

// NewPersister creates a persister for provider backed by store.
func NewPersister(store Store, provider conversation.Provider, cfg PersisterConfig, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = DefaultFlushTimeout
	}
	return &Persister{
		store:    store,
		provider: provider,
		config:   cfg,
		logger:   logger.With("component", "snapshot"),
		now:      time.Now,
		changed:  make(chan struct{}, 1),
	}
}

// Load restores the stored snapshot into empty conversations. Any failure
// is logged and the service continues with empty state. It returns the
// number of conversations restored.
func (p *Persister) Load(ctx context.Context) int {
	if p.store == nil {
		return 0
	}

	snap, err := p.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			p.logger.Info("no snapshot found, starting empty")
		} else {
			p.logger.Error("failed to load snapshot, starting empty", "error", err)
		}
		return 0
	}

	restored := 0
	for key, conv := range snap.Conversations {
		if !p.restore(key, conv) {
			continue
		}
		restored++
	}

	p.logger.Info("snapshot loaded",
		"conversations", restored,
		"saved_at", snap.SavedAt)
	return restored
}

// ReloadIfEmpty restores the conversation behind key from the store when
// that conversation currently holds no turns. It reports whether turns
// were restored.
func (p *Persister) ReloadIfEmpty(ctx context.Context, key string) bool {
	if p.store == nil {
		return false
	}
	snapKey := p.snapshotKey(key)
	if p.provider.ForKey(snapKey).Len() > 0 {
		return false
	}

	snap, err := p.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSnapshot) {
			p.logger.Warn("failed to reload snapshot", "error", err)
		}
		return false
	}

	conv, ok := snap.Conversations[snapKey]
	if !ok {
		return false
	}
	if !p.restore(snapKey, conv) {
		return false
	}
	p.logger.Debug("conversation reloaded from snapshot", "key", snapKey)
	return true
}

// Save writes the current conversations. It does nothing when every
// conversation is empty or when the last save is more recent than the
// debounce window. It reports whether a snapshot was written.
func (p *Persister) Save(ctx context.Context) (bool, error) {
	saved, _, err := p.save(ctx, false)
	return saved, err
}

// Dirty reports whether a change was notified after the last write.
func (p *Persister) Dirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation.Load() != p.savedGen
}

// save writes a snapshot unless it is empty or, when force is false, the
// debounce window is still open. A debounced save returns how long until
// the window closes.
func (p *Persister) save(ctx context.Context, force bool) (bool, time.Duration, error) {
	if p.store == nil {
		return false, 0, nil
	}

	gen := p.generation.Load()
	now := p.now()
	snap := Snapshot{
		Version:       CurrentVersion,
		SavedAt:       now,
		Conversations: make(map[string]domain.Conversation),
	}
	for key, store := range p.provider.All() {
		conv := store.Snapshot()
		if conv.IsEmpty() {
			continue
		}
		snap.Conversations[key] = conv
	}
	if snap.IsEmpty() {
		p.logger.Debug("nothing to save, skipping snapshot")
		p.markSaved(gen)
		return false, 0, nil
	}

	if !force && p.config.Debounce > 0 {
		last, err := p.store.LastSaved(ctx)
		if err != nil {
			p.logger.Warn("failed to read last snapshot time", "error", err)
		} else if !last.IsZero() && now.Sub(last) < p.config.Debounce {
			p.logger.Debug("snapshot saved recently, skipping",
				"last_saved", last,
				"debounce", p.config.Debounce)
			return false, p.config.Debounce - now.Sub(last), nil
		}
	}

	if err := p.store.Save(ctx, snap); err != nil {
		return false, 0, err
	}
	p.markSaved(gen)
	p.logger.Debug("snapshot saved", "conversations", len(snap.Conversations))
	return true, 0, nil
}

func (p *Persister) markSaved(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen > p.savedGen {
		p.savedGen = gen
	}
}

// Flush performs a final save bounded by the flush timeout. It ignores the
// debounce window so the newest turns always reach the store. Errors are
// logged only.
func (p *Persister) Flush() {
	if p.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.config.FlushTimeout)
	defer cancel()

	saved, _, err := p.save(ctx, true)
	if err != nil {
		p.logger.Error("final snapshot failed", "error", err)
		return
	}
	if saved {
		p.logger.Info("final snapshot saved")
	}
}

// HandleEvent marks the conversations as changed so that Run saves them.
// It never blocks; changes arriving while a save is pending coalesce.
func (p *Persister) HandleEvent(_ context.Context, _ *events.ConversationEvent) error {
	if p.store == nil {
		return nil
	}
	p.generation.Add(1)
	select {
	case p.changed <- struct{}{}:
	default:
	}
	return nil
}

// Run saves after every change notification and periodically until ctx is
// cancelled, then flushes once more. A change that falls inside the
// debounce window is saved when the window closes. Run always returns nil
// so that persistence never fails shutdown.
func (p *Persister) Run(ctx context.Context) error {
	if p.store == nil {
		<-ctx.Done()
		return nil
	}

	var tick <-chan time.Time
	if p.config.Interval > 0 {
		ticker := time.NewTicker(p.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// retry fires when a debounced change may be written
	retry := time.NewTimer(time.Hour)
	retry.Stop()
	defer retry.Stop()

	saveChanges := func(reason string) {
		if !p.Dirty() {
			return
		}
		_, wait, err := p.save(ctx, false)
		if err != nil {
			p.logger.Error("snapshot after change failed", "reason", reason, "error", err)
			return
		}
		if wait > 0 {
			retry.Reset(wait)
		}
	}

	for {
		select {
		case <-ctx.Done():
			p.Flush()
			return nil
		case <-p.changed:
			saveChanges("change")
		case <-retry.C:
			saveChanges("debounce")
		case <-tick:
			if _, err := p.Save(ctx); err != nil {
				p.logger.Error("periodic snapshot failed", "error", err)
			}
		}
	}
}

// Close releases the store.
func (p *Persister) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

func (p *Persister) snapshotKey(key string) string {
	if p.provider.Scope() == conversation.ScopeGlobal {
		return conversation.GlobalKey
	}
	return key
}

func (p *Persister) restore(key string, conv domain.Conversation) bool {
	if conv.IsEmpty() {
		return false
	}
	if p.provider.Scope() == conversation.ScopeGlobal && key != conversation.GlobalKey {
		return false
	}
	return p.provider.ForKey(key).RestoreIfEmpty(conv)
}
