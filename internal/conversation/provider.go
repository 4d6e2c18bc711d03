package conversation

import (
	"fmt"
	"sort"
	"sync"
)

// Scope names for Provider selection.
const (
	ScopeGlobal  = "global"
	ScopeSession = "session"
)

// GlobalKey is the key under which the global conversation is snapshotted.
const GlobalKey = "global"

// Provider hands out the conversation store for a client key.
type Provider interface {
	// ForKey returns the store serving key, creating it if needed.
	ForKey(key string) *Store

	// All returns every store keyed by its snapshot key.
	All() map[string]*Store

	// Scope returns the scope name of the provider.
	Scope() string
}

// NewProvider creates the provider for the named scope.
func NewProvider(scope, defaultModel string) (Provider, error) {
	switch scope {
	case ScopeGlobal, "":
		return NewGlobalProvider(defaultModel), nil
	case ScopeSession:
		return NewSessionProvider(defaultModel), nil
	default:
		return nil, fmt.Errorf("unknown conversation scope %q", scope)
	}
}

// GlobalProvider serves one conversation to every caller.
type GlobalProvider struct {
	store *Store
}

// NewGlobalProvider creates a provider around a single store.
func NewGlobalProvider(defaultModel string) *GlobalProvider {
	return &GlobalProvider{store: NewStore(defaultModel)}
}

// ForKey ignores the key.
func (p *GlobalProvider) ForKey(string) *Store {
	return p.store
}

// All returns the single store under GlobalKey.
func (p *GlobalProvider) All() map[string]*Store {
	return map[string]*Store{GlobalKey: p.store}
}

// Scope returns ScopeGlobal.
func (p *GlobalProvider) Scope() string {
	return ScopeGlobal
}

// SessionProvider serves one conversation per client key.
type SessionProvider struct {
	mu           sync.Mutex
	defaultModel string
	stores       map[string]*Store
}

// NewSessionProvider creates an empty per-session provider.
func NewSessionProvider(defaultModel string) *SessionProvider {
	return &SessionProvider{
		defaultModel: defaultModel,
		stores:       make(map[string]*Store),
	}
}

// ForKey returns the key's store, creating an empty one on first use.
func (p *SessionProvider) ForKey(key string) *Store {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stores[key]
	if !ok {
		s = NewStore(p.defaultModel)
		p.stores[key] = s
	}
	return s
}

// All returns a copy of the key to store map.
func (p *SessionProvider) All() map[string]*Store {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]*Store, len(p.stores))
	for k, s := range p.stores {
		out[k] = s
	}
	return out
}

// Keys returns the known session keys in sorted order.
func (p *SessionProvider) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.stores))
	for k := range p.stores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Scope returns ScopeSession.
func (p *SessionProvider) Scope() string {
	return ScopeSession
}
