package query

import (
	stdErrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownProvider is returned when a configuration names an unregistered provider.
var ErrUnknownProvider = stdErrors.New("unknown provider")

// Factory constructs a provider from its configuration. Missing required
// parameters must fail here rather than at search time.
type Factory func(cfg Configuration) (Provider, error)

// Registration describes a provider class: its identity, searchable fields and factory.
type Registration struct {
	Code   string
	Label  string
	Fields []string
	New    Factory
}

// Registry maps provider codes to registrations.
type Registry struct {
	mu            sync.RWMutex
	registrations map[string]Registration
}

// NewRegistry creates a registry holding regs.
func NewRegistry(regs ...Registration) *Registry {
	r := &Registry{registrations: make(map[string]Registration, len(regs))}
	for _, reg := range regs {
		r.Register(reg)
	}
	return r
}

// Register adds or replaces a registration.
func (r *Registry) Register(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations[strings.ToLower(reg.Code)] = reg
}

// Lookup returns the registration for code.
func (r *Registry) Lookup(code string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.registrations[strings.ToLower(code)]
	return reg, ok
}

// Label returns the label of a provider class without constructing it.
func (r *Registry) Label(code string) string {
	if reg, ok := r.Lookup(code); ok {
		return reg.Label
	}
	return code
}

// Codes returns the registered codes sorted alphabetically.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.registrations))
	for code := range r.registrations {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Build constructs the provider described by cfg.
func (r *Registry) Build(cfg Configuration) (Provider, error) {
	reg, ok := r.Lookup(cfg.Code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Code)
	}
	if cfg.Parameters == nil {
		cfg.Parameters = map[string]string{}
	}
	p, err := reg.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("building provider %s: %w", cfg.Code, err)
	}
	return p, nil
}
