package providers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

// Registry holds the configured providers and builds fallback chains.
type Registry struct {
	log       *logger.Logger
	byName    map[string]Provider
	def       string
	fallbacks []string
}

func NewRegistry(log *logger.Logger, def string, fallbacks []string, ps ...Provider) (*Registry, error) {
	if log == nil {
		log = logger.Nop()
	}
	r := &Registry{log: log, byName: map[string]Provider{}}
	for _, p := range ps {
		if p == nil {
			continue
		}
		name := strings.ToLower(p.Name())
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("duplicate provider %q", name)
		}
		r.byName[name] = p
	}
	if len(r.byName) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", ErrUnknown)
	}

	r.def = strings.ToLower(strings.TrimSpace(def))
	if _, ok := r.byName[r.def]; !ok {
		return nil, fmt.Errorf("%w: default provider %q is not configured", ErrUnknown, def)
	}
	for _, fb := range fallbacks {
		fb = strings.ToLower(strings.TrimSpace(fb))
		if fb == "" {
			continue
		}
		if _, ok := r.byName[fb]; !ok {
			log.Warn("ignoring unconfigured fallback provider", "provider", fb)
			continue
		}
		r.fallbacks = append(r.fallbacks, fb)
	}
	return r, nil
}

func (r *Registry) Default() string { return r.def }

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Chain returns name (or the default when empty) followed by the configured
// fallbacks, each provider at most once.
func (r *Registry) Chain(name string) (*Chain, error) {
	primary := strings.ToLower(strings.TrimSpace(name))
	if primary == "" {
		primary = r.def
	}
	if _, ok := r.byName[primary]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	seen := map[string]bool{primary: true}
	ps := []Provider{r.byName[primary]}
	for _, fb := range r.fallbacks {
		if seen[fb] {
			continue
		}
		seen[fb] = true
		ps = append(ps, r.byName[fb])
	}
	return NewChain(r.log, ps...), nil
}
