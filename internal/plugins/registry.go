package plugins

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrPluginNotFound is returned when no module is registered for a
	// marketplace code.
	ErrPluginNotFound = errors.New("no plugin registered for marketplace")

	// ErrContractInvalid is returned when a registered module does not
	// expose both scrape and process capabilities.
	ErrContractInvalid = errors.New("plugin does not satisfy the scrape/process contract")
)

// Registry maps marketplace codes to their plugin contracts. The plugin set
// is closed at startup; loading is lazy and cached for the process lifetime.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	loaded    map[string]Contract
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		loaded:    make(map[string]Contract),
	}
}

// Register binds a marketplace code to a contract factory. Registering the
// same code twice replaces the earlier factory; registration happens only
// during startup wiring.
func (r *Registry) Register(code string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[code] = factory
	delete(r.loaded, code)
}

// Resolve returns the contract for a marketplace code, building it on first
// use. ErrPluginNotFound and ErrContractInvalid are configuration errors
// scoped to the one marketplace; callers keep processing the others.
func (r *Registry) Resolve(code string) (Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if contract, ok := r.loaded[code]; ok {
		return contract, nil
	}

	factory, ok := r.factories[code]
	if !ok {
		return Contract{}, fmt.Errorf("%w: %q", ErrPluginNotFound, code)
	}

	contract, err := factory()
	if err != nil {
		return Contract{}, fmt.Errorf("%w: %q: %v", ErrContractInvalid, code, err)
	}
	if contract.Scrape == nil {
		return Contract{}, fmt.Errorf("%w: %q is missing the scrape capability", ErrContractInvalid, code)
	}
	if contract.Process == nil {
		return Contract{}, fmt.Errorf("%w: %q is missing the process capability", ErrContractInvalid, code)
	}

	r.loaded[code] = contract
	return contract, nil
}

// Codes lists the registered marketplace codes in stable order.
func (r *Registry) Codes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]string, 0, len(r.factories))
	for code := range r.factories {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
