package adapters

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is a two-level lookup: platform -> adapter, and
// (platform, post type) -> operation support. Adding a platform or a
// post type is a registration, not a new branch in dispatch logic.
type Registry struct {
	adapters   map[string]Adapter
	operations map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		adapters:   make(map[string]Adapter),
		operations: make(map[string]map[string]struct{}),
	}
}

func (r *Registry) Register(adapter Adapter) error {
	platform := strings.ToLower(strings.TrimSpace(adapter.Platform()))
	if platform == "" {
		return fmt.Errorf("adapter platform is empty")
	}
	if _, exists := r.adapters[platform]; exists {
		return fmt.Errorf("adapter for platform %q already registered", platform)
	}

	ops := make(map[string]struct{})
	for _, postType := range adapter.PostTypes() {
		ops[strings.ToLower(strings.TrimSpace(postType))] = struct{}{}
	}

	r.adapters[platform] = adapter
	r.operations[platform] = ops
	return nil
}

func (r *Registry) Adapter(platform string) (Adapter, bool) {
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(platform))]
	return adapter, ok
}

// Operation resolves the adapter for a (platform, post type) pair,
// reporting false when the platform is unknown or does not support the
// post type.
func (r *Registry) Operation(platform, postType string) (Adapter, bool) {
	key := strings.ToLower(strings.TrimSpace(platform))
	adapter, ok := r.adapters[key]
	if !ok {
		return nil, false
	}
	if _, ok := r.operations[key][strings.ToLower(strings.TrimSpace(postType))]; !ok {
		return nil, false
	}
	return adapter, true
}

func (r *Registry) Platforms() []string {
	platforms := make([]string, 0, len(r.adapters))
	for platform := range r.adapters {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)
	return platforms
}
