package content

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrObjectNotFound is returned by resolvers when the host object does not exist
var ErrObjectNotFound = errors.New("content object not found")

// Ref is a polymorphic reference to a host object: kind + opaque id
type Ref struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (r Ref) String() string {
	return r.Kind + ":" + r.ID
}

// Object is the minimal view the location service needs of a host object
type Object interface {
	DisplayName() string
}

// Resolver looks up host objects of one kind
type Resolver interface {
	Resolve(ctx context.Context, id string) (Object, error)
}

// ResolverFunc adapts a plain function to Resolver
type ResolverFunc func(ctx context.Context, id string) (Object, error)

// Resolve calls f(ctx, id)
func (f ResolverFunc) Resolve(ctx context.Context, id string) (Object, error) {
	return f(ctx, id)
}

// Registry maps content kinds to resolvers supplied by embedding applications
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]Resolver
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		resolvers: make(map[string]Resolver),
	}
}

// Register adds a resolver for kind
func (r *Registry) Register(kind string, resolver Resolver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if kind == "" {
		return fmt.Errorf("content kind cannot be empty")
	}
	if resolver == nil {
		return fmt.Errorf("resolver for %s cannot be nil", kind)
	}
	if _, exists := r.resolvers[kind]; exists {
		return fmt.Errorf("content kind %s is already registered", kind)
	}

	r.resolvers[kind] = resolver
	return nil
}

// Resolve finds the host object behind ref
func (r *Registry) Resolve(ctx context.Context, ref Ref) (Object, error) {
	r.mu.RLock()
	resolver, exists := r.resolvers[ref.Kind]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("content kind %s not registered", ref.Kind)
	}
	obj, err := resolver.Resolve(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", ref, err)
	}
	return obj, nil
}

// Has checks if a kind is registered
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.resolvers[kind]
	return exists
}

// Kinds returns all registered kinds
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.resolvers))
	for kind := range r.resolvers {
		kinds = append(kinds, kind)
	}
	return kinds
}
