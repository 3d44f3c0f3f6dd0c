package interaction

import (
	"context"
	"sync"

	"github.com/Decentr-net/iris/internal/api"
	"github.com/Decentr-net/iris/internal/entities"
)

// Registry keeps one PostState per post id. Newer server data overwrites older one in arrival order.
type Registry struct {
	client api.Client

	mu     sync.Mutex
	viewer string
	states map[string]*PostState
}

// NewRegistry ...
func NewRegistry(c api.Client, viewerID string) *Registry {
	return &Registry{
		client: c,
		viewer: viewerID,
		states: map[string]*PostState{},
	}
}

// Get ...
func (r *Registry) Get(id string) (*PostState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[id]
	return s, ok
}

// Put creates state for the post or reseeds the existing one.
func (r *Registry) Put(p entities.Post) *PostState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.states[p.ID]; ok {
		s.Reseed(p)
		return s
	}

	s := New(r.client, p, r.viewer)
	r.states[p.ID] = s

	return s
}

// Seed puts posts in order.
func (r *Registry) Seed(posts ...entities.Post) {
	for _, p := range posts {
		r.Put(p)
	}
}

// Open loads the post from the server and puts it.
func (r *Registry) Open(ctx context.Context, id string) (*PostState, error) {
	s, err := Open(ctx, r.client, id, r.Viewer())
	if err != nil {
		return nil, err
	}

	return r.Put(s.Snapshot().Post), nil
}

// Viewer ...
func (r *Registry) Viewer() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.viewer
}

// Reset drops all states and switches the viewer.
func (r *Registry) Reset(viewerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.viewer = viewerID
	r.states = map[string]*PostState{}
}

// Len ...
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.states)
}
