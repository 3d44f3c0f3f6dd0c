// Package feed contains a paginated feed of posts of a single type.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/iris/internal/api"
	"github.com/Decentr-net/iris/internal/entities"
)

// DefaultLimit is the page size used by the feed screens.
const DefaultLimit = 10

var log = logrus.WithField("package", "feed")

// ErrInvalidPage is returned when page is less than 1.
var ErrInvalidPage = errors.New("invalid page")

// State ...
type State int

const (
	// Idle means nothing was requested yet.
	Idle State = iota
	// Loading means a request for the current page is in flight.
	Loading
	// Ready means posts of the current page are applied.
	Ready
	// Failed means the last request for the current page failed.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is a consistent copy of feed state.
type Snapshot struct {
	Type       entities.PostType
	State      State
	Page       int
	Posts      []entities.Post
	Pagination *entities.PaginationInfo
	// Error is the user-facing message of Cause.
	Error string
	Cause error
}

// Empty reports a successful load without posts. It is not an error.
func (s Snapshot) Empty() bool {
	return s.State == Ready && len(s.Posts) == 0
}

// EmptyMessage returns text shown when the feed has no posts, e.g. "No images found".
func EmptyMessage(t entities.PostType) string {
	return fmt.Sprintf("No %ss found", t)
}

// Option ...
type Option func(f *Feed)

// WithApplyHook sets fn which is called with every applied page of posts.
// fn is called under the feed lock and must not call the feed back.
func WithApplyHook(fn func(posts []entities.Post)) Option {
	return func(f *Feed) {
		f.hook = fn
	}
}

// Feed loads pages of posts of one type. Only the response to the latest request is applied.
type Feed struct {
	client api.Client
	typ    entities.PostType
	limit  int
	hook   func(posts []entities.Post)

	mu         sync.Mutex
	seq        uint64
	state      State
	page       int
	posts      []entities.Post
	pagination *entities.PaginationInfo
	err        error

	subsMu  sync.Mutex
	subs    map[int]chan struct{}
	nextSub int

	wg sync.WaitGroup
}

// New creates an idle feed. Non-positive limit is replaced with DefaultLimit.
func New(client api.Client, t entities.PostType, limit int, opts ...Option) *Feed {
	if limit < 1 {
		limit = DefaultLimit
	}

	f := &Feed{
		client: client,
		typ:    t,
		limit:  limit,
		page:   1,
		subs:   map[int]chan struct{}{},
	}

	for _, o := range opts {
		o(f)
	}

	return f
}

// Type ...
func (f *Feed) Type() entities.PostType {
	return f.typ
}

// Start loads the current page if the feed is idle.
func (f *Feed) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != Idle {
		return
	}

	f.fetch(ctx)
}

// SetPage requests the page. Requesting the already requested page does nothing unless the feed is idle.
func (f *Feed) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if page == f.page && f.state != Idle {
		return nil
	}

	f.page = page
	f.fetch(ctx)

	return nil
}

// Refetch reloads the current page.
func (f *Feed) Refetch(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetch(ctx)
}

// Reset returns the feed to idle first page. Responses in flight are discarded.
func (f *Feed) Reset() {
	f.mu.Lock()
	f.seq++
	f.state = Idle
	f.page = 1
	f.posts = nil
	f.pagination = nil
	f.err = nil
	f.mu.Unlock()

	f.notify()
}

// Snapshot ...
func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Snapshot{
		Type:  f.typ,
		State: f.state,
		Page:  f.page,
		Posts: append([]entities.Post{}, f.posts...),
		Error: api.Message(f.err),
		Cause: f.err,
	}

	if f.pagination != nil {
		p := *f.pagination
		s.Pagination = &p
	}

	return s
}

// Subscribe returns a channel which receives a value after state changes.
// Notifications are coalesced, so receivers should read Snapshot after each one.
func (f *Feed) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	f.subsMu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = ch
	f.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.subsMu.Lock()
			delete(f.subs, id)
			f.subsMu.Unlock()
		})
	}
}

// Wait blocks until all started requests are finished.
func (f *Feed) Wait() {
	f.wg.Wait()
}

func (f *Feed) notify() {
	f.subsMu.Lock()
	defer f.subsMu.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// fetch must be called with f.mu held.
func (f *Feed) fetch(ctx context.Context) {
	f.seq++
	seq, page := f.seq, f.page

	f.state = Loading
	f.posts = nil
	f.err = nil

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()

		res, err := f.client.ListPosts(ctx, f.typ, page, f.limit)
		f.apply(seq, page, res, err)
	}()

	f.notify()
}

func (f *Feed) apply(seq uint64, page int, res *api.PostsPage, err error) {
	f.mu.Lock()

	if seq != f.seq {
		f.mu.Unlock()
		log.WithFields(logrus.Fields{
			"type": f.typ,
			"page": page,
		}).Debug("discard stale response")
		return
	}

	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"type": f.typ,
			"page": page,
		}).Error("failed to list posts")

		f.state = Failed
		f.posts = nil
		f.err = err
	} else {
		p := res.Pagination
		f.state = Ready
		f.posts = res.Posts
		f.pagination = &p
		f.err = nil

		if f.hook != nil {
			f.hook(append([]entities.Post{}, res.Posts...))
		}
	}

	f.mu.Unlock()

	f.notify()
}
