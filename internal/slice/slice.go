// Package slice holds one paginated, filtered collection of domain entities
// together with its request lifecycle state and a "current item" cache.
//
// Every list and detail fetch is tagged with a monotonic sequence token.
// Only the response to the newest request is allowed to write; responses
// that resolve after they were superseded are dropped.
package slice

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"go.uber.org/zap"

	"github.com/example/grocery-sync/internal/observer"
)

const DefaultPageSize = 20

// Entity is anything identified by a string id.
type Entity interface {
	GetID() string
}

// Page is one page of list results as returned by the backend.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// Fetcher is the backend surface a slice needs.
type Fetcher[T Entity, F any] interface {
	List(ctx context.Context, filter F, page, pageSize int) (Page[T], error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, entity T) (T, error)
}

// Patch is a partial update keyed by JSON field name. It is applied as an
// RFC 7386 merge patch: nested objects merge, null removes a field.
type Patch map[string]any

// State is a point-in-time copy of a slice.
type State[T any, F any] struct {
	Items      []T
	Total      int
	Page       int
	PageSize   int
	TotalPages int
	Loading    bool
	Error      string
	Filter     F

	Current        *T
	CurrentLoading bool
	CurrentError   string
}

type Slice[T Entity, F any] struct {
	name    string
	fetcher Fetcher[T, F]
	logger  *zap.Logger

	mu         sync.Mutex
	state      State[T, F]
	listSeq    uint64
	currentSeq uint64

	observers observer.Registry
}

func New[T Entity, F any](name string, fetcher Fetcher[T, F], logger *zap.Logger) *Slice[T, F] {
	return &Slice[T, F]{
		name:    name,
		fetcher: fetcher,
		logger:  logger.Named(name),
		state: State[T, F]{
			Page:     1,
			PageSize: DefaultPageSize,
		},
	}
}

func (s *Slice[T, F]) Name() string { return s.name }

// FetchList loads a page using the slice's current filter.
func (s *Slice[T, F]) FetchList(ctx context.Context, page, pageSize int) error {
	s.mu.Lock()
	filter := s.state.Filter
	s.mu.Unlock()
	return s.fetchList(ctx, filter, page, pageSize)
}

// FetchListWith merges update into the filter and then loads a page.
func (s *Slice[T, F]) FetchListWith(ctx context.Context, update func(*F), page, pageSize int) error {
	s.SetFilter(update)
	return s.FetchList(ctx, page, pageSize)
}

func (s *Slice[T, F]) fetchList(ctx context.Context, filter F, page, pageSize int) error {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	s.mu.Lock()
	s.listSeq++
	seq := s.listSeq
	s.state.Loading = true
	s.state.Error = ""
	s.mu.Unlock()
	s.observers.Notify()

	result, err := s.fetcher.List(ctx, filter, page, pageSize)

	s.mu.Lock()
	if seq != s.listSeq {
		s.mu.Unlock()
		s.logger.Debug("dropping superseded list response",
			zap.Uint64("seq", seq), zap.Int("page", page))
		return nil
	}
	s.state.Loading = false
	if err != nil {
		s.state.Error = err.Error()
		s.mu.Unlock()
		s.observers.Notify()
		s.logger.Warn("list fetch failed", zap.Int("page", page), zap.Error(err))
		return fmt.Errorf("fetch %s page %d: %w", s.name, page, err)
	}

	if result.Page < 1 {
		result.Page = page
	}
	if result.PageSize <= 0 {
		result.PageSize = pageSize
	}
	s.state.Items = append([]T(nil), result.Items...)
	s.state.Total = result.Total
	s.state.Page = result.Page
	s.state.PageSize = result.PageSize
	s.state.TotalPages = result.TotalPages
	if s.state.TotalPages == 0 {
		s.state.TotalPages = totalPages(result.Total, result.PageSize)
	}
	s.mu.Unlock()
	s.observers.Notify()
	return nil
}

// FetchByID loads the current entity. Its loading and error state are
// independent from the list.
func (s *Slice[T, F]) FetchByID(ctx context.Context, id string) error {
	s.mu.Lock()
	s.currentSeq++
	seq := s.currentSeq
	s.state.CurrentLoading = true
	s.state.CurrentError = ""
	s.mu.Unlock()
	s.observers.Notify()

	entity, err := s.fetcher.Get(ctx, id)

	s.mu.Lock()
	if seq != s.currentSeq {
		s.mu.Unlock()
		s.logger.Debug("dropping superseded detail response", zap.String("id", id))
		return nil
	}
	s.state.CurrentLoading = false
	if err != nil {
		s.state.CurrentError = err.Error()
		s.mu.Unlock()
		s.observers.Notify()
		s.logger.Warn("detail fetch failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("fetch %s %s: %w", s.name, id, err)
	}
	s.state.Current = &entity
	s.mu.Unlock()
	s.observers.Notify()
	return nil
}

// Create asks the backend to create entity and, once confirmed, puts the
// authoritative copy at the head of the current page.
func (s *Slice[T, F]) Create(ctx context.Context, entity T) (T, error) {
	created, err := s.fetcher.Create(ctx, entity)

	s.mu.Lock()
	if err != nil {
		s.state.Error = err.Error()
		s.mu.Unlock()
		s.observers.Notify()
		s.logger.Warn("create failed", zap.Error(err))
		var zero T
		return zero, fmt.Errorf("create %s: %w", s.name, err)
	}
	s.state.Items = append([]T{created}, s.state.Items...)
	s.state.Total++
	s.state.TotalPages = totalPages(s.state.Total, s.state.PageSize)
	s.state.Error = ""
	s.mu.Unlock()
	s.observers.Notify()
	return created, nil
}

// ApplyPatch merges patch into the entity with the given id, both in the
// list and in the current cache. Unknown ids are ignored; a patch never
// inserts. The id field itself cannot be patched.
func (s *Slice[T, F]) ApplyPatch(id string, patch Patch) bool {
	clean := make(Patch, len(patch))
	for k, v := range patch {
		if k == "id" {
			continue
		}
		clean[k] = v
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		s.logger.Error("encoding patch", zap.String("id", id), zap.Error(err))
		return false
	}

	s.mu.Lock()
	applied := false
	for i := range s.state.Items {
		if s.state.Items[i].GetID() != id {
			continue
		}
		merged, err := mergeEntity(s.state.Items[i], raw)
		if err != nil {
			s.mu.Unlock()
			s.logger.Error("applying patch", zap.String("id", id), zap.Error(err))
			return false
		}
		s.state.Items[i] = merged
		applied = true
	}
	if s.state.Current != nil && (*s.state.Current).GetID() == id {
		merged, err := mergeEntity(*s.state.Current, raw)
		if err != nil {
			s.mu.Unlock()
			s.logger.Error("applying patch to current", zap.String("id", id), zap.Error(err))
			if applied {
				s.observers.Notify()
			}
			return applied
		}
		s.state.Current = &merged
		applied = true
	}
	s.mu.Unlock()

	if applied {
		s.observers.Notify()
	}
	return applied
}

// Update runs fn over the entity with the given id in the list and in the
// current cache. Unknown ids are ignored.
func (s *Slice[T, F]) Update(id string, fn func(T) T) bool {
	s.mu.Lock()
	applied := false
	for i := range s.state.Items {
		if s.state.Items[i].GetID() == id {
			s.state.Items[i] = fn(s.state.Items[i])
			applied = true
		}
	}
	if s.state.Current != nil && (*s.state.Current).GetID() == id {
		updated := fn(*s.state.Current)
		s.state.Current = &updated
		applied = true
	}
	s.mu.Unlock()

	if applied {
		s.observers.Notify()
	}
	return applied
}

// Replace swaps in a full copy of an entity already present in the list or
// current cache.
func (s *Slice[T, F]) Replace(entity T) bool {
	s.mu.Lock()
	applied := s.replaceLocked(entity)
	s.mu.Unlock()
	if applied {
		s.observers.Notify()
	}
	return applied
}

func (s *Slice[T, F]) replaceLocked(entity T) bool {
	id := entity.GetID()
	applied := false
	for i := range s.state.Items {
		if s.state.Items[i].GetID() == id {
			s.state.Items[i] = entity
			applied = true
		}
	}
	if s.state.Current != nil && (*s.state.Current).GetID() == id {
		e := entity
		s.state.Current = &e
		applied = true
	}
	return applied
}

// Commit runs a backend mutation and replaces the returned entity locally
// once the backend confirms it.
func (s *Slice[T, F]) Commit(ctx context.Context, call func(ctx context.Context) (T, error)) (T, error) {
	updated, err := call(ctx)

	s.mu.Lock()
	if err != nil {
		s.state.Error = err.Error()
		s.mu.Unlock()
		s.observers.Notify()
		s.logger.Warn("mutation failed", zap.Error(err))
		var zero T
		return zero, fmt.Errorf("update %s: %w", s.name, err)
	}
	s.replaceLocked(updated)
	s.state.Error = ""
	s.mu.Unlock()
	s.observers.Notify()
	return updated, nil
}

// SetFilter edits the filter in place. It does not fetch.
func (s *Slice[T, F]) SetFilter(update func(*F)) {
	if update == nil {
		return
	}
	s.mu.Lock()
	update(&s.state.Filter)
	s.mu.Unlock()
	s.observers.Notify()
}

func (s *Slice[T, F]) Filter() F {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Filter
}

func (s *Slice[T, F]) ClearError() {
	s.mu.Lock()
	s.state.Error = ""
	s.state.CurrentError = ""
	s.mu.Unlock()
	s.observers.Notify()
}

func (s *Slice[T, F]) ClearCurrent() {
	s.mu.Lock()
	s.currentSeq++
	s.state.Current = nil
	s.state.CurrentLoading = false
	s.state.CurrentError = ""
	s.mu.Unlock()
	s.observers.Notify()
}

// Reset drops everything, including in-flight responses.
func (s *Slice[T, F]) Reset() {
	s.mu.Lock()
	s.listSeq++
	s.currentSeq++
	s.state = State[T, F]{Page: 1, PageSize: DefaultPageSize}
	s.mu.Unlock()
	s.observers.Notify()
}

// Find looks up a loaded entity, first on the current page and then in the
// current cache.
func (s *Slice[T, F]) Find(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.state.Items {
		if item.GetID() == id {
			return item, true
		}
	}
	if s.state.Current != nil && (*s.state.Current).GetID() == id {
		return *s.state.Current, true
	}
	var zero T
	return zero, false
}

func (s *Slice[T, F]) State() State[T, F] {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.state
	out.Items = append([]T(nil), s.state.Items...)
	if s.state.Current != nil {
		c := *s.state.Current
		out.Current = &c
	}
	return out
}

// Subscribe registers fn to run after every state change.
func (s *Slice[T, F]) Subscribe(fn func()) *observer.Subscription {
	return s.observers.Subscribe(fn)
}

func mergeEntity[T any](entity T, patch []byte) (T, error) {
	var out T
	doc, err := json.Marshal(entity)
	if err != nil {
		return out, err
	}
	merged, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(merged, &out); err != nil {
		return out, err
	}
	return out, nil
}

func totalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
