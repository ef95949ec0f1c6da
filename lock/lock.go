package lock

import (
	"cmp"
	"container/heap"
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jathurchan/davlock/clock"
	"github.com/jathurchan/davlock/logger"
	"github.com/jathurchan/davlock/types"
)

// lockStore is the in-memory implementation of Store.
type lockStore struct {
	// sem is a one-slot semaphore guarding all state below. Unlike a mutex,
	// waiting for it can be abandoned when the caller's context ends.
	sem chan struct{}

	locks          map[types.StateToken]types.ActiveLock    // Lock values by state token.
	byPath         map[string]map[types.StateToken]struct{} // Tokens by folded lock path.
	expiries       map[types.StateToken]*expirationItem     // Heap entries by state token.
	expirationHeap *expirationHeap                          // Min-heap for managing lock expirations.

	config  StoreConfig
	clock   clock.Clock
	logger  logger.Logger
	metrics Metrics
	tokens  TokenGenerator

	stopCh    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewStore creates an in-memory Store with the provided options.
func NewStore(opts ...StoreOption) Store {
	config := DefaultStoreConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.Clock == nil {
		config.Clock = clock.New()
	}
	if config.Logger == nil {
		config.Logger = logger.NewNoOpLogger()
	}
	if config.Metrics == nil {
		config.Metrics = NewNoOpMetrics()
	}
	if config.TokenGenerator == nil {
		config.TokenGenerator = UUIDTokenGenerator{}
	}
	if config.MaxTimeout < config.DefaultTimeout {
		config.MaxTimeout = config.DefaultTimeout
	}

	expHeap := make(expirationHeap, 0)
	heap.Init(&expHeap)

	s := &lockStore{
		sem:            make(chan struct{}, 1),
		locks:          make(map[types.StateToken]types.ActiveLock),
		byPath:         make(map[string]map[types.StateToken]struct{}),
		expiries:       make(map[types.StateToken]*expirationItem),
		expirationHeap: &expHeap,
		config:         config,
		clock:          config.Clock,
		logger:         config.Logger.WithComponent("lock"),
		metrics:        config.Metrics,
		tokens:         config.TokenGenerator,
		stopCh:         make(chan struct{}),
	}

	if config.ReapInterval > 0 {
		ticker := s.clock.NewTicker(config.ReapInterval)
		s.wg.Add(1)
		go s.runReaper(ticker)
	}

	s.logger.Infow("Lock store initialized",
		"defaultTimeout", config.DefaultTimeout,
		"maxTimeout", config.MaxTimeout,
		"maxLocks", config.MaxLocks,
		"reapInterval", config.ReapInterval)

	return s
}

// enter acquires the store. A context that is already done is reported
// without touching the store.
func (s *lockStore) enter(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *lockStore) leave() {
	<-s.sem
}

// Create grants a new lock for req if no live lock conflicts with it.
func (s *lockStore) Create(ctx context.Context, req types.LockRequest) (lock types.ActiveLock, err error) {
	defer func() { s.metrics.IncrCreateRequest(err == nil) }()

	if req.Timeout < 0 {
		return types.ActiveLock{}, fmt.Errorf("%w: %v", ErrInvalidTimeout, req.Timeout)
	}
	if err := req.Validate(); err != nil {
		return types.ActiveLock{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	timeout := s.effectiveTimeout(req.Timeout)

	token, err := s.tokens.NewToken()
	if err != nil {
		return types.ActiveLock{}, err
	}

	if err := s.enter(ctx); err != nil {
		return types.ActiveLock{}, err
	}
	defer s.leave()

	now := s.clock.Now()
	s.pruneExpired(now)

	if conflicts := s.conflicts(req, now); len(conflicts) > 0 {
		s.metrics.IncrConflict()
		s.logger.Debugw("Lock conflict",
			"path", req.Path,
			"accessType", req.AccessType,
			"recursive", req.Recursive,
			"conflicts", len(conflicts))
		return types.ActiveLock{}, &ConflictError{Path: types.CleanPath(req.Path), Conflicts: conflicts}
	}

	if s.config.MaxLocks > 0 && len(s.locks) >= s.config.MaxLocks {
		s.logger.Warnw("Lock limit reached", "maxLocks", s.config.MaxLocks)
		return types.ActiveLock{}, ErrTooManyLocks
	}
	if _, exists := s.locks[token]; exists {
		return types.ActiveLock{}, fmt.Errorf("%w: %s", ErrTokenCollision, token)
	}

	lock = types.NewActiveLock(req, token, timeout, now)
	s.insert(lock)

	s.logger.Debugw("Lock created",
		"token", token,
		"path", lock.Path,
		"accessType", lock.AccessType,
		"recursive", lock.Recursive,
		"timeout", timeout)

	return lock.Clone(), nil
}

// Refresh extends a live lock.
func (s *lockStore) Refresh(ctx context.Context, token types.StateToken, owner types.Owner, timeout time.Duration) (lock types.ActiveLock, err error) {
	defer func() { s.metrics.IncrRefreshRequest(err == nil) }()

	if timeout < 0 {
		return types.ActiveLock{}, fmt.Errorf("%w: %v", ErrInvalidTimeout, timeout)
	}
	if timeout > 0 {
		timeout = s.effectiveTimeout(timeout)
	}

	if err := s.enter(ctx); err != nil {
		return types.ActiveLock{}, err
	}
	defer s.leave()

	now := s.clock.Now()
	s.pruneExpired(now)

	current, err := s.lookup(token, owner, now)
	if err != nil {
		return types.ActiveLock{}, err
	}

	lock = current.Refresh(now, timeout)
	s.locks[token] = lock
	item := s.expiries[token]
	item.expiresAt = lock.Expiration
	heap.Fix(s.expirationHeap, item.index)

	s.logger.Debugw("Lock refreshed", "token", token, "expiration", lock.Expiration)

	return lock.Clone(), nil
}

// Release removes a live lock.
func (s *lockStore) Release(ctx context.Context, token types.StateToken, owner types.Owner) (err error) {
	defer func() { s.metrics.IncrReleaseRequest(err == nil) }()

	if err := s.enter(ctx); err != nil {
		return err
	}
	defer s.leave()

	now := s.clock.Now()
	s.pruneExpired(now)

	if _, err := s.lookup(token, owner, now); err != nil {
		return err
	}

	lock := s.remove(token)
	s.metrics.ObserveLockHoldDuration(now.Sub(lock.Issued), true)
	s.logger.Debugw("Lock released", "token", token, "path", lock.Path)

	return nil
}

// FindActive returns the live locks covering path.
func (s *lockStore) FindActive(ctx context.Context, path string, owner types.Owner) ([]types.ActiveLock, error) {
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	defer s.leave()

	now := s.clock.Now()
	byOwner := FilterByOwner(owner)

	var out []types.ActiveLock
	for _, l := range s.covering(path, now) {
		if byOwner(l) {
			out = append(out, l)
		}
	}
	sortLocks(out)
	return out, nil
}

// FindAll returns every live lock, optionally restricted to owner.
func (s *lockStore) FindAll(ctx context.Context, owner types.Owner) ([]types.ActiveLock, error) {
	return s.Find(ctx, FilterByOwner(owner))
}

// Find returns every live lock accepted by filter.
func (s *lockStore) Find(ctx context.Context, filter LockFilter) ([]types.ActiveLock, error) {
	if filter == nil {
		filter = FilterAll
	}
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	defer s.leave()

	now := s.clock.Now()
	var out []types.ActiveLock
	for _, l := range s.locks {
		if l.IsActive(now) && filter(l) {
			out = append(out, l.Clone())
		}
	}
	sortLocks(out)
	return out, nil
}

// Close stops the reaper, if running. It is safe to call more than once.
func (s *lockStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		s.logger.Infow("Lock store closed")
	})
	return nil
}

// effectiveTimeout applies the default for zero and caps at MaxTimeout.
func (s *lockStore) effectiveTimeout(requested time.Duration) time.Duration {
	if requested == 0 {
		requested = s.config.DefaultTimeout
	}
	if requested > s.config.MaxTimeout {
		return s.config.MaxTimeout
	}
	return requested
}

// lookup returns the live lock for token after checking owner. Must be
// called inside the store.
func (s *lockStore) lookup(token types.StateToken, owner types.Owner, now time.Time) (types.ActiveLock, error) {
	lock, ok := s.locks[token]
	if !ok || !lock.IsActive(now) {
		return types.ActiveLock{}, fmt.Errorf("%w: %s", ErrLockNotFound, token)
	}
	if !lock.Owner.Matches(owner) {
		return types.ActiveLock{}, fmt.Errorf("%w: %s", ErrLockOwnerMismatch, token)
	}
	return lock, nil
}

// conflicts returns the live locks incompatible with req.
func (s *lockStore) conflicts(req types.LockRequest, now time.Time) []types.ActiveLock {
	candidates := s.covering(req.Path, now)
	if req.Recursive {
		candidates = append(candidates, s.descendants(req.Path, now)...)
	}

	var out []types.ActiveLock
	for _, existing := range candidates {
		if conflictsWith(req, existing) {
			out = append(out, existing)
		}
	}
	sortLocks(out)
	return out
}

// conflictsWith applies the WebDAV compatibility rules between a requested
// lock and an existing live lock.
func conflictsWith(req types.LockRequest, existing types.ActiveLock) bool {
	sameAccess := existing.AccessType == req.AccessType

	if existing.Covers(req.Path) {
		if !sameAccess || existing.AccessType == types.AccessExclusive {
			return true
		}
	}
	if types.Covers(req.Path, req.Recursive, existing.Path) {
		if req.AccessType == types.AccessExclusive || !sameAccess {
			return true
		}
	}
	return false
}

// covering returns copies of the live locks whose scope includes p: locks on
// p itself and recursive locks on its ancestors.
func (s *lockStore) covering(p string, now time.Time) []types.ActiveLock {
	var out []types.ActiveLock
	for _, key := range ancestorKeys(types.PathKey(p)) {
		for token := range s.byPath[key] {
			lock, ok := s.locks[token]
			if !ok {
				panic(fmt.Sprintf("lock: path index references unknown token %s", token))
			}
			if lock.IsActive(now) && lock.Covers(p) {
				out = append(out, lock.Clone())
			}
		}
	}
	return out
}

// descendants returns copies of the live locks on proper descendants of p.
func (s *lockStore) descendants(p string, now time.Time) []types.ActiveLock {
	key := types.PathKey(p)
	prefix := key + "/"
	if key == "/" {
		prefix = "/"
	}

	var out []types.ActiveLock
	for k, tokens := range s.byPath {
		if k == key || !strings.HasPrefix(k, prefix) {
			continue
		}
		for token := range tokens {
			lock, ok := s.locks[token]
			if !ok {
				panic(fmt.Sprintf("lock: path index references unknown token %s", token))
			}
			if lock.IsActive(now) {
				out = append(out, lock.Clone())
			}
		}
	}
	return out
}

// ancestorKeys returns key followed by each of its ancestors up to "/".
func ancestorKeys(key string) []string {
	keys := []string{key}
	for key != "/" {
		key = path.Dir(key)
		keys = append(keys, key)
	}
	return keys
}

// insert adds lock to every index.
func (s *lockStore) insert(lock types.ActiveLock) {
	token := lock.StateToken
	key := types.PathKey(lock.Path)

	s.locks[token] = lock
	tokens, ok := s.byPath[key]
	if !ok {
		tokens = make(map[types.StateToken]struct{})
		s.byPath[key] = tokens
	}
	tokens[token] = struct{}{}

	item := &expirationItem{token: token, expiresAt: lock.Expiration}
	heap.Push(s.expirationHeap, item)
	s.expiries[token] = item

	s.metrics.SetActiveLocks(len(s.locks))
}

// remove deletes token from every index and returns the removed lock.
// A token present in one index but not another is a programming error.
func (s *lockStore) remove(token types.StateToken) types.ActiveLock {
	lock, ok := s.locks[token]
	if !ok {
		panic(fmt.Sprintf("lock: remove of unknown token %s", token))
	}
	delete(s.locks, token)

	key := types.PathKey(lock.Path)
	tokens := s.byPath[key]
	if _, ok := tokens[token]; !ok {
		panic(fmt.Sprintf("lock: token %s missing from path index %q", token, key))
	}
	delete(tokens, token)
	if len(tokens) == 0 {
		delete(s.byPath, key)
	}

	item, ok := s.expiries[token]
	if !ok {
		panic(fmt.Sprintf("lock: token %s missing from expiration index", token))
	}
	heap.Remove(s.expirationHeap, item.index)
	delete(s.expiries, token)

	s.metrics.SetActiveLocks(len(s.locks))
	return lock
}

// pruneExpired removes every lock expired at now and returns how many were
// removed. Must be called inside the store.
func (s *lockStore) pruneExpired(now time.Time) int {
	removed := 0
	for item := s.expirationHeap.peek(); item != nil && !now.Before(item.expiresAt); item = s.expirationHeap.peek() {
		lock := s.remove(item.token)
		s.metrics.ObserveLockHoldDuration(lock.Expiration.Sub(lock.Issued), false)
		removed++
	}
	if removed > 0 {
		s.metrics.IncrExpiredLocks(removed)
		s.logger.Debugw("Expired locks removed", "count", removed)
	}
	return removed
}

// runReaper frees expired locks on every tick until the store is closed.
func (s *lockStore) runReaper(ticker clock.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.Chan():
			s.reap()
		}
	}
}

func (s *lockStore) reap() int {
	select {
	case s.sem <- struct{}{}:
	case <-s.stopCh:
		return 0
	}
	defer s.leave()
	return s.pruneExpired(s.clock.Now())
}

func sortLocks(locks []types.ActiveLock) {
	slices.SortFunc(locks, func(a, b types.ActiveLock) int {
		return cmp.Or(
			strings.Compare(a.Path, b.Path),
			a.Issued.Compare(b.Issued),
			strings.Compare(string(a.StateToken), string(b.StateToken)),
		)
	})
}
