package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nexcart/storefront/internal/domain"
	"github.com/nexcart/storefront/internal/nexcart"
	"github.com/nexcart/storefront/internal/storage"
)

// ErrNoRemoteLine means the line was never created remotely, so only the local copy can change
var ErrNoRemoteLine = errors.New("cart line has no remote counterpart")

// SyncStatus tells whether a mutation reached the backend
type SyncStatus string

const (
	Synced    SyncStatus = "synced"
	LocalOnly SyncStatus = "local_only"
)

// SyncResult is returned by every mutation. Reason is set for LocalOnly results.
type SyncResult struct {
	Status SyncStatus
	Reason error
}

func synced() SyncResult { return SyncResult{Status: Synced} }

func localOnly(reason error) SyncResult { return SyncResult{Status: LocalOnly, Reason: reason} }

// Remote is the subset of the backend client the store uses
type Remote interface {
	MyCart(ctx context.Context) ([]domain.CartLine, error)
	AddItem(ctx context.Context, productID int64, quantity int) error
	UpdateItem(ctx context.Context, cartItemID int64, quantity int) error
	RemoveItem(ctx context.Context, cartItemID int64) error
	ClearCart(ctx context.Context) error
}

// Recorder receives the outcome of every sync attempt
type Recorder interface {
	ObserveSync(operation string, status SyncStatus)
}

// Snapshot is the derived read-only view of the cart
type Snapshot struct {
	Lines     []domain.CartLine
	ItemCount int
	Total     decimal.Decimal
}

// IsEmpty reports whether the cart holds no lines
func (s Snapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

func newSnapshot(lines []domain.CartLine) Snapshot {
	snap := Snapshot{
		Lines: append([]domain.CartLine(nil), lines...),
		Total: decimal.Zero,
	}
	for _, l := range lines {
		snap.ItemCount += l.Quantity
		snap.Total = snap.Total.Add(l.Subtotal())
	}
	return snap
}

type Option func(*Store)

// WithRecorder reports sync outcomes, e.g. to prometheus
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// Store reconciles the local cart with the remote one.
// Local state is guarded by a mutex; remote calls are not serialized against each other.
type Store struct {
	remote   Remote
	storage  storage.Store
	recorder Recorder
	logger   *zap.Logger

	mu        sync.Mutex
	lines     []domain.CartLine
	listeners map[int]func(Snapshot)
	nextID    int

	loads  singleflight.Group
	cancel context.CancelFunc
	done   chan struct{}
}

func New(remote Remote, store storage.Store, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		remote:    remote,
		storage:   store,
		logger:    logger,
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the cart and reloads it whenever the access token changes, until Close
func (s *Store) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	changes, err := s.storage.Watch(ctx, storage.KeyAccessToken)
	if err != nil {
		cancel()
		return err
	}

	s.cancel = cancel
	s.done = make(chan struct{})
	s.Load(ctx)

	go func() {
		defer close(s.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				s.logger.Debug("Access token changed, reloading cart")
				s.Load(ctx)
			}
		}
	}()
	return nil
}

// Close stops the credential watch started by Start
func (s *Store) Close() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
}

// Snapshot returns the current lines with their derived totals
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newSnapshot(s.lines)
}

// Subscribe registers fn to receive a snapshot after every change
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Load replaces local lines with the remote cart, or with the persisted copy
// when the remote cannot be read. It never fails; concurrent calls share one fetch.
// The shared fetch is detached from ctx, so a cancelled caller only stops waiting.
func (s *Store) Load(ctx context.Context) SyncResult {
	shared := context.WithoutCancel(ctx)
	ch := s.loads.DoChan("load", func() (any, error) {
		if err := s.resync(shared); err != nil {
			if !errors.Is(err, nexcart.ErrNoCredential) {
				s.logger.Warn("Failed to fetch remote cart, using local copy", zap.Error(err))
			}
			s.restore(shared)
			return localOnly(err), nil
		}
		return synced(), nil
	})

	var result SyncResult
	select {
	case r := <-ch:
		result = r.Val.(SyncResult)
	case <-ctx.Done():
		result = localOnly(ctx.Err())
	}
	s.record("load", result)
	return result
}

// AddItem adds quantity of product, incrementing an existing line for the same product.
// A quantity below one adds a single unit, the default of the add action.
func (s *Store) AddItem(ctx context.Context, product domain.Product, quantity int) SyncResult {
	if quantity < 1 {
		quantity = 1
	}
	apply := func(lines []domain.CartLine) []domain.CartLine {
		for i := range lines {
			if lines[i].ProductID == product.ID {
				lines[i].Quantity += quantity
				return lines
			}
		}
		return append(lines, domain.LineFromProduct(product, quantity))
	}

	err := s.remote.AddItem(ctx, product.ID, quantity)
	return s.settle(ctx, "add_item", err, apply)
}

// RemoveItem drops the line for productID
func (s *Store) RemoveItem(ctx context.Context, productID int64) SyncResult {
	apply := func(lines []domain.CartLine) []domain.CartLine {
		out := lines[:0]
		for _, l := range lines {
			if l.ProductID != productID {
				out = append(out, l)
			}
		}
		return out
	}

	line, ok := s.line(productID)
	if !ok || line.RemoteLineID == nil {
		return s.settle(ctx, "remove_item", ErrNoRemoteLine, apply)
	}
	err := s.remote.RemoveItem(ctx, *line.RemoteLineID)
	return s.settle(ctx, "remove_item", err, apply)
}

// UpdateQuantity sets the quantity of the line for productID; zero or less removes it.
// A line the remote has never seen is pushed with an add instead of an update.
func (s *Store) UpdateQuantity(ctx context.Context, productID int64, quantity int) SyncResult {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}
	apply := func(lines []domain.CartLine) []domain.CartLine {
		for i := range lines {
			if lines[i].ProductID == productID {
				lines[i].Quantity = quantity
			}
		}
		return lines
	}

	var err error
	if line, ok := s.line(productID); ok && line.RemoteLineID != nil {
		err = s.remote.UpdateItem(ctx, *line.RemoteLineID, quantity)
	} else {
		err = s.remote.AddItem(ctx, productID, quantity)
	}
	return s.settle(ctx, "update_quantity", err, apply)
}

// Clear empties the remote cart when possible and the local cart always
func (s *Store) Clear(ctx context.Context) SyncResult {
	result := synced()
	if err := s.remote.ClearCart(ctx); err != nil {
		s.logFallback("clear", err)
		result = localOnly(err)
	}
	s.ClearLocal(ctx)
	s.record("clear", result)
	return result
}

// ClearLocal empties the local cart without contacting the backend
func (s *Store) ClearLocal(ctx context.Context) {
	s.replace(ctx, nil)
}

// settle finishes a mutation: on remote success the cart is re-read from the
// backend, otherwise apply is run against the local lines.
func (s *Store) settle(ctx context.Context, operation string, remoteErr error, apply func([]domain.CartLine) []domain.CartLine) SyncResult {
	if remoteErr == nil {
		if err := s.resync(ctx); err != nil {
			s.logger.Warn("Failed to re-read cart after remote change", zap.String("operation", operation), zap.Error(err))
			// the backend took the change; mirror it locally until the next load
			s.mutate(ctx, apply)
		}
		s.record(operation, synced())
		return synced()
	}

	s.logFallback(operation, remoteErr)
	s.mutate(ctx, apply)
	result := localOnly(remoteErr)
	s.record(operation, result)
	return result
}

func (s *Store) resync(ctx context.Context) error {
	lines, err := s.remote.MyCart(ctx)
	if err != nil {
		return err
	}
	s.replace(ctx, lines)
	return nil
}

func (s *Store) restore(ctx context.Context) {
	data, err := s.storage.Get(ctx, storage.KeyCart)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("Failed to read persisted cart", zap.Error(err))
		}
		s.replace(ctx, nil)
		return
	}
	lines, err := decodeLines(data)
	if err != nil {
		s.logger.Warn("Discarding unreadable persisted cart", zap.Error(err))
		lines = nil
	}
	s.replace(ctx, lines)
}

func (s *Store) replace(ctx context.Context, lines []domain.CartLine) {
	s.mutate(ctx, func([]domain.CartLine) []domain.CartLine {
		return append([]domain.CartLine(nil), lines...)
	})
}

// mutate applies fn to the lines, persists the result and notifies listeners
func (s *Store) mutate(ctx context.Context, fn func([]domain.CartLine) []domain.CartLine) {
	s.mu.Lock()
	s.lines = fn(s.lines)
	snap := newSnapshot(s.lines)
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	s.persist(ctx, snap.Lines)
	for _, l := range listeners {
		l(snap)
	}
}

func (s *Store) persist(ctx context.Context, lines []domain.CartLine) {
	data, err := encodeLines(lines)
	if err != nil {
		s.logger.Error("Failed to encode cart", zap.Error(err))
		return
	}
	if err := s.storage.Set(ctx, storage.KeyCart, data); err != nil {
		s.logger.Warn("Failed to persist cart", zap.Error(err))
	}
}

func (s *Store) line(productID int64) (domain.CartLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return domain.CartLine{}, false
}

func (s *Store) logFallback(operation string, err error) {
	if errors.Is(err, nexcart.ErrNoCredential) || errors.Is(err, ErrNoRemoteLine) {
		s.logger.Debug("Cart change kept local", zap.String("operation", operation), zap.Error(err))
		return
	}
	s.logger.Warn("Remote cart change failed, kept local", zap.String("operation", operation), zap.Error(err))
}

func (s *Store) record(operation string, result SyncResult) {
	if s.recorder != nil {
		s.recorder.ObserveSync(operation, result.Status)
	}
}
