// Package memory implementa los repositorios y el TxRunner en memoria, con la misma semántica
// transaccional que PostgreSQL: escrituras en buffer hasta Commit y locks por ítem/solicitud
// mantenidos hasta el fin de la transacción. Se usa con APP_STORE=memory y en tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

type allocKey struct {
	itemID   string
	holderID string
}

// Store estado confirmado en memoria.
type Store struct {
	mu          sync.RWMutex
	items       map[string]*entity.StockItem
	allocs      map[allocKey]*entity.Allocation
	movements   []*entity.Movement
	requests    map[string]*entity.Request
	history     map[string][]entity.RequestTransition
	users       map[string]*entity.User
	movementSeq atomic.Int64

	locks       *keyLocks
	lockTimeout time.Duration
}

// NewStore construye un almacén vacío. lockTimeout acota la espera por cada lock (0 = sin límite).
func NewStore(lockTimeout time.Duration) *Store {
	return &Store{
		items:       make(map[string]*entity.StockItem),
		allocs:      make(map[allocKey]*entity.Allocation),
		requests:    make(map[string]*entity.Request),
		history:     make(map[string][]entity.RequestTransition),
		users:       make(map[string]*entity.User),
		locks:       newKeyLocks(),
		lockTimeout: lockTimeout,
	}
}

// Run ejecuta fn con repositorios atados a una transacción; Commit si fn no falla.
// Los locks tomados dentro de fn se liberan al terminar, después del Commit.
func (s *Store) Run(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	tx := newTxState(s)
	defer tx.releaseLocks()
	if err := fn(s.unitOfWork(tx)); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

// UnitOfWork repositorios fuera de transacción: lecturas del estado confirmado y escrituras
// con auto-commit.
func (s *Store) UnitOfWork() repository.UnitOfWork {
	return s.unitOfWork(nil)
}

func (s *Store) unitOfWork(tx *txState) repository.UnitOfWork {
	sess := session{s: s, tx: tx}
	return repository.UnitOfWork{
		Items:       &ItemRepo{sess},
		Allocations: &AllocationRepo{sess},
		Movements:   &MovementRepo{sess},
		Requests:    &RequestRepo{sess},
		Users:       &UserRepo{sess},
	}
}

// txState buffer de escrituras de una transacción.
type txState struct {
	s           *Store
	held        []string
	heldSet     map[string]bool
	items       map[string]*entity.StockItem
	allocs      map[allocKey]*entity.Allocation // nil = borrada
	movements   []*entity.Movement
	requests    map[string]*entity.Request
	transitions []entity.RequestTransition
	users       map[string]*entity.User
}

func newTxState(s *Store) *txState {
	return &txState{
		s:        s,
		heldSet:  make(map[string]bool),
		items:    make(map[string]*entity.StockItem),
		allocs:   make(map[allocKey]*entity.Allocation),
		requests: make(map[string]*entity.Request),
		users:    make(map[string]*entity.User),
	}
}

func (t *txState) lock(ctx context.Context, key string) error {
	if t.heldSet[key] {
		return nil
	}
	if err := t.s.locks.acquire(ctx, key, t.s.lockTimeout); err != nil {
		return err
	}
	t.heldSet[key] = true
	t.held = append(t.held, key)
	return nil
}

func (t *txState) releaseLocks() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.s.locks.release(t.held[i])
	}
	t.held = nil
}

func (s *Store) commit(t *txState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, it := range t.items {
		s.items[id] = it
	}
	for k, a := range t.allocs {
		if a == nil {
			delete(s.allocs, k)
			continue
		}
		s.allocs[k] = a
	}
	if len(t.movements) > 0 {
		s.movements = append(s.movements, t.movements...)
		sort.SliceStable(s.movements, func(i, j int) bool { return s.movements[i].ID < s.movements[j].ID })
	}
	for id, r := range t.requests {
		s.requests[id] = r
	}
	for _, tr := range t.transitions {
		s.history[tr.RequestID] = append(s.history[tr.RequestID], tr)
	}
	for id, u := range t.users {
		s.users[id] = u
	}
}

// session vista de repositorios: con tx lee el buffer y luego lo confirmado; sin tx hace auto-commit.
type session struct {
	s  *Store
	tx *txState
}

func (ss session) write(fn func(t *txState) error) error {
	if ss.tx != nil {
		return fn(ss.tx)
	}
	t := newTxState(ss.s)
	if err := fn(t); err != nil {
		return err
	}
	ss.s.commit(t)
	return nil
}
