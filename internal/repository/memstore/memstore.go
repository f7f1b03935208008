// Package memstore is an in-memory implementation of the repository
// interfaces. It backs tests and runs the service when no Postgres DSN is set.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/repository"
)

// Store holds all tables behind a single mutex.
type Store struct {
	mu       sync.Mutex
	tickets  map[string]domain.Ticket
	counters map[string]int
	users    map[string]domain.User
	settings map[domain.SettingsName]domain.SettingsList
	history  []domain.TicketHistory
	now      func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		tickets:  make(map[string]domain.Ticket),
		counters: make(map[string]int),
		users:    make(map[string]domain.User),
		settings: make(map[domain.SettingsName]domain.SettingsList),
		now:      time.Now,
	}
}

// Tickets exposes the ticket table.
func (s *Store) Tickets() repository.TicketRepository { return &ticketRepo{s: s} }

// Users exposes the user table.
func (s *Store) Users() repository.UserRepository { return &userRepo{s: s} }

// Settings exposes the settings table.
func (s *Store) Settings() repository.SettingsRepository { return &settingsRepo{s: s} }

// History exposes the audit table.
func (s *Store) History() repository.TicketHistoryRepository { return &historyRepo{s: s} }

// Counter reports a month's counter value.
func (s *Store) Counter(yearMonth string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[yearMonth]
}

// SetCounter forces a month's counter value.
func (s *Store) SetCounter(yearMonth string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[yearMonth] = count
}

// PutTicket stores a ticket without allocation.
func (s *Store) PutTicket(t domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.ID] = cloneTicket(t)
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.SpareParts != nil {
		t.SpareParts = append([]domain.SparePart(nil), t.SpareParts...)
	}
	return t
}

type ticketRepo struct{ s *Store }

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneTicket(t)
	return &out, nil
}

func (r *ticketRepo) GetMany(_ context.Context, ids []string) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Ticket
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if t, ok := r.s.tickets[id]; ok {
			out = append(out, cloneTicket(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.s.tickets {
		if filter.Matches(&t) {
			out = append(out, cloneTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Department != out[j].Department {
			return out[i].Department < out[j].Department
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ticketRepo) CountByStatus(_ context.Context) (map[domain.TicketStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[domain.TicketStatus]int)
	for _, t := range r.s.tickets {
		counts[t.Status]++
	}
	return counts, nil
}

func (r *ticketRepo) Departments(_ context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	set := make(map[string]struct{})
	for _, t := range r.s.tickets {
		if t.Department != "" {
			set[t.Department] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

func (r *ticketRepo) DeleteMany(_ context.Context, ids []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.s.tickets[id]; ok {
			delete(r.s.tickets, id)
			r.s.dropHistory(id)
			n++
		}
	}
	return n, nil
}

// WithinTx stages writes on copies and swaps them in when fn succeeds.
func (r *ticketRepo) WithinTx(ctx context.Context, fn func(tx repository.TicketTx) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx := &memTx{
		tickets:  make(map[string]domain.Ticket, len(r.s.tickets)),
		counters: make(map[string]int, len(r.s.counters)),
		history:  append([]domain.TicketHistory(nil), r.s.history...),
	}
	for k, v := range r.s.tickets {
		tx.tickets[k] = v
	}
	for k, v := range r.s.counters {
		tx.counters[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.tickets = tx.tickets
	r.s.counters = tx.counters
	r.s.history = tx.history
	return nil
}

type memTx struct {
	tickets  map[string]domain.Ticket
	counters map[string]int
	history  []domain.TicketHistory
}

func (t *memTx) LockCounter(_ context.Context, yearMonth string) (int, error) {
	count, ok := t.counters[yearMonth]
	if !ok {
		t.counters[yearMonth] = 0
	}
	return count, nil
}

func (t *memTx) SetCounter(_ context.Context, yearMonth string, count int) error {
	t.counters[yearMonth] = count
	return nil
}

func (t *memTx) Exists(_ context.Context, id string) (bool, error) {
	_, ok := t.tickets[id]
	return ok, nil
}

func (t *memTx) Insert(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := t.tickets[ticket.ID]; ok {
		return repository.ErrDuplicate
	}
	t.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (t *memTx) GetForUpdate(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := t.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (t *memTx) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := t.tickets[ticket.ID]; !ok {
		return repository.ErrNotFound
	}
	t.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (t *memTx) Rename(_ context.Context, oldID, newID string) error {
	ticket, ok := t.tickets[oldID]
	if !ok {
		return repository.ErrNotFound
	}
	if _, taken := t.tickets[newID]; taken {
		return repository.ErrDuplicate
	}
	delete(t.tickets, oldID)
	ticket.ID = newID
	t.tickets[newID] = ticket
	for i := range t.history {
		if t.history[i].TicketID == oldID {
			t.history[i].TicketID = newID
		}
	}
	return nil
}

func (t *memTx) Delete(_ context.Context, id string) error {
	if _, ok := t.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(t.tickets, id)
	kept := t.history[:0]
	for _, h := range t.history {
		if h.TicketID != id {
			kept = append(kept, h)
		}
	}
	t.history = kept
	return nil
}

func (s *Store) dropHistory(ticketID string) {
	kept := s.history[:0]
	for _, h := range s.history {
		if h.TicketID != ticketID {
			kept = append(kept, h)
		}
	}
	s.history = kept
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = r.s.now()
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			out := u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) List(_ context.Context) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

type settingsRepo struct{ s *Store }

func (r *settingsRepo) Get(_ context.Context, name domain.SettingsName) (*domain.SettingsList, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list, ok := r.s.settings[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	list.Items = append([]domain.SettingItem(nil), list.Items...)
	return &list, nil
}

func (r *settingsRepo) Save(_ context.Context, list *domain.SettingsList) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list.UpdatedAt = r.s.now()
	stored := *list
	stored.Items = append([]domain.SettingItem(nil), list.Items...)
	r.s.settings[list.Name] = stored
	return nil
}

type historyRepo struct{ s *Store }

func (r *historyRepo) Create(_ context.Context, h *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[h.TicketID]; !ok {
		return repository.ErrNotFound
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.CreatedAt = r.s.now()
	r.s.history = append(r.s.history, *h)
	return nil
}

func (r *historyRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.TicketHistory
	for _, h := range r.s.history {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}
