package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/repository"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := New()
	repo := store.Tickets()

	boom := errors.New("boom")
	err := repo.WithinTx(ctx, func(tx repository.TicketTx) error {
		require.NoError(t, tx.SetCounter(ctx, "2503", 5))
		require.NoError(t, tx.Insert(ctx, &domain.Ticket{ID: "MT-2503-005"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.Counter("2503"))

	_, err = repo.GetByID(ctx, "MT-2503-005")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRenameCarriesHistory(t *testing.T) {
	ctx := context.Background()
	store := New()
	store.PutTicket(domain.Ticket{ID: "MT-2503-001", Status: domain.TicketStatusClosed})
	require.NoError(t, store.History().Create(ctx, &domain.TicketHistory{
		TicketID: "MT-2503-001", Action: domain.ActionApprove,
	}))

	err := store.Tickets().WithinTx(ctx, func(tx repository.TicketTx) error {
		return tx.Rename(ctx, "MT-2503-001", "MT-2503-101")
	})
	require.NoError(t, err)

	history, err := store.History().ListByTicket(ctx, "MT-2503-101")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = store.Tickets().GetByID(ctx, "MT-2503-001")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	store := New()
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	store.PutTicket(domain.Ticket{ID: "MT-2502-002", Department: "B", Status: domain.TicketStatusClosed, CreatedAt: feb, ClosedAt: &mar})
	store.PutTicket(domain.Ticket{ID: "MT-2502-001", Department: "B", Status: domain.TicketStatusClosed, CreatedAt: feb})
	store.PutTicket(domain.Ticket{ID: "MT-2502-003", Department: "A", Status: domain.TicketStatusOpen, CreatedAt: feb})

	all, err := store.Tickets().List(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"MT-2502-003", "MT-2502-001", "MT-2502-002"}, []string{all[0].ID, all[1].ID, all[2].ID})

	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	closedInFeb, err := store.Tickets().List(ctx, repository.TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusClosed},
		From:     &from,
		To:       &to,
	})
	require.NoError(t, err)
	require.Len(t, closedInFeb, 1)
	assert.Equal(t, "MT-2502-001", closedInFeb[0].ID)
}

func TestUserUniqueness(t *testing.T) {
	ctx := context.Background()
	users := New().Users()
	require.NoError(t, users.Create(ctx, &domain.User{Username: "a", Role: domain.RoleTechnician}))
	err := users.Create(ctx, &domain.User{Username: "a", Role: domain.RoleRequester})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}
