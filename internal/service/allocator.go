package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/repository"
)

// maxIDProbes bounds the walk past IDs already taken by hand-renamed tickets.
const maxIDProbes = 1000

var errIDSpaceExhausted = errors.New("no free ticket id")

// allocateTicketID mints the next free {code}-{YYMM}-{seq} inside tx, advances
// the month's counter past it and inserts ticket under that ID. The counter row
// stays locked until tx commits, so concurrent creators serialize here.
func allocateTicketID(ctx context.Context, tx repository.TicketTx, code, yearMonth string, ticket *domain.Ticket) error {
	count, err := tx.LockCounter(ctx, yearMonth)
	if err != nil {
		return fmt.Errorf("lock counter %s: %w", yearMonth, err)
	}

	next := count + 1
	for probes := 0; ; probes++ {
		if probes >= maxIDProbes {
			return errIDSpaceExhausted
		}
		id := domain.FormatTicketID(code, yearMonth, next)
		taken, err := tx.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !taken {
			ticket.ID = id
			break
		}
		next++
	}

	if err := tx.SetCounter(ctx, yearMonth, next); err != nil {
		return fmt.Errorf("advance counter %s: %w", yearMonth, err)
	}
	return tx.Insert(ctx, ticket)
}

// rollbackCounter undoes the counter advance for a ticket about to be deleted,
// but only when it is the latest unapproved ticket of its month. Hand-renamed
// IDs that do not decode are left alone.
func rollbackCounter(ctx context.Context, tx repository.TicketTx, ticket *domain.Ticket) (bool, error) {
	if ticket.Status.Approved() {
		return false, nil
	}
	parts, ok := domain.ParseTicketID(ticket.ID)
	if !ok {
		return false, nil
	}
	count, err := tx.LockCounter(ctx, parts.YearMonth)
	if err != nil {
		return false, err
	}
	if parts.Seq != count || count == 0 {
		return false, nil
	}
	if err := tx.SetCounter(ctx, parts.YearMonth, count-1); err != nil {
		return false, err
	}
	return true, nil
}
