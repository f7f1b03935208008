package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"domain error passes through", NewConflict("dup", nil), "CONFLICT", http.StatusConflict},
		{"wrapped domain error", fmt.Errorf("ctx: %w", NewForbidden("no")), "FORBIDDEN", http.StatusForbidden},
		{"no rows is not found", fmt.Errorf("load: %w", pgx.ErrNoRows), "NOT_FOUND", http.StatusNotFound},
		{"fiber 404 keeps status", fiber.ErrNotFound, "NOT_FOUND", http.StatusNotFound},
		{"fiber bad request", fiber.NewError(http.StatusBadRequest, "bad json"), "VALIDATION_FAILED", http.StatusBadRequest},
		{"fiber 5xx is internal", fiber.ErrServiceUnavailable, "INTERNAL_ERROR", http.StatusInternalServerError},
		{"anything else is internal", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			assert.Equal(t, tt.wantCode, de.Code)
			assert.Equal(t, tt.wantStatus, de.HTTPStatus)
		})
	}
}

func TestMapErrorNil(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.Nil(t, ToDomainError(nil))
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(NewValidationError("bad", nil), "VALIDATION_FAILED"))
	assert.False(t, IsCode(errors.New("plain"), "VALIDATION_FAILED"))
}
