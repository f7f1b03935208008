package service

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	apperrors "github.com/stanachoad2-cyber/MaintenanceApp/pkg/util"
)

type captureRenderer struct {
	ids []string
}

func (r *captureRenderer) Render(w io.Writer, tickets []domain.Ticket) error {
	for _, t := range tickets {
		r.ids = append(r.ids, t.ID)
	}
	_, err := w.Write([]byte("%PDF-fake"))
	return err
}

func TestExportPDFRendersOldestFirst(t *testing.T) {
	f := newTicketFixture(t)
	a := f.create(t, "")
	f.now = f.now.Add(time.Hour)
	b := f.create(t, "")

	renderer := &captureRenderer{}
	svc := NewExportService(f.svc, renderer, nil)

	var buf bytes.Buffer
	n, err := svc.ExportPDF(context.Background(), []string{b.ID, a.ID, "missing"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{a.ID, b.ID}, renderer.ids)
	assert.Equal(t, "%PDF-fake", buf.String())

	_, err = svc.ExportPDF(context.Background(), nil, &buf)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	assert.Equal(t, "MT-2505-001.pdf", FileName("MT-2505-001"))
}
