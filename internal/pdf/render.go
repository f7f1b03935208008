package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/config"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
)

const (
	pageWidth  = 210.0
	pageHeight = 297.0

	formImageName = "work-order-form"
	thaiFont      = "THSarabun"
	fallbackFont  = "Helvetica"

	// lineHeightFactor spaces wrapped lines relative to the font size.
	lineHeightFactor = 1.15
)

// ErrNoTickets is returned when asked to render an empty selection.
var ErrNoTickets = errors.New("no tickets to render")

// Renderer draws work orders. The form image and font are read once at
// construction and shared by every document.
type Renderer struct {
	formImage []byte
	font      []byte
	loc       *time.Location
}

// NewRenderer loads the optional form background (JPEG) and TTF font named in
// cfg. Empty paths are skipped; unreadable ones are errors.
func NewRenderer(cfg config.PDFConfig, loc *time.Location) (*Renderer, error) {
	r := &Renderer{loc: loc}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if cfg.FormImagePath != "" {
		raw, err := os.ReadFile(cfg.FormImagePath)
		if err != nil {
			return nil, fmt.Errorf("read form image: %w", err)
		}
		r.formImage = raw
	}
	if cfg.FontPath != "" {
		raw, err := os.ReadFile(cfg.FontPath)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		r.font = raw
	}
	return r, nil
}

// Render writes one page per ticket, in the given order, to w.
func (r *Renderer) Render(w io.Writer, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return ErrNoTickets
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)

	// The core font has no Thai glyphs; without a TTF only ASCII text reads.
	utf8Font := len(r.font) > 0
	if utf8Font {
		doc.AddUTF8FontFromBytes(thaiFont, "", r.font)
		doc.SetFont(thaiFont, "", textSize)
	} else {
		doc.SetFont(fallbackFont, "", textSize)
	}
	if len(r.formImage) > 0 {
		doc.RegisterImageOptionsReader(formImageName, fpdf.ImageOptions{ImageType: "JPEG"}, bytes.NewReader(r.formImage))
	}

	for i := range tickets {
		doc.AddPage()
		if len(r.formImage) > 0 {
			doc.ImageOptions(formImageName, 0, 0, pageWidth, pageHeight, false, fpdf.ImageOptions{ImageType: "JPEG"}, 0, "")
		}
		doc.SetTextColor(0, 0, 255)
		doc.SetDrawColor(0, 0, 255)

		for _, m := range Layout(&tickets[i], r.loc) {
			if !utf8Font {
				m.Text = coreFontText(m.Text)
			}
			drawMark(doc, m)
		}
		if doc.Err() {
			return fmt.Errorf("render %s: %w", tickets[i].ID, doc.Error())
		}
	}
	return doc.Output(w)
}

func drawMark(doc *fpdf.Fpdf, m Mark) {
	doc.SetFontSize(m.Size)
	if m.Wrap <= 0 {
		drawLine(doc, m.X, m.Y, m.Align, m.Text)
		return
	}
	lineHeight := doc.PointConvert(m.Size) * lineHeightFactor
	for i, line := range doc.SplitText(m.Text, m.Wrap) {
		drawLine(doc, m.X, m.Y+float64(i)*lineHeight, m.Align, line)
	}
}

func drawLine(doc *fpdf.Fpdf, x, y float64, align Align, s string) {
	if align == AlignCenter {
		x -= doc.GetStringWidth(s) / 2
	}
	doc.Text(x, y, s)
}

// coreFontText replaces runes the built-in font cannot encode. fpdf indexes
// core font widths by rune, so anything past ASCII must not reach it.
func coreFontText(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || (r >= ' ' && r <= '~') {
			return r
		}
		return '?'
	}, s)
}
