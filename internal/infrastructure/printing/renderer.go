package printing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"
)

// PaperSize names a sheet or roll the receipt layout supports
type PaperSize string

const (
	PaperSizeA4          PaperSize = "A4"
	PaperSizeA5          PaperSize = "A5"
	PaperSizeLetter      PaperSize = "LETTER"
	PaperSizeReceipt80MM PaperSize = "RECEIPT_80MM"
)

// paperMM holds width and height in millimeters. A zero height is a roll.
var paperMM = map[PaperSize][2]int{
	PaperSizeA4:          {210, 297},
	PaperSizeA5:          {148, 210},
	PaperSizeLetter:      {216, 279},
	PaperSizeReceipt80MM: {80, 0},
}

// ParsePaperSize reads a configured paper name, ignoring case and blanks
func ParsePaperSize(s string) (PaperSize, bool) {
	p := PaperSize(strings.ToUpper(strings.TrimSpace(s)))
	return p, p.IsValid()
}

func (p PaperSize) IsValid() bool {
	_, ok := paperMM[p]
	return ok
}

// Dimensions returns width and height in millimeters, zeros for unknown paper
func (p PaperSize) Dimensions() (width, height int) {
	mm := paperMM[p]
	return mm[0], mm[1]
}

// IsReceipt reports whether p is a continuous thermal roll
func (p PaperSize) IsReceipt() bool {
	w, h := p.Dimensions()
	return w > 0 && h == 0
}

type Orientation string

const (
	OrientationPortrait  Orientation = "PORTRAIT"
	OrientationLandscape Orientation = "LANDSCAPE"
)

// Margins are in millimeters
type Margins struct {
	Top, Right, Bottom, Left int
}

func uniformMargins(mm int) Margins {
	return Margins{Top: mm, Right: mm, Bottom: mm, Left: mm}
}

// DefaultMargins frame receipts printed on sheets
func DefaultMargins() Margins { return uniformMargins(10) }

// ReceiptMargins keep the text inside the printable area of a thermal head
func ReceiptMargins() Margins { return uniformMargins(2) }

// RenderRequest is one document to print. A zero Timeout uses the renderer's.
type RenderRequest struct {
	HTML        string
	PaperSize   PaperSize
	Orientation Orientation
	Margins     Margins
	Title       string
	FooterHTML  string
	Timeout     time.Duration
}

type RenderResult struct {
	PDFData        []byte
	PageCount      int
	RenderDuration time.Duration
}

// PDFRenderer prints HTML. Implementations must be safe for concurrent use.
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// Failure kinds of a receipt render. Match them with errors.Is.
var (
	ErrInvalidDocument  = errors.New("invalid document")
	ErrInvalidPaperSize = errors.New("invalid paper size")
	ErrRenderTimeout    = errors.New("render timed out")
	ErrRenderFailed     = errors.New("render failed")
	ErrStoreFailed      = errors.New("storing PDF failed")
)

// RenderError pairs a failure kind with its context and the underlying cause
type RenderError struct {
	Kind  error
	Msg   string
	Cause error
}

func renderError(kind error, msg string, cause error) *RenderError {
	return &RenderError{Kind: kind, Msg: msg, Cause: cause}
}

func (e *RenderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *RenderError) Unwrap() []error {
	errs := make([]error, 0, 2)
	for _, err := range []error{e.Kind, e.Cause} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

var (
	pageMarker  = []byte("/Type /Page")
	pagesMarker = []byte("/Type /Pages")
)

// estimatePageCount counts page objects of the PDF, at least one
func estimatePageCount(pdf []byte) int {
	return max(bytes.Count(pdf, pageMarker)-bytes.Count(pdf, pagesMarker), 1)
}
