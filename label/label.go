// Package label builds printable label payloads. Labels are produced
// lazily as dispatcher content producers: the barcode data is encoded
// at dispatch time and an encoding failure aborts the print before
// anything reaches the backend.
package label

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"unicode"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/ean"
	"github.com/boombuler/barcode/qr"

	"github.com/shopfloor-systems/posbridge/printing"
)

// Symbology is a barcode encoding.
type Symbology string

const (
	SymbologyEAN13   Symbology = "ean13"
	SymbologyEAN8    Symbology = "ean8"
	SymbologyCode128 Symbology = "code128"
	SymbologyQR      Symbology = "qr"
)

var (
	ErrInvalidSymbology  = errors.New("invalid barcode symbology")
	ErrBarcodeGeneration = errors.New("failed to generate barcode")
)

// SymbologyFor picks the encoding by data shape: all-numeric EAN
// lengths map to the EAN family, everything else to Code 128.
func SymbologyFor(data string) Symbology {
	numeric := data != ""
	for _, r := range data {
		if !unicode.IsDigit(r) {
			numeric = false
			break
		}
	}
	if numeric {
		switch len(data) {
		case 13:
			return SymbologyEAN13
		case 8:
			return SymbologyEAN8
		}
	}
	return SymbologyCode128
}

// Encode produces the raw barcode for the given symbology.
func Encode(data string, sym Symbology) (barcode.Barcode, error) {
	var bc barcode.Barcode
	var err error

	switch sym {
	case SymbologyEAN13, SymbologyEAN8:
		bc, err = ean.Encode(data)
	case SymbologyCode128:
		bc, err = code128.Encode(data)
	case SymbologyQR:
		bc, err = qr.Encode(data, qr.M, qr.Auto)
	default:
		return nil, ErrInvalidSymbology
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBarcodeGeneration, err)
	}
	return bc, nil
}

// RenderPNG encodes data, scales it, and returns a base64 PNG suitable
// for a raw payload.
func RenderPNG(data string, sym Symbology, width, height int) (string, error) {
	bc, err := Encode(data, sym)
	if err != nil {
		return "", err
	}

	bc, err = barcode.Scale(bc, width, height)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBarcodeGeneration, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, bc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBarcodeGeneration, err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ProductLabel is a product/price label.
type ProductLabel struct {
	SKU      string
	Barcode  string
	Name     string
	Price    float64
	Currency string
}

// Producer returns the deferred ZPL payload for this label.
func (l ProductLabel) Producer() printing.Producer {
	return func(ctx context.Context) (printing.Content, error) {
		sym := SymbologyFor(l.Barcode)
		// Encode up front so bad barcode data fails the dispatch
		// instead of printing a broken label.
		if _, err := Encode(l.Barcode, sym); err != nil {
			return printing.Content{}, err
		}
		return printing.Content{Body: l.zpl(sym), Type: printing.ContentZPL}, nil
	}
}

func (l ProductLabel) zpl(sym Symbology) string {
	var b strings.Builder
	b.WriteString("^XA\n")
	fmt.Fprintf(&b, "^FO20,20^A0N,28,28^FD%s^FS\n", zplEscape(l.Name))
	fmt.Fprintf(&b, "^FO20,55^A0N,22,22^FDSKU: %s^FS\n", zplEscape(l.SKU))
	if l.Price > 0 {
		fmt.Fprintf(&b, "^FO20,85^A0N,32,32^FD%.2f %s^FS\n", l.Price, zplEscape(l.Currency))
	}
	switch sym {
	case SymbologyEAN13, SymbologyEAN8:
		fmt.Fprintf(&b, "^FO20,125^BY2^BEN,80,Y,N^FD%s^FS\n", l.Barcode)
	default:
		fmt.Fprintf(&b, "^FO20,125^BY2^BCN,80,Y,N,N^FD%s^FS\n", zplEscape(l.Barcode))
	}
	b.WriteString("^XZ")
	return b.String()
}

// ShelfLabel is a warehouse location label with a QR-coded address.
type ShelfLabel struct {
	Zone  string
	Row   string
	Shelf string
	Bin   string
}

// LocationCode is the machine-readable shelf address.
func (l ShelfLabel) LocationCode() string {
	return fmt.Sprintf("%s-%s-%s-%s", l.Zone, l.Row, l.Shelf, l.Bin)
}

// Producer returns the deferred ZPL payload for this label.
func (l ShelfLabel) Producer() printing.Producer {
	return func(ctx context.Context) (printing.Content, error) {
		code := l.LocationCode()
		if _, err := Encode(code, SymbologyQR); err != nil {
			return printing.Content{}, err
		}

		var b strings.Builder
		b.WriteString("^XA\n")
		fmt.Fprintf(&b, "^FO20,20^A0N,36,36^FD%s^FS\n", zplEscape(code))
		fmt.Fprintf(&b, "^FO20,70^BQN,2,6^FDQA,%s^FS\n", zplEscape(code))
		b.WriteString("^XZ")
		return printing.Content{Body: b.String(), Type: printing.ContentZPL}, nil
	}
}

// zplEscape strips ZPL control characters from field data.
func zplEscape(s string) string {
	return strings.NewReplacer("^", "", "~", "").Replace(s)
}
