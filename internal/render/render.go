// Package render sorts drive records and writes the column table.
package render

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/mattn/go-isatty"

	"github.com/drvkit/drvlist/internal/registry"
	"github.com/drvkit/drvlist/internal/strutil"
)

// Mode selects the table sort order.
type Mode int

const (
	// ByDevPath orders by driver string, then path string. This is
	// the default: it groups drives by the controller they hang off.
	ByDevPath Mode = iota
	// ByIdent orders by the identity token.
	ByIdent
)

// ModeFromString parses a sort mode name.
func ModeFromString(s string) (Mode, error) {
	switch s {
	case "", "devpath":
		return ByDevPath, nil
	case "ident":
		return ByIdent, nil
	}
	return ByDevPath, fmt.Errorf("unknown sort order %q", s)
}

// Sort orders records in place. The identity token breaks ties so the
// order is total regardless of input order.
func Sort(records []*registry.Record, mode Mode) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if mode == ByDevPath {
			if d, p := a.Drivers(), b.Drivers(); d != p {
				return d < p
			}
			if pa, pb := a.Paths(), b.Paths(); pa != pb {
				return pa < pb
			}
		}
		return a.Identity < b.Identity
	})
}

// Options tune the table layout.
type Options struct {
	// Phys adds the physical-path column.
	Phys bool

	// Verbose adds the driver and path columns.
	Verbose bool

	// MaxWidth clips every cell to this many characters; zero
	// disables clipping.
	MaxWidth int

	// Color writes the bold/underlined header. Callers enable it
	// when writing to a terminal.
	Color bool
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// orUnknown substitutes the placeholder for fields no probe supplied.
func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

// Table writes one row per record. Column widths grow with the
// clipped content; the header is only written in color mode, so piped
// output stays clean of decoration.
func Table(w io.Writer, records []*registry.Record, opts Options) error {
	clip := func(s string) string {
		if opts.MaxWidth > 0 {
			return strutil.Clip(s, opts.MaxWidth)
		}
		return s
	}

	headers := []string{"#", "VENDOR", "PRODUCT", "REV.", "IDENT", "SIZE", "NAMES"}
	if opts.Phys {
		headers = append(headers, "PHYS")
	}
	if opts.Verbose {
		headers = append(headers, "DRV.", "PATH")
	}

	rows := make([][]string, 0, len(records))
	for i, rec := range records {
		row := []string{
			strconv.Itoa(i + 1),
			clip(orUnknown(rec.Vendor)),
			clip(orUnknown(rec.Product)),
			clip(orUnknown(rec.Revision)),
			clip(rec.Identity),
			clip(orUnknown(rec.Size)),
			clip(rec.Names()),
		}
		if opts.Phys {
			row = append(row, clip(rec.Phys))
		}
		if opts.Verbose {
			path := strutil.CollapseSpace(rec.Paths())
			if path == "" {
				path = "-"
			}
			row = append(row, clip(rec.Drivers()), path)
		}
		rows = append(rows, row)
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	if opts.Color {
		if _, err := fmt.Fprintf(w, "\x1b[1;4m%s\x1b[0m\n", formatRow(headers, widths)); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, formatRow(row, widths)); err != nil {
			return err
		}
	}
	return nil
}

// rightAligned marks the row number and size columns; everything else
// is left-aligned.
func rightAligned(col int) bool { return col == 0 || col == 5 }

func formatRow(cells []string, widths []int) string {
	s := ""
	for i, cell := range cells {
		if i > 0 {
			s += " : "
		}
		if rightAligned(i) {
			s += fmt.Sprintf("%*s", widths[i], cell)
		} else if i == len(cells)-1 {
			s += cell // no trailing padding on the last column
		} else {
			s += fmt.Sprintf("%-*s", widths[i], cell)
		}
	}
	return s
}
