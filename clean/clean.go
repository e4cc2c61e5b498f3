// Package clean resolves missing values in a table, either by dropping the
// incomplete rows or by filling each column with its mean (numeric) or mode
// (textual).
package clean

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/brunobiangulo/tabclean/table"
)

var ErrInvalidPolicy = errors.New("clean: invalid policy")

// Policy selects how missing cells are resolved.
type Policy int

const (
	// DropRows removes every row holding at least one missing cell.
	DropRows Policy = iota + 1
	// FillMeanMode replaces missing cells with the column mean, or the
	// column mode for textual columns.
	FillMeanMode
)

func (p Policy) String() string {
	switch p {
	case DropRows:
		return "drop"
	case FillMeanMode:
		return "fill"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

func (p Policy) Valid() bool { return p == DropRows || p == FillMeanMode }

// ParsePolicy accepts "drop" and "fill", plus the answers of the yes/no
// prompt: "yes" drops, "no" fills.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drop", "dropna", "yes", "y":
		return DropRows, nil
	case "fill", "fillna", "mean", "mode", "no", "n":
		return FillMeanMode, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

// PolicyFunc decides the policy once the number of missing cells is known.
// It is only consulted when there is something to clean.
type PolicyFunc func(ctx context.Context, missing int) (Policy, error)

// Fixed returns a PolicyFunc that always answers p.
func Fixed(p Policy) PolicyFunc {
	return func(context.Context, int) (Policy, error) { return p, nil }
}

// WarningKind classifies a non-fatal condition met while cleaning.
type WarningKind string

const AllColumnMissing WarningKind = "all_column_missing"

type Warning struct {
	Kind    WarningKind `json:"kind"`
	Column  string      `json:"column"`
	Message string      `json:"message"`
}

// Report describes what Resolve did.
type Report struct {
	Policy        Policy            `json:"-"`
	PolicyName    string            `json:"policy,omitempty"`
	Skipped       bool              `json:"skipped"`
	MissingBefore int               `json:"missing_before"`
	MissingAfter  int               `json:"missing_after"`
	RowsBefore    int               `json:"rows_before"`
	RowsAfter     int               `json:"rows_after"`
	Filled        map[string]string `json:"filled,omitempty"`
	Warnings      []Warning         `json:"warnings,omitempty"`
}

// Resolve applies policy to a copy of t. The input table is never modified.
// When t has no missing cells the copy is returned unchanged and the report
// is marked Skipped.
func Resolve(t *table.Table, policy Policy) (*table.Table, Report, error) {
	rep := Report{
		MissingBefore: t.MissingCount(),
		RowsBefore:    t.NumRows(),
	}
	if rep.MissingBefore == 0 {
		rep.Skipped = true
		rep.RowsAfter = rep.RowsBefore
		return t.Clone(), rep, nil
	}
	if !policy.Valid() {
		return nil, rep, fmt.Errorf("%w: %d", ErrInvalidPolicy, int(policy))
	}
	rep.Policy = policy
	rep.PolicyName = policy.String()

	var out *table.Table
	switch policy {
	case DropRows:
		out = dropRows(t)
	case FillMeanMode:
		out = t.Clone()
		fill(out, &rep)
	}
	rep.MissingAfter = out.MissingCount()
	rep.RowsAfter = out.NumRows()
	return out, rep, nil
}

func dropRows(t *table.Table) *table.Table {
	keep := make([]int, 0, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		if !t.RowHasMissing(r) {
			keep = append(keep, r)
		}
	}
	return t.SelectRows(keep)
}

func fill(t *table.Table, rep *Report) {
	rep.Filled = make(map[string]string)
	for j := 0; j < t.NumCols(); j++ {
		col := t.Column(j)
		missing := col.MissingCount()
		if missing == 0 {
			continue
		}
		if missing == len(col.Cells) {
			rep.Warnings = append(rep.Warnings, Warning{
				Kind:    AllColumnMissing,
				Column:  col.Name,
				Message: fmt.Sprintf("column %q has no values to compute a fill from", col.Name),
			})
			continue
		}

		var v table.Cell
		if col.Numeric() {
			v = table.Num(stat.Mean(col.Floats(), nil))
		} else {
			v = table.Str(mode(col))
		}
		for r, cell := range col.Cells {
			if cell.IsMissing() {
				t.Set(r, j, v)
			}
		}
		rep.Filled[col.Name] = v.String()
	}
}

// mode returns the most frequent rendered value of a non-numeric column.
// Among equally frequent values, the one whose first occurrence comes
// earliest wins.
func mode(col table.Column) string {
	counts := make(map[string]int)
	var order []string
	for _, cell := range col.Cells {
		if cell.IsMissing() {
			continue
		}
		s := cell.String()
		if counts[s] == 0 {
			order = append(order, s)
		}
		counts[s]++
	}
	best, bestN := "", 0
	for _, s := range order {
		if counts[s] > bestN {
			best, bestN = s, counts[s]
		}
	}
	return best
}
