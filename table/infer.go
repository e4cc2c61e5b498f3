package table

import (
	"math"
	"strconv"
	"strings"
)

// DefaultNAValues are the tokens treated as missing when reading text input.
// They follow the usual dataframe conventions, including the empty string.
var DefaultNAValues = []string{"", "NA", "N/A", "n/a", "NaN", "nan", "null", "NULL", "None", "#N/A", "<NA>", "<nil>"}

// IsNA reports whether s is one of the given missing-value tokens.
func IsNA(s string, naValues []string) bool {
	s = strings.TrimSpace(s)
	for _, v := range naValues {
		if s == v {
			return true
		}
	}
	return false
}

// InferColumn builds a column from raw tokens. Tokens matching naValues
// become Missing. If every remaining token parses as a finite number the
// column is numeric, otherwise every remaining token is kept as text.
func InferColumn(name string, raw []string, naValues []string) Column {
	cells := make([]Cell, len(raw))
	numeric := true
	for i, s := range raw {
		if IsNA(s, naValues) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			numeric = false
			break
		}
		cells[i] = Num(v)
	}
	if !numeric {
		for i, s := range raw {
			if IsNA(s, naValues) {
				cells[i] = NA()
				continue
			}
			cells[i] = Str(s)
		}
	}
	return Column{Name: name, Cells: cells}
}
