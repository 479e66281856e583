package dataset

import (
	"strconv"
	"strings"
)

// NumberFormat controls how cell text is read as a number. The zero value is
// strict: plain Go float syntax only, so "1,5" stays text. Setting
// DecimalSeparator enables locale-aware parsing.
type NumberFormat struct {
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; if 0, common separators other than the decimal one are stripped
}

func (nf NumberFormat) parse(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	if nf.DecimalSeparator == 0 {
		return parseStrict(raw)
	}
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	dec, thou := nf.DecimalSeparator, nf.ThousandsSeparator
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	return parseStrict(raw)
}

func parseStrict(raw string) (float64, bool) {
	// inf/nan spellings and hex floats are text in tabular data
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.Contains(lower, "0x") || strings.Contains(raw, "_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
