package core

// convert.go turns raw spreadsheet cells into the canonical values stored on
// entities.
//
// Source exports disagree on almost everything: missing values arrive as
// "nan" or "NaT", identifiers arrive as floats or in scientific notation,
// and branch names carry a trailing " Branch" in some files but not others.
// All helpers here return pgtype.Text with Valid=false for missing values so
// that merges can tell "absent" from "empty".

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// maxIdentifierExponent bounds the decimal exponent NormalizeIdentifier will
// expand. Larger exponents are left as written.
const maxIdentifierExponent = 64

var (
	// integerWithZeroFraction matches integers exported as floats ("12345.0").
	integerWithZeroFraction = regexp.MustCompile(`^-?\d+\.0+$`)

	missingSentinels = map[string]struct{}{
		"null": {},
		"None": {},
		"nan":  {},
		"NaT":  {},
	}
)

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// CleanValue is the generic cell cleaner. Empty, whitespace-only and the
// missing sentinels ("null", "None", "nan", "NaT") become null; anything else
// is returned trimmed.
func CleanValue(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func isMissing(s string) bool {
	if s == "" {
		return true
	}
	_, ok := missingSentinels[s]
	return ok
}

// NormalizeIdentifier canonicalizes a terminal ID or similar numeric code.
//
// Thousands separators, enclosing quotes and Excel's ="..." wrapper are
// removed. Numeric values are parsed exactly with shopspring/decimal: whole
// numbers come back as their integer string ("1.0011E+12" -> "1001100000000")
// and fractions as a plain decimal without exponent. Anything that does not
// parse is returned cleaned but otherwise as written.
//
// The result is a fixed point: NormalizeIdentifier(NormalizeIdentifier(x))
// equals NormalizeIdentifier(x).
func NormalizeIdentifier(s string) pgtype.Text {
	s = stripIdentifierArtifacts(s)
	if isMissing(s) {
		return pgtype.Text{}
	}

	if integerWithZeroFraction.MatchString(s) {
		s = s[:strings.IndexByte(s, '.')]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Text{String: s, Valid: true}
	}
	if exp := d.Exponent(); exp > maxIdentifierExponent || exp < -maxIdentifierExponent {
		return pgtype.Text{String: s, Valid: true}
	}

	if d.IsInteger() {
		return pgtype.Text{String: d.BigInt().String(), Valid: true}
	}
	return pgtype.Text{String: d.String(), Valid: true}
}

// NormalizeIdentifierValue is NormalizeIdentifier for values that did not come
// from a text cell.
func NormalizeIdentifierValue(v any) pgtype.Text {
	switch x := v.(type) {
	case nil:
		return pgtype.Text{}
	case string:
		return NormalizeIdentifier(x)
	case pgtype.Text:
		if !x.Valid {
			return pgtype.Text{}
		}
		return NormalizeIdentifier(x.String)
	case int:
		return NormalizeIdentifier(strconv.Itoa(x))
	case int64:
		return NormalizeIdentifier(strconv.FormatInt(x, 10))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return pgtype.Text{}
		}
		return NormalizeIdentifier(strconv.FormatFloat(x, 'f', -1, 64))
	case decimal.Decimal:
		return NormalizeIdentifier(x.String())
	default:
		return pgtype.Text{}
	}
}

// stripIdentifierArtifacts repeats the cleanup until nothing changes so that
// its output is stable under a second pass.
func stripIdentifierArtifacts(s string) string {
	for {
		prev := s
		s = CleanCell(s)
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimFunc(s, func(r rune) bool {
			return unicode.IsSpace(r) || r == '"' || r == '\''
		})
		if s == prev {
			return s
		}
	}
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, the Excel ="..." text wrapper and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}

	return strings.Trim(s, `"'`)
}

// FoldHeader reduces a header to the form used for loose column matching:
// lower case, underscores read as spaces, runs of whitespace collapsed.
func FoldHeader(h string) string {
	h = strings.ToLower(CleanCell(h))
	h = strings.ReplaceAll(h, "_", " ")
	return strings.Join(strings.Fields(h), " ")
}

// BranchIdentity returns the canonical identity of a branch name: whitespace
// collapsed and a trailing " Branch" removed regardless of case.
func BranchIdentity(name string) string {
	fields := strings.Fields(name)
	if len(fields) > 1 && strings.EqualFold(fields[len(fields)-1], "branch") {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// NormalizeEnum maps v onto one of allowed, ignoring case, spaces, hyphens and
// underscores. Values that match nothing become fallback, or null when
// fallback is empty.
func NormalizeEnum(v pgtype.Text, allowed []string, fallback string) pgtype.Text {
	if !v.Valid {
		return v
	}
	key := enumKey(v.String)
	for _, a := range allowed {
		if enumKey(a) == key {
			return pgtype.Text{String: a, Valid: true}
		}
	}
	return ToPgText(fallback)
}

// NormalizeConnectionType maps raw link descriptions onto ConnectionTypes.
func NormalizeConnectionType(v pgtype.Text) pgtype.Text {
	// "Fibre", "Fiber Optic" and friends.
	if v.Valid && strings.HasPrefix(enumKey(v.String), "fib") {
		return pgtype.Text{String: ConnFiber, Valid: true}
	}
	return NormalizeEnum(v, ConnectionTypes, ConnOther)
}

func enumKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return unicode.ToLower(r)
	}, strings.TrimSpace(s))
}
