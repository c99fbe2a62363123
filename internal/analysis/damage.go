package analysis

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// DamageUnit is the unit a source writes bare numbers in.
type DamageUnit string

const (
	UnitRaw      DamageUnit = "raw"
	UnitBillions DamageUnit = "billions"
)

func ParseDamageUnit(s string) (DamageUnit, error) {
	switch DamageUnit(strings.ToLower(strings.TrimSpace(s))) {
	case UnitRaw, "":
		return UnitRaw, nil
	case UnitBillions:
		return UnitBillions, nil
	}
	return "", fmt.Errorf("unknown damage unit %q", s)
}

func (u DamageUnit) multiplier() int64 {
	if u == UnitBillions {
		return 1_000_000_000
	}
	return 1
}

var (
	damagePattern = regexp.MustCompile(`([-+]?)(\d+(?:\.\d+)?|\.\d+)([A-Za-z]*)`)
	countPattern  = regexp.MustCompile(`[-+]?\d+`)

	maxDamage = decimal.NewFromInt(math.MaxInt64)

	// No sheet records a billion billions, so a bare number this large was
	// exported without its formatting and is already in raw points.
	rawFloor = decimal.NewFromInt(1_000_000)
)

var unitWords = map[string]int64{
	"t":         1_000_000_000_000,
	"trillion":  1_000_000_000_000,
	"trillions": 1_000_000_000_000,
	"b":         1_000_000_000,
	"bn":        1_000_000_000,
	"billion":   1_000_000_000,
	"billions":  1_000_000_000,
	"m":         1_000_000,
	"million":   1_000_000,
	"millions":  1_000_000,
	"k":         1_000,
	"thousand":  1_000,
	"thousands": 1_000,
}

// ParseDamage reads a damage cell written in raw damage points.
func ParseDamage(raw string) int64 {
	return ParseDamageIn(raw, UnitRaw)
}

// ParseDamageIn converts a free-form damage cell into raw damage points.
// A unit word ("2.5 Billion", "1.2B") always wins. A number written with
// thousands separators is taken as raw points. Any other bare number is
// scaled by unit, unless it is at least a million, in which case it is
// already raw points. Anything without numeric content, or negative, is 0.
func ParseDamageIn(raw string, unit DamageUnit) int64 {
	grouped := strings.Contains(raw, ",")
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || r == '_' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return 0
	}

	m := damagePattern.FindStringSubmatch(cleaned)
	if m == nil || m[1] == "-" {
		return 0
	}

	mult := unit.multiplier()
	if word, ok := unitWords[strings.ToLower(m[3])]; ok {
		mult = word
	} else if grouped || alreadyRaw(m[2]) {
		mult = 1
	}

	return scaleDamage(m[2], mult)
}

func alreadyRaw(number string) bool {
	d, err := decimal.NewFromString(number)
	return err == nil && d.GreaterThanOrEqual(rawFloor)
}

func scaleDamage(number string, mult int64) int64 {
	d, err := decimal.NewFromString(number)
	if err != nil {
		return 0
	}
	d = d.Mul(decimal.NewFromInt(mult)).Round(0)
	if d.Sign() <= 0 || d.GreaterThan(maxDamage) {
		return 0
	}
	return d.IntPart()
}

// ParseCount reads a battle/ticket count such as "9", "x9" or "9.0".
func ParseCount(raw string) int {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	m := countPattern.FindString(cleaned)
	if m == "" || strings.HasPrefix(m, "-") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(m, "+"))
	if err != nil {
		return 0
	}
	return n
}

var damageScales = []struct {
	threshold int64
	suffix    string
}{
	{1_000_000_000_000, "T"},
	{1_000_000_000, "B"},
	{1_000_000, "M"},
	{1_000, "K"},
}

// FormatDamage renders damage scaled to T/B/M/K with one decimal place.
// It is lossy and does not round-trip through ParseDamage.
func FormatDamage(damage int64) string {
	for _, s := range damageScales {
		if damage >= s.threshold {
			return decimal.NewFromInt(damage).
				Div(decimal.NewFromInt(s.threshold)).
				StringFixed(1) + s.suffix
		}
	}
	return strconv.FormatInt(damage, 10)
}

// CellText normalises a decoded spreadsheet cell to its display text.
func CellText(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	}
	return fmt.Sprint(v)
}
