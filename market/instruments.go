package market

import "strings"

// InstrumentClass groups instruments that share pip conventions.
type InstrumentClass int

const (
	ClassFX InstrumentClass = iota
	ClassMetal
	ClassIndex
)

// InstrumentMeta carries the per-instrument constants needed to translate
// a price distance into an account-currency risk amount.
type InstrumentMeta struct {
	Name     string
	Class    InstrumentClass
	PipUnit  float64 // price change of one pip
	PipValue float64 // account-currency value of one pip per 1.0 lot
}

var Instruments = map[string]InstrumentMeta{
	"EURUSD": {Name: "EURUSD", Class: ClassFX, PipUnit: 0.0001, PipValue: 10},
	"GBPUSD": {Name: "GBPUSD", Class: ClassFX, PipUnit: 0.0001, PipValue: 10},
	"USDJPY": {Name: "USDJPY", Class: ClassFX, PipUnit: 0.01, PipValue: 10},
	"AUDUSD": {Name: "AUDUSD", Class: ClassFX, PipUnit: 0.0001, PipValue: 10},
	"XAUUSD": {Name: "XAUUSD", Class: ClassMetal, PipUnit: 0.01, PipValue: 10},
	"XAGUSD": {Name: "XAGUSD", Class: ClassMetal, PipUnit: 0.01, PipValue: 10},
	"US500":  {Name: "US500", Class: ClassIndex, PipUnit: 0.1, PipValue: 10},
	"US30":   {Name: "US30", Class: ClassIndex, PipUnit: 0.1, PipValue: 10},
}

// Meta resolves instrument metadata. Unknown symbols fall back to the
// generic convention for their class so an unlisted broker symbol still
// sizes sanely.
func Meta(symbol string) InstrumentMeta {
	if m, ok := Instruments[symbol]; ok {
		return m
	}
	c := classify(symbol)
	return InstrumentMeta{
		Name:     symbol,
		Class:    c,
		PipUnit:  classPipUnit(c),
		PipValue: 10,
	}
}

// PipUnit returns the pip size for a symbol by instrument class:
// generic FX 0.0001, metals 0.01, indices 0.1.
func PipUnit(symbol string) float64 {
	return Meta(symbol).PipUnit
}

func classify(symbol string) InstrumentClass {
	s := strings.ToUpper(symbol)
	switch {
	case strings.HasPrefix(s, "XAU"), strings.HasPrefix(s, "XAG"),
		strings.HasPrefix(s, "XPT"), strings.HasPrefix(s, "XPD"):
		return ClassMetal
	// Index symbols carry a level digit (US30, NAS100, DE40); currency
	// pairs never do, so USDCHF and friends stay FX.
	case hasDigit(s) && (strings.HasPrefix(s, "US") || strings.HasPrefix(s, "DE") ||
		strings.HasPrefix(s, "NAS") || strings.HasPrefix(s, "SPX")):
		return ClassIndex
	default:
		return ClassFX
	}
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func classPipUnit(c InstrumentClass) float64 {
	switch c {
	case ClassMetal:
		return 0.01
	case ClassIndex:
		return 0.1
	default:
		return 0.0001
	}
}
