// Package strategy holds the per-symbol signal generators and their
// position lifecycle state machines.
package strategy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/turtle/broker"
	"github.com/rustyeddy/turtle/market"
	"github.com/rustyeddy/turtle/risk"
)

// Strategy is a per-symbol decision engine. OnBar is called once per closed
// bar per symbol with the full bar window (oldest first, last element the
// bar that just closed). Implementations emit order intents through the
// executor and own their position lifecycle state.
type Strategy interface {
	Name() string
	OnBar(ctx context.Context, ex broker.Executor, symbol string, bars []market.Bar, barIndex int, now time.Time) error
}

// Builder constructs a strategy from its parameters and a shared sizer.
type Builder func(p Params, sizer *risk.Sizer) Strategy

var registry = map[string]Builder{}

// Register adds a strategy builder to the registry. Strategies register
// themselves at init; there is no directory scanning.
func Register(name string, b Builder) {
	registry[name] = b
}

// New builds a registered strategy by name.
func New(name string, p Params, sizer *risk.Sizer) (Strategy, error) {
	b, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return b(p, sizer), nil
}

// Names lists the registered strategy names in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Params are the breakout strategy parameters. The single-unit variant is
// the degenerate case MaxUnits=1.
type Params struct {
	EntryPeriod    int
	ExitPeriod     int
	ATRPeriod      int
	ATRMultiplier  float64 // base stop distance in ATRs
	BreakoutMargin float64 // fractional margin over the channel high

	SwingMode      bool
	UseTrendFilter bool

	MaxUnits     int
	PyramidDelay int // min bars between pyramid entries
}

// DefaultParams mirror the classic 20/10 turtle configuration.
func DefaultParams() Params {
	return Params{
		EntryPeriod:    20,
		ExitPeriod:     10,
		ATRPeriod:      14,
		ATRMultiplier:  2.0,
		BreakoutMargin: 0.001,
		UseTrendFilter: true,
		MaxUnits:       4,
		PyramidDelay:   3,
	}
}
