package strategy

import "time"

// Lifecycle states for a position unit.
type PositionState int

const (
	Open PositionState = iota
	PartiallyClosed
	Closed
)

func (s PositionState) String() string {
	switch s {
	case Open:
		return "Open"
	case PartiallyClosed:
		return "PartiallyClosed"
	case Closed:
		return "Closed"
	}
	return "Unknown"
}

// Position is one strategy-owned position unit. The strategy is the source
// of lifecycle truth; the execution venue is consulted (by ticket) but
// never owns it. InitialVolume is fixed at open and is the base for
// partial-exit fractions.
type Position struct {
	Ticket        string
	Symbol        string
	Direction     string
	EntryPrice    float64
	InitialVolume float64
	CurrentVolume float64
	StopLoss      float64
	OpenTime      time.Time
	OpenBar       int
	UnitIndex     int
	State         PositionState

	exitStage int // 0 none, 1 after first partial, 2 after second
}

// book is the per-symbol unit list plus pyramiding bookkeeping.
type book struct {
	units        []*Position
	lastEntryBar int
}

func newBook() *book {
	return &book{lastEntryBar: -1}
}

func (b *book) open() []*Position {
	out := b.units[:0:0]
	for _, p := range b.units {
		if p.State != Closed {
			out = append(out, p)
		}
	}
	return out
}

// reconcile drops units whose ticket the venue no longer reports open
// (stop-loss fills happen venue-side). Returns the dropped units with
// their last known volume intact so the caller can book the fill.
func (b *book) reconcile(openTickets map[string]bool) []*Position {
	var dropped []*Position
	kept := b.units[:0]
	for _, p := range b.units {
		if p.State != Closed && !openTickets[p.Ticket] {
			p.State = Closed
			dropped = append(dropped, p)
			continue
		}
		kept = append(kept, p)
	}
	b.units = kept
	if len(b.units) == 0 {
		b.lastEntryBar = -1
	}
	return dropped
}

func (b *book) add(p *Position, barIndex int) {
	b.units = append(b.units, p)
	b.lastEntryBar = barIndex
}

func (b *book) clear() {
	b.units = nil
	b.lastEntryBar = -1
}
