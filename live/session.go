// Package live runs the polling trading session against a real execution
// gateway. It drives the same strategy, sizer, and compliance gate the
// backtest harness drives; only the venue and the clock differ.
package live

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/turtle/broker"
	"github.com/rustyeddy/turtle/compliance"
	"github.com/rustyeddy/turtle/journal"
	"github.com/rustyeddy/turtle/market"
	"github.com/rustyeddy/turtle/risk"
	"github.com/rustyeddy/turtle/strategy"
)

const (
	defaultPollInterval = time.Minute
	defaultBarCount     = 300
	defaultRetries      = 3
	defaultBackoff      = 2 * time.Second
)

// Config holds the session runtime knobs.
type Config struct {
	Session   string
	Symbols   []string
	Timeframe market.Timeframe

	BarCount     int
	PollInterval time.Duration

	// Gateway calls that fail are retried this many times with a short
	// backoff before the cycle (or symbol) is skipped.
	Retries int
	Backoff time.Duration
}

// Session is one live trading session. Symbols are processed strictly
// sequentially within a cycle; the risk state and journal are shared,
// unlocked singletons.
type Session struct {
	cfg   Config
	gw    broker.Gateway
	strat strategy.Strategy
	state *risk.State
	gate  *compliance.Gate
	j     journal.Journal

	barTime  map[string]time.Time
	barIndex map[string]int
}

func NewSession(cfg Config, gw broker.Gateway, strat strategy.Strategy, state *risk.State, gate *compliance.Gate, j journal.Journal) *Session {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.BarCount <= 0 {
		cfg.BarCount = defaultBarCount
	}
	if cfg.Retries <= 0 {
		cfg.Retries = defaultRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	return &Session{
		cfg:      cfg,
		gw:       gw,
		strat:    strat,
		state:    state,
		gate:     gate,
		j:        j,
		barTime:  map[string]time.Time{},
		barIndex: map[string]int{},
	}
}

// Run connects and polls until the context is cancelled or the compliance
// gate latches a STOP. Failure to connect at session start is fatal; every
// later gateway failure only skips the affected cycle or symbol.
func (s *Session) Run(ctx context.Context) error {
	if err := s.connect(ctx); err != nil {
		return fmt.Errorf("session start: %w", err)
	}
	journal.Info(s.j, time.Now().UTC(), journal.TypeInfo, "",
		fmt.Sprintf("session %s started (%d symbols, %s)", s.cfg.Session, len(s.cfg.Symbols), s.cfg.Timeframe))

	for {
		stopped, err := s.cycle(ctx)
		if err != nil {
			return err
		}
		if stopped {
			return nil
		}
		if !s.sleep(ctx, s.cfg.PollInterval) {
			return nil
		}
	}
}

func (s *Session) connect(ctx context.Context) error {
	var err error
	for attempt := 0; attempt < s.cfg.Retries; attempt++ {
		if err = s.gw.Connect(ctx); err == nil {
			return nil
		}
		if !s.sleep(ctx, s.cfg.Backoff) {
			return ctx.Err()
		}
	}
	return err
}

// cycle is one decision pass over all symbols. Reports stopped=true when
// the compliance gate halted the session; that is a normal terminal state.
func (s *Session) cycle(ctx context.Context) (bool, error) {
	now := time.Now().UTC()
	s.state.Rollover(now)

	acct, err := s.account(ctx)
	if err != nil {
		journal.Info(s.j, now, journal.TypeWarning, "",
			fmt.Sprintf("cycle skipped, account unavailable: %v", err))
		return false, nil
	}
	_ = s.j.Append(journal.Record{
		Session: s.cfg.Session,
		Time:    now,
		Type:    journal.TypeStatus,
		Balance: acct.Balance,
		Equity:  acct.Equity,
	})

	if v := s.gate.Check(acct.Balance, acct.Equity); v.Stop {
		journal.Info(s.j, now, journal.TypeInfo, "",
			fmt.Sprintf("compliance stop: %s, session halted", v.Reason))
		return true, nil
	}

	for _, sym := range s.cfg.Symbols {
		if ctx.Err() != nil {
			return false, nil
		}
		s.step(ctx, sym, now)
	}
	return false, nil
}

// step handles one symbol: fetch the closed-bar window and, if a new bar
// has closed since the last cycle, run the strategy on it. All failures
// skip the symbol for this cycle only.
func (s *Session) step(ctx context.Context, symbol string, now time.Time) {
	var bars []market.Bar
	err := s.retry(ctx, func() error {
		var err error
		bars, err = s.gw.GetHistoricalData(ctx, symbol, s.cfg.Timeframe, s.cfg.BarCount)
		return err
	})
	if err != nil {
		journal.Info(s.j, now, journal.TypeWarning, symbol,
			fmt.Sprintf("skipped, bars unavailable: %v", err))
		return
	}
	if len(bars) == 0 {
		journal.Info(s.j, now, journal.TypeWarning, symbol, "skipped, empty bar series")
		return
	}

	last := bars[len(bars)-1].Time
	if !last.After(s.barTime[symbol]) {
		return // no new closed bar since the previous cycle
	}
	s.barTime[symbol] = last
	s.barIndex[symbol]++

	if err := s.strat.OnBar(ctx, s.gw, symbol, bars, s.barIndex[symbol], now); err != nil {
		journal.Info(s.j, now, journal.TypeWarning, symbol,
			fmt.Sprintf("cycle error: %v", err))
	}
}

func (s *Session) account(ctx context.Context) (broker.Account, error) {
	var acct broker.Account
	err := s.retry(ctx, func() error {
		var err error
		acct, err = s.gw.GetAccountSnapshot(ctx)
		return err
	})
	return acct, err
}

func (s *Session) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < s.cfg.Retries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !s.sleep(ctx, s.cfg.Backoff) {
			return err
		}
	}
	return err
}

// sleep blocks for d or until cancellation; false means cancelled.
func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
