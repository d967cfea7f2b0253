package journal

// Memory buffers records in process. Backtests use it so the equity curve
// and trade ledger can be inspected without touching disk.
type Memory struct {
	Records []Record
	Trades  []TradeRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (j *Memory) Append(r Record) error {
	j.Records = append(j.Records, r)
	return nil
}

func (j *Memory) RecordTrade(t TradeRecord) error {
	j.Trades = append(j.Trades, t)
	return nil
}

func (j *Memory) Close() error { return nil }
