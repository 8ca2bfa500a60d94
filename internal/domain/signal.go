package domain

// Direction is the side of a binary signal.
type Direction string

const (
	DirectionCall Direction = "CALL"
	DirectionPut  Direction = "PUT"
)

// Result is the resolved outcome of a signal after expiry. The zero value
// means the signal has not been resolved yet.
type Result string

const (
	ResultWin  Result = "WIN"
	ResultLoss Result = "LOSS"
)

// RegimeMode is the market regime classification produced by the regime
// detector. RegimeNoTrade short-circuits evaluation for that symbol.
type RegimeMode string

const (
	RegimeNoTrade       RegimeMode = "no-trade"
	RegimeVolatile      RegimeMode = "volatile"
	RegimeHighLiquidity RegimeMode = "high-liquidity"
	RegimeNormal        RegimeMode = "normal"
)

// Candidate is the ephemeral output of one symbol evaluation. It exists only
// for the duration of a scan iteration and is never persisted.
type Candidate struct {
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	Confidence int       `json:"confidence"`
	Entry      float64   `json:"entry"`
	EntryTS    int64     `json:"entry_ts"`
	CandleSize float64   `json:"candle_size,omitempty"`
	Notes      TagSet    `json:"notes,omitempty"`
}

const (
	MartingaleSuggest = "SUGGEST"
	MartingaleNo      = "NO"
)

// MartingaleAdvice is a stake-escalation recommendation. It is advisory
// only; Decision is either MartingaleSuggest or MartingaleNo.
type MartingaleAdvice struct {
	Decision  string  `json:"decision"`
	Reason    string  `json:"reason"`
	Factor    float64 `json:"factor,omitempty"`
	LossRate  float64 `json:"loss_rate,omitempty"`
	RiskScore float64 `json:"risk_score,omitempty"`
}

// Verdict is the overseer's broadcast-eligibility decision.
type Verdict struct {
	OK        bool    `json:"ok"`
	Score     float64 `json:"score"`
	PreSignal bool    `json:"pre_signal"`
}

// Signal is an emitted, ledgered trading signal. IDs are sequential starting
// at 1 and strictly increasing in emission order. Result starts empty and is
// set at most once by the outcome resolver after ExpiryTS.
type Signal struct {
	ID            int64            `json:"id"`
	Symbol        string           `json:"symbol"`
	Market        string           `json:"market"`
	Direction     Direction        `json:"direction"`
	Confidence    int              `json:"confidence"`
	Entry         float64          `json:"entry"`
	EntryTS       int64            `json:"entry_ts"`
	EntryTimeISO  string           `json:"entry_time_iso"`
	ExpiryTS      int64            `json:"expiry_ts"`
	Notes         TagSet           `json:"notes,omitempty"`
	Martingale    MartingaleAdvice `json:"mtg"`
	Mode          RegimeMode       `json:"mode"`
	Result        Result           `json:"result,omitempty"`
	CandleSize    float64          `json:"candle_size,omitempty"`
	TimeISO       string           `json:"time_iso"`
	ServerTimeISO string           `json:"server_time_iso"`
}

// Resolved reports whether the outcome resolver has set a result.
func (s Signal) Resolved() bool {
	return s.Result != ""
}

// SymbolScore is one row of a full-registry scan ranking.
type SymbolScore struct {
	Symbol    string     `json:"symbol"`
	Score     float64    `json:"score"`
	Candidate *Candidate `json:"candidate,omitempty"`
}
