package backtest

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/pairs-trader/internal/cointegration"
	"github.com/yourusername/pairs-trader/internal/kalman"
	"github.com/yourusername/pairs-trader/internal/logger"
	"github.com/yourusername/pairs-trader/internal/metrics"
	"github.com/yourusername/pairs-trader/internal/models"
	"github.com/yourusername/pairs-trader/internal/risk"
	"github.com/yourusername/pairs-trader/internal/scheduler"
	"github.com/yourusername/pairs-trader/internal/signal"
	"github.com/yourusername/pairs-trader/internal/sizing"
)

// Result is the outcome of one backtest run
type Result struct {
	RunID        uuid.UUID                       `json:"run_id"`
	ConfigHash   string                          `json:"config_hash"`
	Pairs        []string                        `json:"pairs"`
	Ledger       []models.Fill                   `json:"ledger"`
	Trades       []models.Trade                  `json:"trades"`
	EquityCurve  EquityCurve                     `json:"equity_curve"`
	Metrics      Metrics                         `json:"metrics"`
	Diagnostics  []models.DiagnosticEvent        `json:"diagnostics"`
	Observations map[string][]signal.Observation `json:"-"`
	Screens      []cointegration.Result          `json:"-"`
	FinalCash    float64                         `json:"final_cash"`
	FinalEquity  float64                         `json:"final_equity"`
	RealizedPnL  float64                         `json:"realized_pnl"`
	Interrupted  bool                            `json:"interrupted"`
	Phase        Phase                           `json:"phase"`
	Duration     time.Duration                   `json:"duration"`
}

// Engine replays bars through screening, filtering, signals, sizing and risk
type Engine struct {
	cfg      BacktestConfig
	screener cointegration.Evaluator
	schedule *scheduler.RescreenSchedule
	logger   *logrus.Logger
	pairLog  *logger.PairLogger
	audit    *logger.AuditLogger
}

// NewEngine creates a backtest engine. A nil screener uses the Engle-Granger
// screener built from the configuration, behind a result cache.
func NewEngine(cfg BacktestConfig, screener cointegration.Evaluator, log *logrus.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.New()
	}
	if screener == nil {
		eg, err := cointegration.NewScreener(cfg.Cointegration, log)
		if err != nil {
			return nil, err
		}
		screener = cointegration.NewCachedScreener(eg)
	}

	var schedule *scheduler.RescreenSchedule
	if cfg.RescreenSchedule != "" {
		s, err := scheduler.NewRescreenSchedule(cfg.RescreenSchedule)
		if err != nil {
			return nil, models.WrapError(models.ErrConfiguration, err)
		}
		schedule = s
	}

	return &Engine{
		cfg:      cfg,
		screener: screener,
		schedule: schedule,
		logger:   log,
		pairLog:  logger.NewPairLogger(log),
		audit:    logger.NewAuditLogger(log),
	}, nil
}

// Config returns the engine configuration
func (e *Engine) Config() BacktestConfig {
	return e.cfg
}

// pairRuntime is the per-pair state owned by exactly one pair
type pairRuntime struct {
	pair      models.Pair
	id        string
	histA     models.PriceSeries
	histB     models.PriceSeries
	screened  bool
	active    bool
	screen    cointegration.Result
	estimator *kalman.Estimator
	generator *signal.Generator
	// fresh is set on the bar the filter was initialized from the screen
	fresh       bool
	innovations []risk.Sample
}

// pairStep is the phase-one output for one pair on one bar
type pairStep struct {
	rt       *pairRuntime
	skipped  bool
	skipErr  error
	diverged error
	obs      signal.Observation
	sig      signal.Signal
	priceA   float64
	priceB   float64
}

// run holds everything mutable of a single Run call
type run struct {
	engine      *Engine
	id          uuid.UUID
	state       *PortfolioState
	pairs       []*pairRuntime
	sizer       *sizing.KellySizer
	risk        *risk.Manager
	lastScreen  time.Time
	observation map[string][]signal.Observation
	screens     []cointegration.Result
	bar         int
	barTime     time.Time
	blocked     bool
}

// Run executes one backtest over pre-loaded bars. A nil pairs slice derives
// every combination of the instruments seen in the bars. Only configuration
// errors abort the run; an interrupted context returns the result committed
// so far together with an ErrInterrupted error.
func (e *Engine) Run(ctx context.Context, bars []models.Bar, pairs []models.Pair) (*Result, error) {
	started := time.Now()
	if err := models.ValidateBars(bars); err != nil {
		return nil, models.WrapError(models.ErrConfiguration, err)
	}
	bars = e.filterDates(bars)
	if len(pairs) == 0 {
		pairs = models.CandidatePairs(instrumentsOf(bars))
	}
	pairs = append([]models.Pair{}, pairs...)
	models.SortPairs(pairs)

	r, err := e.newRun(bars, pairs)
	if err != nil {
		metrics.RecordBacktestRun("historical_replay", "failure", time.Since(started).Seconds())
		return nil, err
	}

	e.audit.LogRunStarted(r.id.String(), e.cfg.Hash(), len(pairs), len(bars), e.cfg.InitialCapital)

	phase := PhaseRunning
	var runErr error
	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			runErr = models.WrapError(models.ErrInterrupted, err)
			break
		}
		r.processBar(i, bar)
	}

	if runErr == nil {
		r.finalize()
		phase = PhaseDone
	}

	result := r.result(phase)
	result.Interrupted = runErr != nil
	result.Duration = time.Since(started)

	status := "success"
	if result.Interrupted {
		status = "interrupted"
	}
	metrics.RecordBacktestRun("historical_replay", status, result.Duration.Seconds())
	metrics.UpdateSharpeRatio("historical_replay", result.Metrics.SharpeRatio)
	e.audit.LogRunCompleted(result.RunID.String(), result.FinalEquity, len(result.Trades), len(result.Ledger), result.Interrupted, result.Duration)

	return result, runErr
}

func (e *Engine) newRun(bars []models.Bar, pairs []models.Pair) (*run, error) {
	sizer, err := sizing.NewKellySizer(e.cfg.Sizing, e.logger)
	if err != nil {
		return nil, err
	}
	manager, err := risk.NewManager(e.cfg.Risk, nil, e.logger)
	if err != nil {
		return nil, err
	}

	r := &run{
		engine:      e,
		id:          e.runID(bars, pairs),
		state:       NewPortfolioState(e.cfg.InitialCapital),
		sizer:       sizer,
		risk:        manager,
		observation: make(map[string][]signal.Observation),
	}
	for _, p := range pairs {
		r.pairs = append(r.pairs, &pairRuntime{pair: p, id: p.ID()})
	}
	if len(bars) > 0 {
		r.lastScreen = bars[0].Time
	}
	return r, nil
}

// runID is derived from the configuration and inputs so that identical runs
// share identifiers.
func (e *Engine) runID(bars []models.Bar, pairs []models.Pair) uuid.UUID {
	h := sha256.New()
	h.Write([]byte(e.cfg.Hash()))
	for _, p := range pairs {
		h.Write([]byte(p.ID()))
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(len(bars)))
	h.Write(buf[:])
	if len(bars) > 0 {
		binary.BigEndian.PutUint64(buf[:], uint64(bars[0].Time.UnixNano()))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(bars[len(bars)-1].Time.UnixNano()))
		h.Write(buf[:])
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, h.Sum(nil))
}

func (e *Engine) filterDates(bars []models.Bar) []models.Bar {
	if e.cfg.StartDate.IsZero() && e.cfg.EndDate.IsZero() {
		return bars
	}
	out := make([]models.Bar, 0, len(bars))
	for _, bar := range bars {
		if !e.cfg.StartDate.IsZero() && bar.Time.Before(e.cfg.StartDate) {
			continue
		}
		if !e.cfg.EndDate.IsZero() && bar.Time.After(e.cfg.EndDate) {
			continue
		}
		out = append(out, bar)
	}
	return out
}

func instrumentsOf(bars []models.Bar) []string {
	seen := make(map[string]bool)
	for _, bar := range bars {
		for inst := range bar.Prices {
			seen[inst] = true
		}
	}
	out := make([]string, 0, len(seen))
	for inst := range seen {
		out = append(out, inst)
	}
	sort.Strings(out)
	return out
}

// processBar advances the run by one bar. Nothing here reads a later bar.
func (r *run) processBar(i int, bar models.Bar) {
	r.bar = i
	r.barTime = bar.Time
	r.state.ObservePrices(bar)
	r.appendHistory(bar)

	breakdowns := r.screenPairs(bar)

	steps := r.evaluatePairs(bar)

	r.commit(steps, breakdowns)

	point := r.state.MarkToMarket(bar.Time)
	metrics.RecordBarProcessed()
	metrics.UpdateEquity(point.Equity, point.Drawdown)
	metrics.UpdateOpenPositions(len(r.state.Positions))
}

func (r *run) appendHistory(bar models.Bar) {
	keep := r.engine.cfg.Cointegration.Window
	for _, p := range r.pairs {
		pa, okA := bar.Prices[p.pair.A]
		pb, okB := bar.Prices[p.pair.B]
		if !okA || !okB || !validPrice(pa) || !validPrice(pb) {
			continue
		}
		p.histA = append(p.histA, models.PricePoint{Time: bar.Time, Price: pa})
		p.histB = append(p.histB, models.PricePoint{Time: bar.Time, Price: pb})
		if len(p.histA) > 2*keep {
			p.histA = append(models.PriceSeries{}, p.histA[len(p.histA)-keep:]...)
			p.histB = append(models.PriceSeries{}, p.histB[len(p.histB)-keep:]...)
		}
	}
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0)
}

// screenPairs runs the first screen of each pair once its history fills and
// scheduled re-screens afterwards. It returns the pairs whose open positions
// must be force-closed.
func (r *run) screenPairs(bar models.Bar) []*pairRuntime {
	due := false
	if r.engine.schedule != nil && bar.Time.After(r.lastScreen) && r.engine.schedule.Due(r.lastScreen, bar.Time) {
		due = true
		r.lastScreen = bar.Time
	}

	window := r.engine.cfg.Cointegration.Window
	var breakdowns []*pairRuntime
	for _, p := range r.pairs {
		if len(p.histA) < window {
			continue
		}
		if p.screened && !due {
			continue
		}
		if r.screen(p) {
			breakdowns = append(breakdowns, p)
		}
	}
	return breakdowns
}

// screen evaluates one pair and returns true when a breakdown forces a close
func (r *run) screen(p *pairRuntime) bool {
	started := time.Now()
	res, err := r.engine.screener.Evaluate(p.pair, p.histA, p.histB, r.engine.cfg.Cointegration.Window)
	p.screened = true
	if err != nil {
		metrics.RecordPairScreened("error", time.Since(started).Seconds())
		r.state.Record(r.barTime, p.id, models.DiagInsufficientData, err.Error())
		return false
	}
	r.screens = append(r.screens, res)
	r.engine.pairLog.LogScreenResult(p.id, r.barTime, res.Statistic, res.HalfLife, res.HedgeRatio, res.Cointegrated, res.Reason)

	if !res.Cointegrated {
		metrics.RecordPairScreened("rejected", time.Since(started).Seconds())
		r.state.Record(r.barTime, p.id, models.DiagNotCointegrated, res.String())
		if p.active && r.risk.ShouldForceClose(res) {
			r.state.Record(r.barTime, p.id, models.DiagBreakdown, res.Reason)
			p.active = false
			p.estimator = nil
			p.generator = nil
			return true
		}
		return false
	}

	metrics.RecordPairScreened("cointegrated", time.Since(started).Seconds())
	p.screen = res
	if p.active {
		p.generator.SetHalfLife(res.HalfLife)
		return false
	}
	if err := r.activate(p, res); err != nil {
		r.state.Record(r.barTime, p.id, models.DiagInsufficientData, err.Error())
	}
	return false
}

// activate initializes the pair filter with priors from the screen result.
// The filter does not consume the bar it was initialized on.
func (r *run) activate(p *pairRuntime, res cointegration.Result) error {
	kcfg := r.engine.cfg.Kalman
	est, err := kalman.NewEstimator(p.id, kcfg.NoiseFor(res.ResidualVariance))
	if err != nil {
		return err
	}
	if err := est.Initialize(res.HedgeRatio, res.Intercept, kcfg.PriorCovariance()); err != nil {
		return err
	}
	gen, err := signal.NewGenerator(p.id, r.engine.cfg.Signals, res.HalfLife, nil)
	if err != nil {
		return err
	}
	p.estimator = est
	p.generator = gen
	p.active = true
	p.fresh = true
	return nil
}

// evaluatePairs is phase one: every active pair is advanced independently.
// Each goroutine touches only its own pairRuntime and its own slot.
func (r *run) evaluatePairs(bar models.Bar) []pairStep {
	active := make([]*pairRuntime, 0, len(r.pairs))
	for _, p := range r.pairs {
		if !p.active {
			continue
		}
		if p.fresh {
			p.fresh = false
			continue
		}
		active = append(active, p)
	}

	steps := make([]pairStep, len(active))
	var g errgroup.Group
	if w := r.engine.cfg.Workers; w > 0 {
		g.SetLimit(w)
	}
	for idx, p := range active {
		g.Go(func() error {
			steps[idx] = r.evaluatePair(p, bar)
			return nil
		})
	}
	_ = g.Wait()
	return steps
}

func (r *run) evaluatePair(p *pairRuntime, bar models.Bar) pairStep {
	step := pairStep{rt: p}
	pa, errA := bar.Price(p.pair.A)
	pb, errB := bar.Price(p.pair.B)
	if err := errors.Join(errA, errB); err != nil {
		step.skipped = true
		step.skipErr = err
		return step
	}
	step.priceA, step.priceB = pa, pb

	state, err := p.estimator.Update(pa, pb, bar.Time)
	if err != nil {
		if errors.Is(err, models.ErrFilterDivergence) {
			step.diverged = err
		} else {
			step.skipped = true
			step.skipErr = err
		}
		return step
	}

	step.obs = p.generator.Observe(state, pa, pb, bar.Time)

	var view *signal.PositionView
	pos, open := r.state.Positions[p.id]
	if open {
		view = &signal.PositionView{Direction: pos.Direction, EntryZ: pos.EntryZ, BarsHeld: r.bar - pos.EntryBar}
	}
	step.sig = p.generator.Classify(step.obs, view)

	if open {
		if stop, reason := r.risk.CheckStop(pos.riskView(pa, pb), step.obs.ZScore); stop {
			step.sig.Kind = signal.Exit
			step.sig.Reason = reason
		}
	}
	return step
}

// commit is phase two: the single writer applies every pair's outcome in
// pair-identifier order.
func (r *run) commit(steps []pairStep, breakdowns []*pairRuntime) {
	r.updateKillSwitch()

	for _, p := range breakdowns {
		if pos, open := r.state.Positions[p.id]; open {
			r.closePosition(pos, models.ExitBreakdown, math.NaN(), r.state.LastPrices[p.pair.A], r.state.LastPrices[p.pair.B])
		}
	}

	for _, step := range steps {
		p := step.rt
		switch {
		case step.skipped:
			kind := models.DiagMissingPrice
			if !errors.Is(step.skipErr, models.ErrMissingPrice) {
				kind = models.DiagInsufficientData
			}
			r.state.Record(r.barTime, p.id, kind, step.skipErr.Error())
			r.engine.pairLog.LogSkip(p.id, r.barTime, string(kind))
			continue
		case step.diverged != nil:
			r.handleDivergence(p, step.diverged)
			continue
		}

		r.observation[p.id] = append(r.observation[p.id], step.obs)
		p.innovations = append(p.innovations, risk.Sample{Bar: r.bar, Value: step.obs.Innovation})
		if h := r.engine.cfg.InnovationHistory; h > 0 && len(p.innovations) > h {
			p.innovations = p.innovations[len(p.innovations)-h:]
		}

		pos, open := r.state.Positions[p.id]
		switch {
		case open && step.sig.Kind == signal.Exit:
			r.closePosition(pos, step.sig.Reason, step.obs.ZScore, step.priceA, step.priceB)
		case !open && step.sig.Kind.IsEntry():
			r.tryEnter(step)
		}
	}
}

func (r *run) updateKillSwitch() {
	before := r.risk.KillSwitch().GetState()
	trips := r.risk.KillSwitch().Trips()
	snap := r.state.Snapshot(r.bar, nil)
	r.blocked = r.risk.CheckKillSwitch(snap)
	if r.risk.KillSwitch().GetState() != before {
		r.engine.pairLog.LogKillSwitch(r.barTime, r.blocked, snap.Drawdown)
		r.state.Record(r.barTime, "", models.DiagKillSwitch, fmt.Sprintf("%s at drawdown %.4f", r.risk.KillSwitch().GetState(), snap.Drawdown))
	}
	if r.risk.KillSwitch().Trips() > trips {
		metrics.RecordKillSwitchTrip()
	}
}

// handleDivergence re-screens the pair and restarts its filter from fresh
// priors, or retires it when the relationship no longer holds.
func (r *run) handleDivergence(p *pairRuntime, cause error) {
	r.state.Record(r.barTime, p.id, models.DiagFilterReset, cause.Error())
	r.engine.pairLog.LogFilterReset(p.id, r.barTime, cause)
	metrics.RecordFilterReset()

	prior := p.screen
	res, err := r.engine.screener.Evaluate(p.pair, p.histA, p.histB, r.engine.cfg.Cointegration.Window)
	if err == nil {
		r.screens = append(r.screens, res)
		if !res.Cointegrated {
			if pos, open := r.state.Positions[p.id]; open {
				r.closePosition(pos, models.ExitBreakdown, math.NaN(), r.state.LastPrices[p.pair.A], r.state.LastPrices[p.pair.B])
			}
			r.state.Record(r.barTime, p.id, models.DiagBreakdown, res.Reason)
			p.active = false
			p.estimator = nil
			p.generator = nil
			return
		}
		prior = res
	}

	kcfg := r.engine.cfg.Kalman
	est, err := kalman.NewEstimator(p.id, kcfg.NoiseFor(prior.ResidualVariance))
	if err == nil {
		err = est.Initialize(prior.HedgeRatio, prior.Intercept, kcfg.PriorCovariance())
	}
	if err != nil {
		r.state.Record(r.barTime, p.id, models.DiagInsufficientData, err.Error())
		return
	}
	p.screen = prior
	p.estimator = est
	p.generator.SetHalfLife(prior.HalfLife)
	p.generator.ResetRegime()
	p.fresh = true
}

func (r *run) tryEnter(step pairStep) {
	p := step.rt
	if r.blocked {
		r.state.Record(r.barTime, p.id, models.DiagEntryRejected, risk.ReasonKillSwitch)
		metrics.RecordEntryRejected(risk.ReasonKillSwitch)
		return
	}

	stats := sizing.ComputeTradeStats(r.state.Trades, r.engine.cfg.Sizing.Lookback)
	notional := r.sizer.Size(step.sig, stats, r.state.Equity)
	if notional <= 0 {
		return
	}

	beta := step.obs.Beta
	unitGrossA := step.priceA
	unitGrossB := math.Abs(beta) * step.priceB
	unitNotional := unitGrossA + unitGrossB
	sigma := math.Sqrt(step.obs.InnovationVariance)

	decision := r.risk.Authorize(risk.Request{
		PairID:       p.id,
		InstrumentA:  p.pair.A,
		InstrumentB:  p.pair.B,
		Direction:    step.sig.Kind.Direction(),
		Notional:     notional,
		UnitNotional: unitNotional,
		UnitGrossA:   unitGrossA,
		UnitGrossB:   unitGrossB,
		Sigma:        sigma,
	}, r.state.Snapshot(r.bar, r.innovationHistory()))
	if decision.Approved <= 0 {
		r.state.Record(r.barTime, p.id, models.DiagEntryRejected, decision.Reason)
		metrics.RecordEntryRejected(decision.Reason)
		return
	}

	direction := step.sig.Kind.Direction()
	units := decision.Approved / unitNotional
	pos := &Position{
		Pair:       p.pair,
		Direction:  direction,
		Phase:      PairEntering,
		Units:      units,
		QtyA:       direction.Sign() * units,
		QtyB:       -direction.Sign() * units * beta,
		HedgeRatio: beta,
		EntryTime:  r.barTime,
		EntryBar:   r.bar,
		EntryZ:     step.obs.ZScore,
		Notional:   decision.Approved,
		Sigma:      sigma,
	}

	for _, f := range r.legFills(pos, pos.QtyA, pos.QtyB, step.priceA, step.priceB, true) {
		pos.EntryCashFlow += f.CashFlow()
		pos.EntryCosts += f.Commission + math.Abs(f.Quantity*f.Slippage)
		r.book(f)
	}
	pos.Phase = PairOpen
	r.state.Positions[p.id] = pos

	r.engine.pairLog.LogEntry(p.id, string(direction), r.barTime, step.obs.ZScore, units, decision.Approved, beta)
}

// closePosition flattens both legs at the given prices and books the trade
func (r *run) closePosition(pos *Position, reason models.ExitReason, z, priceA, priceB float64) {
	pos.Phase = PairExiting
	exitCash, exitCosts := 0.0, 0.0
	for _, f := range r.legFills(pos, -pos.QtyA, -pos.QtyB, priceA, priceB, false) {
		exitCash += f.CashFlow()
		exitCosts += f.Commission + math.Abs(f.Quantity*f.Slippage)
		r.book(f)
	}

	id := pos.Pair.ID()
	if math.IsNaN(z) {
		z = 0
		if obs := r.observation[id]; len(obs) > 0 {
			z = obs[len(obs)-1].ZScore
		}
	}
	pnl := pos.EntryCashFlow + exitCash
	trade := models.Trade{
		ID:         uuid.NewSHA1(r.id, []byte(fmt.Sprintf("trade:%s:%d", id, pos.EntryBar))),
		PairID:     id,
		Direction:  pos.Direction,
		EntryTime:  pos.EntryTime,
		ExitTime:   r.barTime,
		EntryZ:     pos.EntryZ,
		ExitZ:      z,
		Units:      pos.Units,
		HedgeRatio: pos.HedgeRatio,
		Notional:   pos.Notional,
		PnL:        pnl,
		Costs:      pos.EntryCosts + exitCosts,
		BarsHeld:   r.bar - pos.EntryBar,
		ExitReason: reason,
	}
	r.state.Trades = append(r.state.Trades, trade)
	r.state.RealizedPnL += pnl
	delete(r.state.Positions, id)

	metrics.RecordTradeClosed(string(reason))
	r.engine.pairLog.LogExit(id, string(reason), r.barTime, z, pnl, trade.BarsHeld)
}

// legFills builds the fills that move the position by (deltaA, deltaB)
func (r *run) legFills(pos *Position, deltaA, deltaB, priceA, priceB float64, opening bool) []models.Fill {
	fills := make([]models.Fill, 0, 2)
	legs := []struct {
		leg        models.Leg
		instrument string
		delta      float64
		mid        float64
	}{
		{models.LegA, pos.Pair.A, deltaA, priceA},
		{models.LegB, pos.Pair.B, deltaB, priceB},
	}
	tag := "close"
	if opening {
		tag = "open"
	}
	for _, leg := range legs {
		if leg.delta == 0 {
			continue
		}
		side := models.SideBuy
		if leg.delta < 0 {
			side = models.SideSell
		}
		qty := math.Abs(leg.delta)
		price := r.engine.cfg.Costs.ExecutionPrice(leg.mid, side)
		fills = append(fills, models.Fill{
			ID:         uuid.NewSHA1(r.id, []byte(fmt.Sprintf("%s:%d:%s:%s", pos.Pair.ID(), r.bar, leg.leg, tag))),
			Time:       r.barTime,
			PairID:     pos.Pair.ID(),
			Instrument: leg.instrument,
			Leg:        leg.leg,
			Direction:  pos.Direction,
			Side:       side,
			Quantity:   qty,
			MidPrice:   leg.mid,
			Price:      price,
			Slippage:   math.Abs(price - leg.mid),
			Commission: r.engine.cfg.Costs.Commission(qty, price),
			Opening:    opening,
		})
	}
	return fills
}

func (r *run) book(f models.Fill) {
	r.state.ApplyFill(f)
	metrics.RecordFill(string(f.Side))
	r.engine.audit.LogFill(f.ID.String(), f.PairID, f.Instrument, string(f.Side), f.Quantity, f.Price, f.Commission, f.Time)
}

func (r *run) innovationHistory() map[string][]risk.Sample {
	out := make(map[string][]risk.Sample, len(r.pairs))
	for _, p := range r.pairs {
		if len(p.innovations) > 0 {
			out[p.id] = p.innovations
		}
	}
	return out
}

// finalize force-closes open positions at the last prices and restates the
// final equity point to include the closing costs.
func (r *run) finalize() {
	if len(r.state.EquityCurve) == 0 {
		return
	}
	for _, id := range r.state.OpenPairIDs() {
		pos := r.state.Positions[id]
		r.closePosition(pos, models.ExitEndOfBacktest, math.NaN(), r.state.LastPrices[pos.Pair.A], r.state.LastPrices[pos.Pair.B])
	}
	r.state.RestateLast()
}

func (r *run) result(phase Phase) *Result {
	pairs := make([]string, len(r.pairs))
	for i, p := range r.pairs {
		pairs[i] = p.id
	}
	res := &Result{
		RunID:        r.id,
		ConfigHash:   r.engine.cfg.Hash(),
		Pairs:        pairs,
		Ledger:       r.state.Ledger,
		Trades:       r.state.Trades,
		EquityCurve:  r.state.EquityCurve,
		Diagnostics:  r.state.Diagnostics,
		Observations: r.observation,
		Screens:      r.screens,
		FinalCash:    r.state.Cash,
		FinalEquity:  r.state.Equity,
		RealizedPnL:  r.state.RealizedPnL,
		Phase:        phase,
	}
	res.Metrics = CalculateMetrics(res.EquityCurve, res.Trades, res.Ledger, r.engine.cfg)
	return res
}
