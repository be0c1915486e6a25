// Package pipeline is the Pipeline Executor (C9): composes scoring
// strategies into sequential stages, each stage's output narrowing the
// universe for the next. Ported from the teacher's internal/contracts
// Stage/PipelineResult shape, generalized from the fixed S0..S7 taxonomy to
// spec.md §4.9's user-configurable stage list.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/aegis/rankengine/internal/contracts"
	"github.com/aegis/rankengine/internal/scoring"
)

// workerCount bounds how many symbols' price histories the executor fetches
// concurrently within one stage — the same bounded worker-pool shape the
// Attribute Poller uses for its fundamentals batch.
const workerCount = 10

// Executor runs RunPipeline requests against the Store Gateway's metadata
// and price read paths; it never calls the Fetcher (spec §2).
type Executor struct {
	metadata contracts.MetadataRepo
	prices   contracts.PriceRepo

	mu      sync.RWMutex
	weights contracts.MomentumWeights
}

// New builds an Executor with the default momentum weights.
func New(metadata contracts.MetadataRepo, prices contracts.PriceRepo) *Executor {
	return &Executor{
		metadata: metadata,
		prices:   prices,
		weights:  contracts.DefaultMomentumWeights(),
	}
}

// Weights returns the momentum weights currently in effect.
func (e *Executor) Weights() contracts.MomentumWeights {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.weights
}

// SetWeights updates the momentum weights used by subsequent Run calls,
// normalizing them first. Config is read-mostly and guarded by one mutex
// per spec §5; there is no scoring cache here to invalidate (the Score
// Store owns that, see internal/scores).
func (e *Executor) SetWeights(w contracts.MomentumWeights) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.weights = w.Normalized()
}

// ResetWeights restores the spec-mandated default momentum weights.
func (e *Executor) ResetWeights() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.weights = contracts.DefaultMomentumWeights()
}

// scored pairs a symbol with its computed score row, before sorting.
type scored struct {
	symbol string
	row    contracts.ScoreRow
}

// Run executes stages in order, feeding each stage's surviving symbols into
// the next, per spec.md §4.9.
func (e *Executor) Run(ctx context.Context, stages []contracts.PipelineStage) (contracts.PipelineResult, error) {
	if len(stages) == 0 {
		return contracts.PipelineResult{}, fmt.Errorf("run pipeline: no stages")
	}

	universe, err := e.stage1Universe(ctx, stages[0])
	if err != nil {
		return contracts.PipelineResult{}, fmt.Errorf("run pipeline: %w", err)
	}

	weights := e.Weights()
	result := contracts.PipelineResult{}

	for _, stage := range stages {
		start := time.Now()

		rows, err := e.scoreUniverse(ctx, universe, stage.StrategyID, weights)
		if err != nil {
			return contracts.PipelineResult{}, fmt.Errorf("run pipeline stage %s: %w", stage.StrategyID, err)
		}

		survivors := topN(rows, stage.OutputCount)
		stageResult := buildStageResult(stage, len(universe), survivors, time.Since(start))
		result.Stages = append(result.Stages, stageResult)

		if stageResult.Halted {
			result.Halted = true
			result.FinalSymbols = nil
			return result, nil
		}

		universe = make([]string, len(survivors))
		for i, s := range survivors {
			universe[i] = s.symbol
		}
	}

	result.FinalSymbols = universe
	return result, nil
}

// stage1Universe draws the top MarketCapLimit symbols from the metadata
// universe, optionally filtered by industry/sector; later stages ignore
// these filters per spec.md §9's resolved Open Question.
func (e *Executor) stage1Universe(ctx context.Context, stage1 contracts.PipelineStage) ([]string, error) {
	stocks, err := e.metadata.GetTopStocksByMarketCap(ctx, stage1.MarketCapLimit, stage1.Industry, stage1.Sector)
	if err != nil {
		return nil, fmt.Errorf("load stage-1 universe: %w", err)
	}
	symbols := make([]string, len(stocks))
	for i, s := range stocks {
		symbols[i] = s.Symbol
	}
	return symbols, nil
}

// scoreUniverse computes strategy's score for every symbol in universe,
// fetching each symbol's price history through a bounded worker pool.
func (e *Executor) scoreUniverse(ctx context.Context, universe []string, strategy contracts.Strategy, weights contracts.MomentumWeights) ([]scored, error) {
	jobs := make(chan string)
	results := make(chan scored, len(universe))
	errs := make(chan error, 1)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				bars, err := e.prices.GetPriceData(ctx, symbol, nil, nil)
				if err != nil {
					select {
					case errs <- fmt.Errorf("load price history for %s: %w", symbol, err):
					default:
					}
					continue
				}
				seriesBars := toScoringBars(bars)
				row, err := scoring.ComputeScore(strategy, seriesBars, weights)
				if err != nil {
					select {
					case errs <- fmt.Errorf("score %s: %w", symbol, err):
					default:
					}
					continue
				}
				row.Symbol = symbol
				row.Strategy = strategy
				results <- scored{symbol: symbol, row: sanitizeRow(row)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, symbol := range universe {
			select {
			case <-ctx.Done():
				return
			case jobs <- symbol:
			}
		}
	}()

	wg.Wait()
	close(results)

	select {
	case err := <-errs:
		return nil, err
	default:
	}

	out := make([]scored, 0, len(universe))
	for r := range results {
		if !r.row.InsufficientData {
			out = append(out, r)
		}
	}
	return out, nil
}

// toScoringBars adapts contracts.PriceBar (ascending by date, as returned by
// PriceRepo.GetPriceData) into the scoring package's minimal Bar shape.
func toScoringBars(bars []contracts.PriceBar) []scoring.Bar {
	out := make([]scoring.Bar, len(bars))
	for i, b := range bars {
		out[i] = scoring.Bar{
			Date:  b.Date.Format("2006-01-02"),
			Open:  b.Open,
			High:  b.High,
			Low:   b.Low,
			Close: b.Close,
		}
	}
	return out
}

// topN sorts rows descending by score (low-volatility's score is already
// sign-inverted, so descending is correct for every strategy per spec.md
// §4.9) and returns at most n.
func topN(rows []scored, n int) []scored {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].row.Score > rows[j].row.Score
	})
	if n < len(rows) {
		rows = rows[:n]
	}
	return rows
}

// buildStageResult assembles the per-stage report, including the
// avg/top/bottom aggregate metrics and the halt flag.
func buildStageResult(stage contracts.PipelineStage, inputCount int, survivors []scored, elapsed time.Duration) contracts.StageResult {
	result := contracts.StageResult{
		Stage:       stage,
		InputCount:  inputCount,
		OutputCount: len(survivors),
		Duration:    elapsed,
		Halted:      len(survivors) == 0,
	}
	if len(survivors) == 0 {
		return result
	}

	result.Scores = make([]contracts.ScoreRow, len(survivors))
	var sum float64
	top := survivors[0].row.Score
	bottom := survivors[0].row.Score
	for i, s := range survivors {
		result.Scores[i] = s.row
		sum += s.row.Score
		if s.row.Score > top {
			top = s.row.Score
		}
		if s.row.Score < bottom {
			bottom = s.row.Score
		}
	}
	result.AvgScore = sanitizeFloat(sum / float64(len(survivors)))
	result.TopScore = sanitizeFloat(top)
	result.BottomScore = sanitizeFloat(bottom)
	return result
}

// sanitizeRow replaces any NaN/Inf numeric field with 0.0 before the row
// crosses the pipeline boundary (spec.md §4.9); callers otherwise cannot
// distinguish a NaN from a legitimately-zero score.
func sanitizeRow(row contracts.ScoreRow) contracts.ScoreRow {
	row.Score = sanitizeFloat(row.Score)
	row.MomentumScore = sanitizeFloat(row.MomentumScore)
	if row.FIPQuality != nil {
		fip := sanitizeFloat(*row.FIPQuality)
		row.FIPQuality = &fip
	}
	row.RawMomentum122 = sanitizeFloat(row.RawMomentum122)
	row.TrueMomentum6M = sanitizeFloat(row.TrueMomentum6M)
	row.TrueMomentum3M = sanitizeFloat(row.TrueMomentum3M)
	row.TrueMomentum1M = sanitizeFloat(row.TrueMomentum1M)
	row.RawReturn6M = sanitizeFloat(row.RawReturn6M)
	row.RawReturn3M = sanitizeFloat(row.RawReturn3M)
	row.RawReturn1M = sanitizeFloat(row.RawReturn1M)
	if row.Aux != nil {
		clean := make(map[string]float64, len(row.Aux))
		for k, v := range row.Aux {
			clean[k] = sanitizeFloat(v)
		}
		row.Aux = clean
	}
	return row
}

func sanitizeFloat(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0.0
	}
	return x
}
