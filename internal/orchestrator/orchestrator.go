// Package orchestrator runs dashboard query cycles: one primary (stock) and
// one secondary (sentiment) request per symbol, merged into DashboardState.
//
// Every cycle takes a generation number. Each resolution compares its
// generation with the current one before touching state, so a superseded
// cycle's late results are dropped ("last query wins"). In-flight requests
// of a superseded cycle are not cancelled.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/volaengine/vola/internal/collector"
	"github.com/volaengine/vola/internal/model"
)

// DefaultStockError is shown when a failed stock payload carries no message.
const DefaultStockError = "Failed to fetch stock data"

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithOnChange registers a callback invoked after every applied state
// transition. It receives no state: call State() for the latest copy.
// The callback runs outside the state lock and may be called concurrently.
func WithOnChange(fn func()) Option {
	return func(o *Orchestrator) { o.onChange = fn }
}

// WithOnSettle registers a callback invoked with the final state of every
// cycle that settles without being superseded.
func WithOnSettle(fn func(model.DashboardState)) Option {
	return func(o *Orchestrator) { o.onSettle = fn }
}

// Orchestrator owns the DashboardState.
type Orchestrator struct {
	client   collector.AnalyticsClient
	logger   *zap.Logger
	onChange func()
	onSettle func(model.DashboardState)

	mu    sync.Mutex
	state model.DashboardState
	gen   uint64
}

// New creates an Orchestrator with an empty state.
func New(client collector.AnalyticsClient, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{client: client, logger: logger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns a copy of the current dashboard state.
func (o *Orchestrator) State() model.DashboardState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Generation returns the number of query cycles started so far.
func (o *Orchestrator) Generation() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen
}

// RunQuery runs one query cycle for symbol and blocks until both requests
// have resolved. It returns false without touching state or issuing any
// request when symbol is empty after trimming.
//
// Previous stock and sentiment stay visible while the cycle is loading.
func (o *Orchestrator) RunQuery(ctx context.Context, symbol string) bool {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return false
	}

	o.mu.Lock()
	o.gen++
	gen := o.gen
	o.state.Symbol = symbol
	o.state.Error = ""
	o.state.Loading = true
	o.mu.Unlock()
	o.changed()

	log := o.logger.With(
		zap.String("cycle", uuid.NewString()),
		zap.Uint64("generation", gen),
		zap.String("symbol", symbol),
		zap.String("source", o.client.Name()),
	)
	log.Info("query cycle started")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		o.runPrimary(ctx, gen, symbol, log)
	}()
	go func() {
		defer wg.Done()
		o.runSecondary(ctx, gen, symbol, log)
	}()
	wg.Wait()

	var settled model.DashboardState
	if !o.apply(gen, func(s *model.DashboardState) {
		s.Loading = false
		settled = *s
	}) {
		log.Info("query cycle superseded")
		return true
	}
	log.Info("query cycle settled",
		zap.Bool("stock", settled.Stock != nil),
		zap.Bool("sentiment", settled.Sentiment != nil),
		zap.String("error", settled.Error),
	)
	if o.onSettle != nil {
		o.onSettle(settled)
	}
	return true
}

func (o *Orchestrator) runPrimary(ctx context.Context, gen uint64, symbol string, log *zap.Logger) {
	stock, err := o.client.FetchStock(ctx, symbol)

	var msg string
	switch {
	case err != nil:
		msg = describeError(err)
		log.Warn("stock fetch failed", zap.Error(err))
	case stock == nil:
		msg = DefaultStockError
		log.Warn("stock fetch returned no payload")
	case stock.Failed():
		msg = stock.Error
		if msg == "" {
			msg = DefaultStockError
		}
		log.Warn("stock payload reported failure", zap.String("message", msg))
	}

	if msg != "" {
		o.applyOrDrop(gen, log, "stock", func(s *model.DashboardState) {
			s.Error = msg
			s.Stock = nil
		})
		return
	}

	snap := *stock
	snap.Normalize()
	o.applyOrDrop(gen, log, "stock", func(s *model.DashboardState) {
		s.Stock = &snap
		s.Error = ""
	})
}

// runSecondary never touches the error field: sentiment failures are silent.
func (o *Orchestrator) runSecondary(ctx context.Context, gen uint64, symbol string, log *zap.Logger) {
	sentiment, err := o.client.FetchSentiment(ctx, symbol)
	switch {
	case err != nil:
		log.Debug("sentiment not available", zap.Error(err))
		sentiment = nil
	case sentiment != nil && sentiment.Failed():
		log.Debug("sentiment not available", zap.String("message", sentiment.Error))
		sentiment = nil
	}
	o.applyOrDrop(gen, log, "sentiment", func(s *model.DashboardState) {
		s.Sentiment = sentiment
	})
}

func (o *Orchestrator) applyOrDrop(gen uint64, log *zap.Logger, what string, fn func(*model.DashboardState)) {
	if !o.apply(gen, fn) {
		log.Debug("stale result dropped", zap.String("result", what))
	}
}

// apply mutates state only if gen is still the current generation.
func (o *Orchestrator) apply(gen uint64, fn func(*model.DashboardState)) bool {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return false
	}
	fn(&o.state)
	o.mu.Unlock()
	o.changed()
	return true
}

func (o *Orchestrator) changed() {
	if o.onChange != nil {
		o.onChange()
	}
}

// describeError turns a primary transport error into the dashboard message.
func describeError(err error) string {
	var se *collector.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("Failed to fetch data: %d", se.StatusCode)
	}
	return "Failed to fetch data: " + err.Error()
}
