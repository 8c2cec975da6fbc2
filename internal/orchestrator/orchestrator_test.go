package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/volaengine/vola/internal/collector"
	"github.com/volaengine/vola/internal/model"
)

// --- Fakes ---

type response struct {
	stock        *model.StockSnapshot
	stockErr     error
	sentiment    *model.SentimentSnapshot
	sentimentErr error
	stockGate    chan struct{} // when set, FetchStock blocks until closed
	sentGate     chan struct{}
}

type fakeClient struct {
	mu             sync.Mutex
	responses      map[string]*response
	stockCalls     int32
	sentimentCalls int32
	started        chan string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		responses: make(map[string]*response),
		started:   make(chan string, 64),
	}
}

func (f *fakeClient) on(symbol string, r *response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[symbol] = r
}

func (f *fakeClient) get(symbol string) *response {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.responses[symbol]; ok {
		return r
	}
	return &response{stockErr: errors.New("unexpected symbol " + symbol)}
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) FetchStock(_ context.Context, symbol string) (*model.StockSnapshot, error) {
	atomic.AddInt32(&f.stockCalls, 1)
	f.started <- "stock:" + symbol
	r := f.get(symbol)
	if r.stockGate != nil {
		<-r.stockGate
	}
	return r.stock, r.stockErr
}

func (f *fakeClient) FetchSentiment(_ context.Context, symbol string) (*model.SentimentSnapshot, error) {
	atomic.AddInt32(&f.sentimentCalls, 1)
	f.started <- "sentiment:" + symbol
	r := f.get(symbol)
	if r.sentGate != nil {
		<-r.sentGate
	}
	return r.sentiment, r.sentimentErr
}

func (f *fakeClient) waitStarted(t *testing.T, want ...string) {
	t.Helper()
	pending := make(map[string]bool, len(want))
	for _, w := range want {
		pending[w] = true
	}
	timeout := time.After(2 * time.Second)
	for len(pending) > 0 {
		select {
		case got := <-f.started:
			delete(pending, got)
		case <-timeout:
			t.Fatalf("requests not started: %v", pending)
		}
	}
}

func okStock(ticker string, price float64) *model.StockSnapshot {
	return &model.StockSnapshot{
		Ticker:        ticker,
		CurrentPrice:  null.FloatFrom(price),
		Volatility30d: null.FloatFrom(24.3),
		Success:       null.BoolFrom(true),
	}
}

func okSentiment(label string) *model.SentimentSnapshot {
	return &model.SentimentSnapshot{
		OverallSentiment: label,
		SentimentScore:   null.FloatFrom(0.5),
		KeyPhrases:       []string{"steady growth"},
	}
}

func runAsync(o *Orchestrator, symbol string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		o.RunQuery(context.Background(), symbol)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("query cycle did not finish")
	}
}

// --- Tests ---

func TestRunQuery_Success(t *testing.T) {
	fc := newFakeClient()
	fc.on("AAPL", &response{stock: okStock("aapl", 189.5), sentiment: okSentiment("Positive")})
	o := New(fc, zap.NewNop())

	require.True(t, o.RunQuery(context.Background(), "AAPL"))

	st := o.State()
	assert.Equal(t, "AAPL", st.Symbol)
	require.NotNil(t, st.Stock)
	assert.Equal(t, "AAPL", st.Stock.Ticker, "ticker normalized")
	require.NotNil(t, st.Sentiment)
	assert.Equal(t, "Positive", st.Sentiment.OverallSentiment)
	assert.False(t, st.Loading)
	assert.False(t, st.HasError())
	assert.EqualValues(t, 1, o.Generation())
}

func TestRunQuery_NormalizesSymbol(t *testing.T) {
	fc := newFakeClient()
	fc.on("MSFT", &response{stock: okStock("MSFT", 410), sentiment: okSentiment("Neutral")})
	o := New(fc, nil)

	require.True(t, o.RunQuery(context.Background(), "  msft "))

	assert.Equal(t, "MSFT", o.State().Symbol)
	assert.NotNil(t, o.State().Stock)
}

func TestRunQuery_EmptySymbolIsNoop(t *testing.T) {
	fc := newFakeClient()
	fc.on("AAPL", &response{stock: okStock("AAPL", 189.5), sentiment: okSentiment("Positive")})
	o := New(fc, zap.NewNop())
	require.True(t, o.RunQuery(context.Background(), "AAPL"))
	before := o.State()

	for _, s := range []string{"", "   ", "\t\n"} {
		assert.False(t, o.RunQuery(context.Background(), s))
	}

	assert.Equal(t, before, o.State())
	assert.EqualValues(t, 1, atomic.LoadInt32(&fc.stockCalls))
	assert.EqualValues(t, 1, atomic.LoadInt32(&fc.sentimentCalls))
	assert.EqualValues(t, 1, o.Generation())
}

func TestRunQuery_EmptySymbolOnFreshState(t *testing.T) {
	fc := newFakeClient()
	o := New(fc, zap.NewNop())

	assert.False(t, o.RunQuery(context.Background(), " "))
	assert.Equal(t, model.DashboardState{}, o.State())
	assert.Zero(t, atomic.LoadInt32(&fc.stockCalls))
	assert.Zero(t, atomic.LoadInt32(&fc.sentimentCalls))
}

func TestRunQuery_ApplicationErrorRegardlessOfSentiment(t *testing.T) {
	failed := &model.StockSnapshot{
		Ticker:       "ZZZZ",
		Success:      null.BoolFrom(false),
		Error:        "bad ticker",
		CurrentPrice: null.FloatFrom(0),
	}
	tests := []struct {
		name string
		resp *response
	}{
		{"sentiment ok", &response{stock: failed, sentiment: okSentiment("Negative")}},
		{"sentiment failed", &response{stock: failed, sentimentErr: errors.New("down")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeClient()
			fc.on("ZZZZ", tt.resp)
			o := New(fc, zap.NewNop())

			o.RunQuery(context.Background(), "zzzz")

			st := o.State()
			assert.Equal(t, "bad ticker", st.Error)
			assert.Nil(t, st.Stock)
			assert.False(t, st.Loading)
			assert.EqualValues(t, 1, atomic.LoadInt32(&fc.sentimentCalls), "secondary still attempted")
		})
	}
}

func TestRunQuery_ApplicationErrorWithoutMessage(t *testing.T) {
	fc := newFakeClient()
	fc.on("AAPL", &response{stock: &model.StockSnapshot{Success: null.BoolFrom(false)}})
	o := New(fc, zap.NewNop())

	o.RunQuery(context.Background(), "AAPL")

	assert.Equal(t, DefaultStockError, o.State().Error)
}

func TestRunQuery_TransportErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"status", &collector.StatusError{Endpoint: "/api/analyze/AAPL", StatusCode: 503}, "Failed to fetch data: 503"},
		{"network", errors.New("connection refused"), "Failed to fetch data: connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeClient()
			fc.on("AAPL", &response{stockErr: tt.err, sentimentErr: errors.New("also down")})
			o := New(fc, zap.NewNop())

			o.RunQuery(context.Background(), "AAPL")

			st := o.State()
			assert.Equal(t, tt.want, st.Error, "secondary failure never overwrites the primary error")
			assert.Nil(t, st.Stock)
			assert.Nil(t, st.Sentiment)
			assert.False(t, st.Loading)
		})
	}
}

func TestRunQuery_PrimaryFailureClearsPreviousStock(t *testing.T) {
	fc := newFakeClient()
	fc.on("AAPL", &response{stock: okStock("AAPL", 189.5), sentiment: okSentiment("Positive")})
	fc.on("NOPE", &response{stockErr: errors.New("boom"), sentiment: okSentiment("Neutral")})
	o := New(fc, zap.NewNop())

	o.RunQuery(context.Background(), "AAPL")
	o.RunQuery(context.Background(), "NOPE")

	st := o.State()
	assert.Nil(t, st.Stock)
	assert.True(t, st.HasError())
	require.NotNil(t, st.Sentiment)
	assert.Equal(t, "Neutral", st.Sentiment.OverallSentiment)
}

func TestRunQuery_SecondaryFailureIsSilent(t *testing.T) {
	fc := newFakeClient()
	fc.on("AAPL", &response{stock: okStock("AAPL", 189.5), sentimentErr: &collector.StatusError{StatusCode: 404}})
	o := New(fc, zap.NewNop())

	o.RunQuery(context.Background(), "AAPL")

	st := o.State()
	assert.NotNil(t, st.Stock)
	assert.Nil(t, st.Sentiment)
	assert.Equal(t, "", st.Error)
}

func TestRunQuery_SecondaryApplicationFailureIsSilent(t *testing.T) {
	fc := newFakeClient()
	fc.on("AAPL", &response{
		stock:     okStock("AAPL", 189.5),
		sentiment: &model.SentimentSnapshot{Success: null.BoolFrom(false), Error: "Sentiment analysis failed"},
	})
	o := New(fc, zap.NewNop())

	o.RunQuery(context.Background(), "AAPL")

	assert.Nil(t, o.State().Sentiment)
	assert.False(t, o.State().HasError())
}

func TestRunQuery_SecondaryFailureClearsPreviousSentiment(t *testing.T) {
	fc := newFakeClient()
	fc.on("AAPL", &response{stock: okStock("AAPL", 189.5), sentiment: okSentiment("Positive")})
	fc.on("TSLA", &response{stock: okStock("TSLA", 250), sentimentErr: errors.New("down")})
	o := New(fc, zap.NewNop())

	o.RunQuery(context.Background(), "AAPL")
	o.RunQuery(context.Background(), "TSLA")

	assert.Nil(t, o.State().Sentiment)
	assert.Equal(t, "TSLA", o.State().Stock.Ticker)
}

func TestRunQuery_RequestsAreConcurrent(t *testing.T) {
	fc := newFakeClient()
	stockGate, sentGate := make(chan struct{}), make(chan struct{})
	fc.on("AAPL", &response{
		stock: okStock("AAPL", 189.5), sentiment: okSentiment("Positive"),
		stockGate: stockGate, sentGate: sentGate,
	})
	o := New(fc, zap.NewNop())

	done := runAsync(o, "AAPL")
	// Both requests are in flight before either resolves.
	fc.waitStarted(t, "stock:AAPL", "sentiment:AAPL")

	close(sentGate)
	require.Eventually(t, func() bool { return o.State().Sentiment != nil }, time.Second, 5*time.Millisecond)
	assert.True(t, o.State().Loading, "still loading until both resolve")

	close(stockGate)
	waitDone(t, done)
	assert.False(t, o.State().Loading)
	assert.NotNil(t, o.State().Stock)
}

func TestRunQuery_PreviousResultsVisibleWhileLoading(t *testing.T) {
	fc := newFakeClient()
	fc.on("AAPL", &response{stock: okStock("AAPL", 189.5), sentiment: okSentiment("Positive")})
	gate := make(chan struct{})
	fc.on("TSLA", &response{stock: okStock("TSLA", 250), sentiment: okSentiment("Neutral"), stockGate: gate, sentGate: gate})
	o := New(fc, zap.NewNop())

	o.RunQuery(context.Background(), "AAPL")
	done := runAsync(o, "TSLA")
	fc.waitStarted(t, "stock:AAPL", "sentiment:AAPL", "stock:TSLA", "sentiment:TSLA")

	st := o.State()
	assert.True(t, st.Loading)
	assert.Equal(t, "TSLA", st.Symbol)
	require.NotNil(t, st.Stock)
	assert.Equal(t, "AAPL", st.Stock.Ticker)

	close(gate)
	waitDone(t, done)
	assert.Equal(t, "TSLA", o.State().Stock.Ticker)
}

func TestRunQuery_LastQueryWins(t *testing.T) {
	tests := []struct {
		name       string
		staleFirst bool
	}{
		{"stale resolves after latest", false},
		{"stale resolves before latest", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeClient()
			aaplGate, tslaGate := make(chan struct{}), make(chan struct{})
			fc.on("AAPL", &response{stock: okStock("AAPL", 189.5), sentiment: okSentiment("Positive"), stockGate: aaplGate, sentGate: aaplGate})
			fc.on("TSLA", &response{stock: okStock("TSLA", 250), sentiment: okSentiment("Negative"), stockGate: tslaGate, sentGate: tslaGate})
			o := New(fc, zap.NewNop())

			aapl := runAsync(o, "AAPL")
			fc.waitStarted(t, "stock:AAPL", "sentiment:AAPL")
			tsla := runAsync(o, "TSLA")
			fc.waitStarted(t, "stock:TSLA", "sentiment:TSLA")

			if tt.staleFirst {
				close(aaplGate)
				waitDone(t, aapl)
				st := o.State()
				assert.True(t, st.Loading, "stale settle must not end loading")
				assert.Nil(t, st.Stock, "stale stock must not be applied")
				assert.Nil(t, st.Sentiment, "stale sentiment must not be applied")
				close(tslaGate)
				waitDone(t, tsla)
			} else {
				close(tslaGate)
				waitDone(t, tsla)
				close(aaplGate)
				waitDone(t, aapl)
			}

			st := o.State()
			assert.Equal(t, "TSLA", st.Symbol)
			require.NotNil(t, st.Stock)
			assert.Equal(t, "TSLA", st.Stock.Ticker)
			require.NotNil(t, st.Sentiment)
			assert.Equal(t, "Negative", st.Sentiment.OverallSentiment)
			assert.False(t, st.Loading)
			assert.EqualValues(t, 2, o.Generation())
		})
	}
}

func TestRunQuery_StaleErrorIgnored(t *testing.T) {
	fc := newFakeClient()
	gate := make(chan struct{})
	fc.on("BAD", &response{stockErr: errors.New("boom"), sentimentErr: errors.New("boom"), stockGate: gate, sentGate: gate})
	fc.on("GOOD", &response{stock: okStock("GOOD", 10), sentiment: okSentiment("Neutral")})
	o := New(fc, zap.NewNop())

	bad := runAsync(o, "BAD")
	fc.waitStarted(t, "stock:BAD", "sentiment:BAD")
	o.RunQuery(context.Background(), "GOOD")
	close(gate)
	waitDone(t, bad)

	st := o.State()
	assert.False(t, st.HasError())
	assert.Equal(t, "GOOD", st.Stock.Ticker)
	assert.NotNil(t, st.Sentiment)
}

func TestRunQuery_Callbacks(t *testing.T) {
	fc := newFakeClient()
	fc.on("AAPL", &response{stock: okStock("AAPL", 189.5), sentiment: okSentiment("Positive")})

	var changes int32
	var settled []model.DashboardState
	var mu sync.Mutex
	o := New(fc, zap.NewNop(),
		WithOnChange(func() { atomic.AddInt32(&changes, 1) }),
		WithOnSettle(func(s model.DashboardState) {
			mu.Lock()
			defer mu.Unlock()
			settled = append(settled, s)
		}),
	)

	o.RunQuery(context.Background(), "AAPL")

	// start, stock, sentiment, settle
	assert.EqualValues(t, 4, atomic.LoadInt32(&changes))
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, settled, 1)
	assert.False(t, settled[0].Loading)
	assert.Equal(t, "AAPL", settled[0].Stock.Ticker)
}

func TestRunQuery_SupersededCycleDoesNotSettle(t *testing.T) {
	fc := newFakeClient()
	gate := make(chan struct{})
	fc.on("AAPL", &response{stock: okStock("AAPL", 1), sentiment: okSentiment("Positive"), stockGate: gate, sentGate: gate})
	fc.on("TSLA", &response{stock: okStock("TSLA", 2), sentiment: okSentiment("Neutral")})

	var mu sync.Mutex
	var settled []string
	o := New(fc, zap.NewNop(), WithOnSettle(func(s model.DashboardState) {
		mu.Lock()
		defer mu.Unlock()
		settled = append(settled, s.Symbol)
	}))

	aapl := runAsync(o, "AAPL")
	fc.waitStarted(t, "stock:AAPL", "sentiment:AAPL")
	o.RunQuery(context.Background(), "TSLA")
	close(gate)
	waitDone(t, aapl)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"TSLA"}, settled)
}

func TestRunQuery_WithMockClient(t *testing.T) {
	o := New(collector.NewMockClient(), zap.NewNop())

	require.True(t, o.RunQuery(context.Background(), "nvda"))

	st := o.State()
	require.NotNil(t, st.Stock)
	assert.Equal(t, "NVDA", st.Stock.Ticker)
	assert.NotNil(t, st.Sentiment)
	assert.False(t, st.HasError())
}
