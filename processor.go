package opentoken

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Processor orchestrates tokenization over a stream of records: for each
// record, for each rule in the catalog, attempt generation, run the result
// through the transformer chain, and hand it to the sink.
//
// The processor keeps no cross-record state; records may be handled in any
// order and in parallel. The catalog and registry are read-only, and every
// transformer is required to be safe for concurrent use.
type Processor struct {
	generator *Generator
	chain     Chain
	metrics   *Metrics
}

// NewProcessor builds a processor over a catalog and transformer chain.
// An empty chain emits base tokens unchanged.
func NewProcessor(catalog *Catalog, chain Chain) *Processor {
	p := &Processor{generator: NewGenerator(catalog), chain: chain}
	emitProcessorCreated(context.Background(), catalog.Version(), len(catalog.RuleIDs()), len(chain))
	return p
}

// WithMetrics attaches a metrics collector. Returns the processor for
// chaining.
func (p *Processor) WithMetrics(m *Metrics) *Processor {
	p.metrics = m
	return p
}

// CatalogVersion reports which rule set this processor emits tokens for,
// so callers can record it for reproducibility audits.
func (p *Processor) CatalogVersion() string {
	return p.generator.Catalog().Version()
}

// RuleIDs returns the rule ids of the underlying catalog in stable order.
func (p *Processor) RuleIDs() []string {
	return p.generator.Catalog().RuleIDs()
}

// Process consumes the source to exhaustion on the calling goroutine.
// Skips are silent per (record, rule); source and sink errors abort the run
// and propagate unchanged. On context cancellation the current record
// completes and the partial output remains valid.
func (p *Processor) Process(ctx context.Context, src RecordSource, sink RecordSink) error {
	start := time.Now()
	var records int64

	runErr := func() error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			record, err := src.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := p.processRecord(ctx, record, sink.Write); err != nil {
				return err
			}
			records++
		}
	}()

	emitRunComplete(ctx, p.CatalogVersion(), records, 1, time.Since(start), runErr)
	return runErr
}

// ProcessConcurrent fans records out to a worker pool. Each record is
// handled to completion by exactly one worker; sink writes are serialized
// behind a mutex so no torn output records can occur. workers <= 1 degrades
// to sequential processing.
func (p *Processor) ProcessConcurrent(ctx context.Context, src RecordSource, sink RecordSink, workers int) error {
	if workers <= 1 {
		return p.Process(ctx, src, sink)
	}

	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		sinkMu   sync.Mutex
		failOnce sync.Once
		workErr  error
	)
	fail := func(err error) {
		failOnce.Do(func() {
			workErr = err
			cancel()
		})
	}
	write := func(out OutputRecord) error {
		sinkMu.Lock()
		defer sinkMu.Unlock()
		return sink.Write(out)
	}

	records := make(chan PersonRecord, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range records {
				if err := p.processRecord(ctx, record, write); err != nil {
					fail(err)
					return
				}
			}
		}()
	}

	var count int64
	var readErr error
feed:
	for {
		record, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			readErr = err
			break
		}
		select {
		case records <- record:
			count++
		case <-ctx.Done():
			break feed
		}
	}
	close(records)
	wg.Wait()

	err := workErr
	if err == nil {
		err = readErr
	}
	emitRunComplete(ctx, p.CatalogVersion(), count, workers, time.Since(start), err)
	return err
}

// processRecord runs every catalog rule against one record. Rules are
// independent: a skip for one rule never suppresses the others.
func (p *Processor) processRecord(ctx context.Context, record PersonRecord, emit func(OutputRecord) error) error {
	tokens, skips := 0, 0
	for _, ruleID := range p.generator.Catalog().RuleIDs() {
		base, ok, err := p.generator.Generate(record, ruleID)
		if err != nil {
			return err
		}
		if !ok {
			skips++
			p.metrics.countSkip(ruleID)
			emitRuleSkipped(ctx, record.ID, ruleID)
			continue
		}

		final, err := p.chain.Apply(base)
		if err != nil {
			return err
		}
		if err := emit(OutputRecord{RecordID: record.ID, RuleID: ruleID, Token: final}); err != nil {
			return err
		}
		tokens++
		p.metrics.countToken(ruleID, final)
	}

	p.metrics.countRecord()
	emitRecordProcessed(ctx, record.ID, tokens, skips)
	return nil
}

// Metrics counts expected skips and emitted tokens per rule, and estimates
// how many distinct final tokens a run produced. Collection is advisory
// observability only; it never alters output. Safe for concurrent use; all
// methods are nil-receiver tolerant so an unattached collector costs only a
// nil check.
type Metrics struct {
	mu        sync.Mutex
	records   int64
	generated map[string]int64
	skipped   map[string]int64
	distinct  map[uint64]struct{}
}

// NewMetrics returns an empty collector.
func NewMetrics() *Metrics {
	return &Metrics{
		generated: make(map[string]int64),
		skipped:   make(map[string]int64),
		distinct:  make(map[uint64]struct{}),
	}
}

func (m *Metrics) countRecord() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.records++
	m.mu.Unlock()
}

func (m *Metrics) countToken(ruleID, token string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.generated[ruleID]++
	m.distinct[xxhash.Sum64String(token)] = struct{}{}
	m.mu.Unlock()
}

func (m *Metrics) countSkip(ruleID string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.skipped[ruleID]++
	m.mu.Unlock()
}

// MetricsSnapshot is a point-in-time copy of collected counts.
type MetricsSnapshot struct {
	Records        int64
	Generated      map[string]int64
	Skipped        map[string]int64
	DistinctTokens int
}

// Snapshot copies the current counts.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		Records:        m.records,
		Generated:      make(map[string]int64, len(m.generated)),
		Skipped:        make(map[string]int64, len(m.skipped)),
		DistinctTokens: len(m.distinct),
	}
	for k, v := range m.generated {
		snap.Generated[k] = v
	}
	for k, v := range m.skipped {
		snap.Skipped[k] = v
	}
	return snap
}
