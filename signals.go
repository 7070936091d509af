package opentoken

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for tokenization events. Fields never carry attribute values,
// secrets, or signatures; record and rule ids are the only identifiers.
var (
	SignalProcessorCreated = capitan.NewSignal("opentoken.processor.created", "Processor instantiated")
	SignalRuleSkipped      = capitan.NewSignal("opentoken.rule.skipped", "Rule skipped for a record")
	SignalRecordProcessed  = capitan.NewSignal("opentoken.record.processed", "Record finished all rules")
	SignalRunComplete      = capitan.NewSignal("opentoken.run.complete", "Processing run finished")
)

// Keys for typed event data.
var (
	KeyCatalogVersion = capitan.NewStringKey("catalog_version")
	KeyRecordID       = capitan.NewStringKey("record_id")
	KeyRuleID         = capitan.NewStringKey("rule_id")
	KeyRuleCount      = capitan.NewIntKey("rule_count")
	KeyChainLength    = capitan.NewIntKey("chain_length")
	KeyTokenCount     = capitan.NewIntKey("token_count")
	KeySkipCount      = capitan.NewIntKey("skip_count")
	KeyRecordCount    = capitan.NewIntKey("record_count")
	KeyWorkerCount    = capitan.NewIntKey("worker_count")
	KeyDuration       = capitan.NewDurationKey("duration")
	KeyError          = capitan.NewErrorKey("error")
)

// emitProcessorCreated emits an event when a processor is created.
func emitProcessorCreated(ctx context.Context, version string, rules, chainLen int) {
	capitan.Emit(ctx, SignalProcessorCreated,
		KeyCatalogVersion.Field(version),
		KeyRuleCount.Field(rules),
		KeyChainLength.Field(chainLen),
	)
}

// emitRuleSkipped emits an event when a rule produces no token for a record.
func emitRuleSkipped(ctx context.Context, recordID, ruleID string) {
	capitan.Emit(ctx, SignalRuleSkipped,
		KeyRecordID.Field(recordID),
		KeyRuleID.Field(ruleID),
	)
}

// emitRecordProcessed emits an event when all rules have run for a record.
func emitRecordProcessed(ctx context.Context, recordID string, tokens, skips int) {
	capitan.Emit(ctx, SignalRecordProcessed,
		KeyRecordID.Field(recordID),
		KeyTokenCount.Field(tokens),
		KeySkipCount.Field(skips),
	)
}

// emitRunComplete emits an event when a processing run finishes.
func emitRunComplete(ctx context.Context, version string, records int64, workers int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyCatalogVersion.Field(version),
		KeyRecordCount.Field(int(records)),
		KeyWorkerCount.Field(workers),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalRunComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalRunComplete, fields...)
	}
}
