package calculator

import (
	"context"

	"github.com/charithe/calcengine/pkg/expr"
	"github.com/charithe/calcengine/pkg/session"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.uber.org/zap"
)

var (
	keyMode     = tag.MustNewKey("mode")
	keyKind     = tag.MustNewKey("kind")
	keyCategory = tag.MustNewKey("category")

	mKeystrokes  = stats.Int64("calcengine/keystrokes", "Number of input events applied to sessions", stats.UnitDimensionless)
	mCommits     = stats.Int64("calcengine/commits", "Number of calculations committed to history", stats.UnitDimensionless)
	mFailures    = stats.Int64("calcengine/failures", "Number of evaluations that failed on equals", stats.UnitDimensionless)
	mSessions    = stats.Int64("calcengine/sessions", "Number of sessions created", stats.UnitDimensionless)
	mConversions = stats.Int64("calcengine/conversions", "Number of unit conversions", stats.UnitDimensionless)
)

// Views are the OpenCensus views over the calculator measures.
var Views = []*view.View{
	{
		Name:        "calcengine/keystrokes_total",
		Measure:     mKeystrokes,
		Description: "Input events by kind",
		TagKeys:     []tag.Key{keyKind},
		Aggregation: view.Count(),
	},
	{
		Name:        "calcengine/commits_total",
		Measure:     mCommits,
		Description: "Committed calculations by mode",
		TagKeys:     []tag.Key{keyMode},
		Aggregation: view.Count(),
	},
	{
		Name:        "calcengine/failures_total",
		Measure:     mFailures,
		Description: "Failed evaluations by mode",
		TagKeys:     []tag.Key{keyMode},
		Aggregation: view.Count(),
	},
	{
		Name:        "calcengine/sessions_total",
		Measure:     mSessions,
		Description: "Sessions created",
		Aggregation: view.Count(),
	},
	{
		Name:        "calcengine/conversions_total",
		Measure:     mConversions,
		Description: "Unit conversions by category",
		TagKeys:     []tag.Key{keyCategory},
		Aggregation: view.Count(),
	},
}

func record(ctx context.Context, key tag.Key, value string, m *stats.Int64Measure) {
	if err := stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(key, value)}, m.M(1)); err != nil {
		zap.S().Debugw("Failed to record measurement", "measure", m.Name(), "error", err)
	}
}

func kindOf(cmd session.Command) string {
	switch cmd.(type) {
	case session.Digit:
		return "digit"
	case session.Operator:
		return "operator"
	case session.Function:
		return "function"
	case session.Scientific:
		return "scientific"
	case session.Text:
		return "text"
	case session.RadixSwitch:
		return "radix"
	}
	return "unknown"
}

// sessionObserver feeds session events into the metrics and the log.
type sessionObserver struct {
	id     string
	logger *zap.SugaredLogger
}

func newSessionObserver(id string) *sessionObserver {
	return &sessionObserver{id: id, logger: zap.S().Named("session").With("session_id", id)}
}

func (o *sessionObserver) Committed(mode expr.Mode, entry session.Entry) {
	record(context.Background(), keyMode, mode.String(), mCommits)
	o.logger.Debugw("Committed", "mode", mode.String(), "expression", entry.Expression, "result", entry.Result)
}

func (o *sessionObserver) Failed(mode expr.Mode, input string, err error) {
	record(context.Background(), keyMode, mode.String(), mFailures)
	o.logger.Debugw("Evaluation failed", "mode", mode.String(), "input", input, "error", err)
}
