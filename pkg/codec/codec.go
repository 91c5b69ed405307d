package codec

import (
	"bytes"
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/log"
	"github.com/lk2023060901/archive-go/pkg/metrics"
	"github.com/lk2023060901/archive-go/pkg/util/conc"
)

const tracerName = "archive-go/codec"

// Marshal saves items into a new document of format f.
func Marshal(ctx context.Context, f Format, items ...any) ([]byte, error) {
	ctx, span := startSpan(ctx, "Marshal", f)
	defer span.End()

	start := time.Now()
	var buf bytes.Buffer
	err := save(f, &buf, items)
	observe(ctx, span, f, archive.Saving, start, buf.Len(), err)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal loads items from data. The whole document must be consumed
// by items, any group left open is an error.
func Unmarshal(ctx context.Context, f Format, data []byte, items ...any) error {
	ctx, span := startSpan(ctx, "Unmarshal", f)
	defer span.End()

	start := time.Now()
	err := load(f, data, items)
	observe(ctx, span, f, archive.Loading, start, len(data), err)
	return err
}

func save(f Format, buf *bytes.Buffer, items []any) error {
	out, err := NewOutput(f, buf)
	if err != nil {
		return err
	}
	if err := out.Save(items...); err != nil {
		return err
	}
	return out.Close()
}

func load(f Format, data []byte, items []any) error {
	in, err := NewInput(f, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if err := in.Load(items...); err != nil {
		return err
	}
	return in.Close()
}

// MarshalAll renders items in every format concurrently, one archive per
// task. Results follow the order of formats. A nil pool runs every task
// on its own goroutine.
func MarshalAll(ctx context.Context, pool *conc.Pool[[]byte], formats []Format, items ...any) ([][]byte, error) {
	futures := make([]*conc.Future[[]byte], 0, len(formats))
	for _, f := range formats {
		task := func() ([]byte, error) {
			return Marshal(ctx, f, items...)
		}
		if pool == nil {
			futures = append(futures, conc.Go(task))
		} else {
			futures = append(futures, pool.Submit(task))
		}
	}
	if err := conc.AwaitAll(futures...); err != nil {
		return nil, err
	}
	docs := make([][]byte, len(futures))
	for i, future := range futures {
		docs[i] = future.Value()
	}
	return docs, nil
}

func startSpan(ctx context.Context, op string, f Format) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return otel.Tracer(tracerName).Start(ctx, op, trace.WithAttributes(attribute.String("format", f.String())))
}

func observe(ctx context.Context, span trace.Span, f Format, d archive.Direction, start time.Time, size int, err error) {
	format, direction := f.String(), d.String()
	metrics.ArchiveLatency.WithLabelValues(format, direction).Observe(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.ArchiveOperations.WithLabelValues(format, direction, metrics.FailLabel).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Ctx(ctx).With().WithRateGroup("codec.failure", 1, 10).RatedWarn(1, "archive operation failed",
			log.FieldFormat(format),
			log.FieldDirection(direction),
			zap.Error(err))
		return
	}
	metrics.ArchiveOperations.WithLabelValues(format, direction, metrics.SuccessLabel).Inc()
	metrics.ArchiveDocumentBytes.WithLabelValues(format, direction).Observe(float64(size))
	span.SetAttributes(attribute.Int("bytes", size))
}
