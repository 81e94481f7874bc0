// Package export writes the full, unpaginated result of a query engine as
// an Arrow IPC stream.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/lakeview/query"
)

// DefaultBatchSize is the number of rows per Arrow record batch.
const DefaultBatchSize = 8192

// ErrNoQuery is returned when the source has nothing to export.
var ErrNoQuery = errors.New("nothing to export")

// Source provides the query text to export. *query.Engine implements it.
type Source interface {
	SelectQuery(paginated bool) string
}

// Options tunes WriteArrow.
type Options struct {
	// Allocator for Arrow buffers.
	// OPTIONAL: memory.DefaultAllocator if nil.
	Allocator memory.Allocator
	// BatchSize is the number of rows per record batch.
	// OPTIONAL: DefaultBatchSize if <= 0.
	BatchSize int
}

// WriteArrow runs src.SelectQuery(false) on a connection from c and writes
// every row to w as an Arrow IPC stream. Column types are inferred from
// the first non-null value of each column; columns that are entirely null
// become strings. Returns the number of rows written.
func WriteArrow(ctx context.Context, src Source, c query.Connector, w io.Writer, opts Options) (int, error) {
	text := src.SelectQuery(false)
	if text == "" {
		return 0, ErrNoQuery
	}

	conn, err := c.Conn(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	res, err := conn.Query(ctx, text)
	if err != nil {
		return 0, &query.ExecutionError{Query: text, Err: err}
	}
	return WriteResult(res, w, opts)
}

// WriteResult writes an already materialized result.
func WriteResult(res *query.Result, w io.Writer, opts Options) (int, error) {
	mem := opts.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	schema := InferSchema(res)
	writer := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	defer writer.Close()

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for start := 0; start < len(res.Rows); start += batch {
		end := min(start+batch, len(res.Rows))
		for r, row := range res.Rows[start:end] {
			for i, f := range schema.Fields() {
				var v any
				if i < len(row) {
					v = row[i]
				}
				if err := appendValue(builder.Field(i), f.Type, v); err != nil {
					return start, fmt.Errorf("row %d, column %q: %w", start+r, f.Name, err)
				}
			}
		}
		record := builder.NewRecord()
		err := writer.Write(record)
		record.Release()
		if err != nil {
			return start, fmt.Errorf("failed to write IPC record: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return len(res.Rows), fmt.Errorf("failed to close IPC writer: %w", err)
	}
	return len(res.Rows), nil
}

// InferSchema derives an Arrow schema from the result columns. All fields
// are nullable.
func InferSchema(res *query.Result) *arrow.Schema {
	fields := make([]arrow.Field, len(res.Columns))
	for i, name := range res.Columns {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
		for _, row := range res.Rows {
			if i < len(row) && row[i] != nil {
				fields[i].Type = arrowType(row[i])
				break
			}
		}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(v any) arrow.DataType {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return arrow.PrimitiveTypes.Int64
	case uint64:
		return arrow.PrimitiveTypes.Uint64
	case float32, float64:
		return arrow.PrimitiveTypes.Float64
	case bool:
		return arrow.FixedWidthTypes.Boolean
	case time.Time:
		return arrow.FixedWidthTypes.Timestamp_us
	case []byte:
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

func appendValue(b array.Builder, typ arrow.DataType, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch b := b.(type) {
	case *array.Int64Builder:
		n, ok := asInt64(v)
		if !ok {
			return fmt.Errorf("expected integer, got %T", v)
		}
		b.Append(n)
	case *array.Uint64Builder:
		n, ok := v.(uint64)
		if !ok {
			return fmt.Errorf("expected uint64, got %T", v)
		}
		b.Append(n)
	case *array.Float64Builder:
		switch f := v.(type) {
		case float64:
			b.Append(f)
		case float32:
			b.Append(float64(f))
		default:
			return fmt.Errorf("expected float, got %T", v)
		}
	case *array.BooleanBuilder:
		bv, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		b.Append(bv)
	case *array.TimestampBuilder:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("expected time, got %T", v)
		}
		b.Append(arrow.Timestamp(t.UnixMicro()))
	case *array.BinaryBuilder:
		raw, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("expected bytes, got %T", v)
		}
		b.Append(raw)
	case *array.StringBuilder:
		b.Append(stringify(v))
	default:
		return fmt.Errorf("unsupported arrow type %s", typ)
	}
	return nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case *big.Int:
		return s.String()
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}
