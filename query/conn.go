package query

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// Connector hands out a connection to the embedded engine. The engine
// acquires one connection per Update and closes it on every exit path.
type Connector interface {
	Conn(ctx context.Context) (Conn, error)
}

// Conn executes query text and returns all rows.
type Conn interface {
	Query(ctx context.Context, text string) (*Result, error)
	Close() error
}

// Result is a fully materialized result set. Each row holds one value per
// column, in column order.
type Result struct {
	Columns []string
	Rows    [][]any
}

// ExecutionError reports that the embedded engine rejected generated query
// text. It is recorded by Update and surfaced through Change.Err and
// Engine.LastError, never returned from setters.
type ExecutionError struct {
	Query string
	Err   error
}

func (e *ExecutionError) Error() string {
	return "query execution failed: " + e.Err.Error()
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// toInt converts a scalar returned by a driver (COUNT(*) and friends).
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		if n > math.MaxInt {
			return 0, fmt.Errorf("count %d overflows int", n)
		}
		return int(n), nil
	case float64:
		return int(n), nil
	case *big.Int:
		if !n.IsInt64() {
			return 0, fmt.Errorf("count %s overflows int", n)
		}
		return int(n.Int64()), nil
	case string:
		return strconv.Atoi(n)
	case []byte:
		return strconv.Atoi(string(n))
	default:
		return 0, fmt.Errorf("unexpected count value %v (%T)", v, v)
	}
}
