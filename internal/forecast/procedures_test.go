package forecast

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/fuelcast/fuelcast/internal/jobs"
)

type fakeRows struct {
	fields []pgconn.FieldDescription
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *fakeRows) Close() { r.closed = true }
func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("CALL") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) Scan(dest ...any) error { return errors.New("scan not supported") }
func (r *fakeRows) RawValues() [][]byte { return nil }
func (r *fakeRows) Conn() *pgx.Conn { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.idx-1], nil
}

type fakeConn struct {
	rows    pgx.Rows
	err     error
	panics  bool
	queries []string
	closed  bool
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.queries = append(c.queries, sql)
	if c.panics {
		panic("driver exploded")
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.rows, nil
}

func (c *fakeConn) Close(ctx context.Context) error {
	c.closed = true
	return nil
}

func connectorFor(conn *fakeConn) Connector {
	return func(ctx context.Context) (Conn, error) {
		return conn, nil
	}
}

func palProcedures(t *testing.T) map[string]Procedure {
	t.Helper()
	procs, err := ProceduresFor(ProfilePAL)
	require.NoError(t, err)
	return procs
}

func TestProcedureStatements(t *testing.T) {
	procs := palProcedures(t)
	assert.Equal(t,
		"CALL HANA_ML_CONS_PAL_MASSIVE_ADDITIVE_MODEL_PREDICT("+
			"OUT_0_HANA_ML_CONS_PAL_MASSIVE_ADDITIVE_MODEL_PREDICT => NULL, "+
			"OUT_1_HANA_ML_CONS_PAL_MASSIVE_ADDITIVE_MODEL_PREDICT => NULL, "+
			"OUT_2_HANA_ML_CONS_PAL_MASSIVE_ADDITIVE_MODEL_PREDICT => NULL)",
		procs[ActionPredict].Statement())
	assert.Len(t, procs[ActionTrain].Outputs, 2)

	cons, err := ProceduresFor("cons")
	require.NoError(t, err)
	assert.Equal(t, "CALL CONS_PREDICT()", cons[ActionPredict].Statement())
	assert.Equal(t, "CALL CONS_TRAIN()", cons[ActionTrain].Statement())

	_, err = ProceduresFor("arima")
	assert.Error(t, err)
}

func TestRunnerSuccess(t *testing.T) {
	rows := &fakeRows{
		fields: []pgconn.FieldDescription{{Name: "status"}},
		data:   [][]any{{"OK"}},
	}
	conn := &fakeConn{rows: rows}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	runner := NewRunner(connectorFor(conn), palProcedures(t), nil, metrics)

	assert.True(t, runner.Run(context.Background(), ActionTrain))
	require.Len(t, conn.queries, 1)
	assert.Contains(t, conn.queries[0], "HANA_ML_CONS_PAL_MASSIVE_ADDITIVE_MODEL_ANALYSIS")
	assert.True(t, conn.closed)
	assert.True(t, rows.closed)
}

func TestRunnerQueryErrorReturnsFalse(t *testing.T) {
	conn := &fakeConn{err: errors.New("insufficient privilege")}
	runner := NewRunner(connectorFor(conn), palProcedures(t), nil, nil)

	assert.False(t, runner.Run(context.Background(), ActionPredict))
	assert.True(t, conn.closed)
}

func TestRunnerPanicReturnsFalse(t *testing.T) {
	conn := &fakeConn{panics: true}
	runner := NewRunner(connectorFor(conn), palProcedures(t), nil, nil)

	assert.NotPanics(t, func() {
		assert.False(t, runner.Run(context.Background(), ActionPredict))
	})
}

func TestRunnerRowsErrorReturnsFalse(t *testing.T) {
	conn := &fakeConn{rows: &fakeRows{err: errors.New("out table overflow")}}
	runner := NewRunner(connectorFor(conn), palProcedures(t), nil, nil)

	assert.False(t, runner.Run(context.Background(), ActionPredict))
}

func TestRunnerConnectErrorReturnsFalse(t *testing.T) {
	connect := func(ctx context.Context) (Conn, error) {
		return nil, errors.New("connection refused")
	}
	runner := NewRunner(connect, palProcedures(t), nil, nil)

	assert.False(t, runner.Run(context.Background(), ActionTrain))
}

func TestRunnerUnknownActionReturnsFalse(t *testing.T) {
	conn := &fakeConn{rows: &fakeRows{}}
	runner := NewRunner(connectorFor(conn), palProcedures(t), nil, nil)

	assert.False(t, runner.Run(context.Background(), "Drop_Tables"))
	assert.Empty(t, conn.queries)
}
