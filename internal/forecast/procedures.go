package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	jobmetrics "github.com/fuelcast/fuelcast/internal/jobs"
)

// Procedure profiles select which stored procedures back the two actions.
const (
	ProfilePAL  = "pal"
	ProfileCons = "cons"
)

// Procedure is a stored procedure invoked verbatim by name. Outputs lists the
// positional OUT parameters; nothing is bound from the caller.
type Procedure struct {
	Name    string
	Outputs []string
}

// Statement renders the CALL statement. OUT parameters are passed by name with
// a NULL placeholder.
func (p Procedure) Statement() string {
	if len(p.Outputs) == 0 {
		return "CALL " + p.Name + "()"
	}
	args := make([]string, 0, len(p.Outputs))
	for _, out := range p.Outputs {
		args = append(args, out+" => NULL")
	}
	return "CALL " + p.Name + "(" + strings.Join(args, ", ") + ")"
}

func palProcedure(name string, outputs int) Procedure {
	p := Procedure{Name: name}
	for i := 0; i < outputs; i++ {
		p.Outputs = append(p.Outputs, fmt.Sprintf("OUT_%d_%s", i, name))
	}
	return p
}

// ProceduresFor returns the action → procedure table for a profile.
func ProceduresFor(profile string) (map[string]Procedure, error) {
	switch strings.ToLower(strings.TrimSpace(profile)) {
	case "", ProfilePAL:
		return map[string]Procedure{
			ActionPredict: palProcedure("HANA_ML_CONS_PAL_MASSIVE_ADDITIVE_MODEL_PREDICT", 3),
			ActionTrain:   palProcedure("HANA_ML_CONS_PAL_MASSIVE_ADDITIVE_MODEL_ANALYSIS", 2),
		}, nil
	case ProfileCons:
		return map[string]Procedure{
			ActionPredict: {Name: "CONS_PREDICT"},
			ActionTrain:   {Name: "CONS_TRAIN"},
		}, nil
	default:
		return nil, fmt.Errorf("forecast: unknown procedure profile %q", profile)
	}
}

// Conn is the part of *pgx.Conn the runner needs.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close(ctx context.Context) error
}

// Connector opens a fresh connection for a single procedure call.
type Connector func(ctx context.Context) (Conn, error)

// PgxConnector connects with pgx using the supplied DSN.
func PgxConnector(dsn string) Connector {
	return func(ctx context.Context) (Conn, error) {
		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// Runner executes the action procedures. Every failure mode collapses into a
// false result; errors are only logged.
type Runner struct {
	connect    Connector
	procedures map[string]Procedure
	logger     *slog.Logger
	metrics    *jobmetrics.Metrics
}

// NewRunner builds a Runner. A nil logger falls back to slog.Default.
func NewRunner(connect Connector, procedures map[string]Procedure, logger *slog.Logger, metrics *jobmetrics.Metrics) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		connect:    connect,
		procedures: procedures,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run executes the procedure bound to action and reports success.
func (r *Runner) Run(ctx context.Context, action string) (ok bool) {
	logger := r.logger.With(slog.String("action", action))
	tracker := r.metrics.Track(action)
	var runErr error
	defer func() {
		if rec := recover(); rec != nil {
			runErr = fmt.Errorf("forecast: procedure panic: %v", rec)
			logger.Error("procedure call failed", slog.Any("error", runErr))
			ok = false
		}
		_ = tracker.End(runErr)
	}()

	// Procedures have no deadline of their own and run to completion even
	// when the caller gives up.
	runErr = r.call(context.WithoutCancel(ctx), logger, action)
	if runErr != nil {
		logger.Error("procedure call failed", slog.Any("error", runErr))
		return false
	}
	return true
}

func (r *Runner) call(ctx context.Context, logger *slog.Logger, action string) error {
	proc, found := r.procedures[action]
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	if r.connect == nil {
		return fmt.Errorf("forecast: no connector configured")
	}
	conn, err := r.connect(ctx)
	if err != nil {
		return fmt.Errorf("forecast: connect: %w", err)
	}
	defer func() {
		if err := conn.Close(ctx); err != nil {
			logger.Warn("close procedure connection", slog.Any("error", err))
		}
	}()

	stmt := proc.Statement()
	logger.Info("running procedure", slog.String("procedure", proc.Name))
	rows, err := conn.Query(ctx, stmt)
	if err != nil {
		return fmt.Errorf("forecast: call %s: %w", proc.Name, err)
	}
	result, err := collectResult(rows)
	if err != nil {
		return fmt.Errorf("forecast: call %s: %w", proc.Name, err)
	}
	logger.Info("procedure finished",
		slog.String("procedure", proc.Name),
		slog.Int("rows", len(result)),
		slog.Any("result", result),
	)
	return nil
}

func collectResult(rows pgx.Rows) ([]map[string]any, error) {
	defer rows.Close()
	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(values))
		for i, v := range values {
			name := fmt.Sprintf("col%d", i)
			if i < len(fields) {
				name = fields[i].Name
			}
			row[name] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
