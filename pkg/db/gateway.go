package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clanbot/internal/config"
	"github.com/smallbiznis/clanbot/pkg/log/ctxlogger"
	"github.com/smallbiznis/clanbot/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Executor is the parameterized CRUD surface shared by the Gateway and its transactions.
// Filters are trusted templates with ? placeholders; every value travels through params.
type Executor interface {
	Select(ctx context.Context, dest any, table string, columns []string, filter string, params []any, opts ...SelectOption) error
	Insert(ctx context.Context, table string, fields map[string]any) (int64, error)
	Update(ctx context.Context, table string, fields map[string]any, filter string, params ...any) (int64, error)
	Delete(ctx context.Context, table string, filter string, params ...any) (int64, error)
}

type selectOptions struct {
	orderBy string
	desc    bool
	limit   int
}

// SelectOption narrows a Select.
type SelectOption func(*selectOptions)

// OrderBy sorts the result by a single column.
func OrderBy(column string, desc bool) SelectOption {
	return func(o *selectOptions) {
		o.orderBy = column
		o.desc = desc
	}
}

// Limit caps the number of returned rows.
func Limit(n int) SelectOption {
	return func(o *selectOptions) {
		o.limit = n
	}
}

var _ Executor = (*Gateway)(nil)

// Gateway runs generic CRUD primitives over the pooled database handle.
type Gateway struct {
	db             *gorm.DB
	node           *snowflake.Node
	log            *zap.Logger
	metrics        *telemetry.Metrics
	acquireTimeout time.Duration
	inTx           bool
}

type GatewayParams struct {
	fx.In

	DB      *gorm.DB
	Node    *snowflake.Node
	Log     *zap.Logger
	Config  config.Config
	Metrics *telemetry.Metrics `optional:"true"`
}

func NewGateway(p GatewayParams) *Gateway {
	return &Gateway{
		db:             p.DB,
		node:           p.Node,
		log:            p.Log.Named("db.gateway"),
		metrics:        p.Metrics,
		acquireTimeout: p.Config.AcquireTimeout(),
	}
}

// Select loads matching rows into dest, which must point to a slice.
func (g *Gateway) Select(ctx context.Context, dest any, table string, columns []string, filter string, params []any, opts ...SelectOption) error {
	if err := validateIdentifiers(table, columns...); err != nil {
		return &StorageError{Op: "select", Table: table, Err: err}
	}

	options := selectOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.orderBy != "" {
		if err := validateIdentifiers(options.orderBy); err != nil {
			return &StorageError{Op: "select", Table: table, Err: err}
		}
	}

	ctx, cancel := g.withAcquireTimeout(ctx)
	defer cancel()
	start := time.Now()

	stmt := g.db.WithContext(ctx).Table(table)
	if len(columns) > 0 {
		stmt = stmt.Select(columns)
	}
	if filter != "" {
		stmt = stmt.Where(filter, params...)
	}
	if options.orderBy != "" {
		stmt = stmt.Order(clause.OrderByColumn{Column: clause.Column{Name: options.orderBy}, Desc: options.desc})
	}
	if options.limit > 0 {
		stmt = stmt.Limit(options.limit)
	}

	err := stmt.Find(dest).Error
	return g.finish(ctx, "select", table, start, err)
}

// Insert writes a row and returns its id. A snowflake id is assigned when fields carry none.
func (g *Gateway) Insert(ctx context.Context, table string, fields map[string]any) (int64, error) {
	if len(fields) == 0 {
		return 0, &StorageError{Op: "insert", Table: table, Err: errors.New("empty_fields")}
	}
	if err := validateIdentifiers(table, keys(fields)...); err != nil {
		return 0, &StorageError{Op: "insert", Table: table, Err: err}
	}

	row := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		row[k] = v
	}

	var id int64
	switch v := row["id"].(type) {
	case int64:
		id = v
	case snowflake.ID:
		id = v.Int64()
		row["id"] = id
	case nil:
		id = g.node.Generate().Int64()
		row["id"] = id
	default:
		return 0, &StorageError{Op: "insert", Table: table, Err: fmt.Errorf("unsupported id type %T", v)}
	}

	ctx, cancel := g.withAcquireTimeout(ctx)
	defer cancel()
	start := time.Now()

	err := g.db.WithContext(ctx).Table(table).Create(row).Error
	if err := g.finish(ctx, "insert", table, start, err); err != nil {
		return 0, err
	}
	return id, nil
}

// Update applies fields to every row matching filter and returns the affected count.
func (g *Gateway) Update(ctx context.Context, table string, fields map[string]any, filter string, params ...any) (int64, error) {
	if len(fields) == 0 {
		return 0, &StorageError{Op: "update", Table: table, Err: errors.New("empty_fields")}
	}
	if filter == "" {
		return 0, &StorageError{Op: "update", Table: table, Err: gorm.ErrMissingWhereClause}
	}
	if err := validateIdentifiers(table, keys(fields)...); err != nil {
		return 0, &StorageError{Op: "update", Table: table, Err: err}
	}

	ctx, cancel := g.withAcquireTimeout(ctx)
	defer cancel()
	start := time.Now()

	result := g.db.WithContext(ctx).Table(table).Where(filter, params...).Updates(fields)
	if err := g.finish(ctx, "update", table, start, result.Error); err != nil {
		return 0, err
	}
	return result.RowsAffected, nil
}

// Delete removes every row matching filter and returns the affected count.
func (g *Gateway) Delete(ctx context.Context, table string, filter string, params ...any) (int64, error) {
	if filter == "" {
		return 0, &StorageError{Op: "delete", Table: table, Err: gorm.ErrMissingWhereClause}
	}
	if err := validateIdentifiers(table); err != nil {
		return 0, &StorageError{Op: "delete", Table: table, Err: err}
	}

	ctx, cancel := g.withAcquireTimeout(ctx)
	defer cancel()
	start := time.Now()

	result := g.db.WithContext(ctx).Exec(fmt.Sprintf("DELETE FROM %s WHERE %s", table, filter), params...)
	if err := g.finish(ctx, "delete", table, start, result.Error); err != nil {
		return 0, err
	}
	return result.RowsAffected, nil
}

// Tx runs fn inside a single transaction. Any error returned by fn rolls it back.
func (g *Gateway) Tx(ctx context.Context, fn func(tx Executor) error) error {
	if g.inTx {
		return fn(g)
	}

	ctx, cancel := g.withAcquireTimeout(ctx)
	defer cancel()

	var fnErr error
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&Gateway{
			db:      tx,
			node:    g.node,
			log:     g.log,
			metrics: g.metrics,
			inTx:    true,
		})
		return fnErr
	})
	if err == nil {
		g.metrics.ObserveTransaction("commit")
		return nil
	}

	g.metrics.ObserveTransaction("rollback")
	if fnErr != nil {
		return fnErr
	}

	storageErr := &StorageError{Op: "commit", Table: "", Err: err}
	ctxlogger.WithContext(ctx, g.log).Error("transaction failed", zap.Error(err))
	return storageErr
}

func (g *Gateway) finish(ctx context.Context, op, table string, start time.Time, err error) error {
	elapsed := time.Since(start)
	if err == nil {
		g.metrics.ObserveQuery(op, table, "ok", elapsed)
		return nil
	}

	storageErr := &StorageError{Op: op, Table: table, Err: err}
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("table", table),
		zap.Duration("elapsed", elapsed),
		zap.Error(err),
	}
	log := ctxlogger.WithContext(ctx, g.log)
	if storageErr.Duplicate() {
		g.metrics.ObserveQuery(op, table, "duplicate", elapsed)
		log.Debug("unique constraint violated", fields...)
	} else {
		g.metrics.ObserveQuery(op, table, "error", elapsed)
		log.Error("storage operation failed", fields...)
	}
	return storageErr
}

func (g *Gateway) withAcquireTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.acquireTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.acquireTimeout)
}

func validateIdentifiers(table string, columns ...string) error {
	if !identifierPattern.MatchString(table) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, table)
	}
	for _, column := range columns {
		if !identifierPattern.MatchString(column) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, column)
		}
	}
	return nil
}

func keys(fields map[string]any) []string {
	out := make([]string, 0, len(fields))
	for k := range fields {
		out = append(out, k)
	}
	return out
}
