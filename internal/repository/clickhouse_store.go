package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"SynthFeed/internal/domain/models"
	domrepo "SynthFeed/internal/domain/repository"
	pkgch "SynthFeed/pkg/clickhouse"
	applogger "SynthFeed/pkg/logger"
)

// Tables hold one row per tick:
//
//	<group_column> LowCardinality(String), <timestamp> Int64,
//	<price> Array(Float64), <feature> Array(Float64)
//
// ordered by (group_column, timestamp). Every row of a group has arrays of
// the same length, and timestamps are unique within a group: reads page by
// timestamp order, so duplicates would make row positions ambiguous.

const (
	DefaultClickHouseTable       = "synthfeed.rows"
	DefaultClickHouseGroupColumn = "instrument"
	clickHouseInsertChunk        = 2000
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ClickHouseTable locates the dataset table.
type ClickHouseTable struct {
	Table        string
	GroupColumn  string
	QueryTimeout time.Duration
}

func (t *ClickHouseTable) normalize(keys DatasetKeys) error {
	if t.Table == "" {
		t.Table = DefaultClickHouseTable
	}
	if t.GroupColumn == "" {
		t.GroupColumn = DefaultClickHouseGroupColumn
	}
	if t.QueryTimeout <= 0 {
		t.QueryTimeout = 30 * time.Second
	}
	for _, id := range []string{t.Table, t.GroupColumn, keys.Price, keys.Timestamp} {
		if !identRe.MatchString(id) {
			return fmt.Errorf("invalid identifier %q", id)
		}
	}
	if keys.Feature != "" && !identRe.MatchString(keys.Feature) {
		return fmt.Errorf("invalid identifier %q", keys.Feature)
	}
	return nil
}

// SchemaStatements returns idempotent DDL creating the table for keys.
func (t ClickHouseTable) SchemaStatements(keys DatasetKeys) ([]string, error) {
	if err := t.normalize(keys); err != nil {
		return nil, err
	}
	var stmts []string
	if db, _, ok := strings.Cut(t.Table, "."); ok {
		stmts = append(stmts, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db))
	}
	cols := []string{
		fmt.Sprintf("%s LowCardinality(String)", t.GroupColumn),
		fmt.Sprintf("%s Int64", keys.Timestamp),
		fmt.Sprintf("%s Array(Float64)", keys.Price),
	}
	if keys.Feature != "" {
		cols = append(cols, fmt.Sprintf("%s Array(Float64)", keys.Feature))
	}
	stmts = append(stmts, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree ORDER BY (%s, %s)",
		t.Table, strings.Join(cols, ", "), t.GroupColumn, keys.Timestamp))
	return stmts, nil
}

func (t ClickHouseTable) selectColumns(keys DatasetKeys) string {
	cols := []string{fmt.Sprintf("toInt64(%s)", keys.Timestamp), keys.Price}
	if keys.Feature != "" {
		cols = append(cols, keys.Feature)
	}
	return strings.Join(cols, ", ")
}

// ClickHouseStore implements RowStore over the rows of one group in a table.
type ClickHouseStore struct {
	db        *sql.DB
	tbl       ClickHouseTable
	keys      DatasetKeys
	rows      int
	priceCols int
	featCols  int
	l         *applogger.Logger
}

// OpenClickHouseStore validates the table layout and loads the dimensions of
// the group named by keys.Group.
func OpenClickHouseStore(ctx context.Context, ch *pkgch.Client, tbl ClickHouseTable, keys DatasetKeys) (*ClickHouseStore, error) {
	if err := keys.Validate(); err != nil {
		return nil, fmt.Errorf("clickhouse store: %w", err)
	}
	if err := tbl.normalize(keys); err != nil {
		return nil, fmt.Errorf("clickhouse store: %w", err)
	}
	s := &ClickHouseStore{db: ch.DB(), tbl: tbl, keys: keys}
	if err := s.checkColumns(ctx); err != nil {
		return nil, err
	}
	if err := s.loadDims(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// SetLogger injects a structured logger.
func (s *ClickHouseStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseStore) checkColumns(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.tbl.QueryTimeout)
	defer cancel()

	q := "SELECT name, type FROM system.columns WHERE database = currentDatabase() AND table = ?"
	args := []interface{}{s.tbl.Table}
	if db, table, ok := strings.Cut(s.tbl.Table, "."); ok {
		q = "SELECT name, type FROM system.columns WHERE database = ? AND table = ?"
		args = []interface{}{db, table}
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("clickhouse %s: list columns: %w", s.tbl.Table, err)
	}
	defer rows.Close()

	types := make(map[string]string)
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return fmt.Errorf("clickhouse %s: scan column: %w", s.tbl.Table, err)
		}
		types[name] = typ
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("clickhouse %s: columns: %w", s.tbl.Table, err)
	}
	return checkColumnTypes(s.tbl, s.keys, types)
}

func checkColumnTypes(tbl ClickHouseTable, keys DatasetKeys, types map[string]string) error {
	if len(types) == 0 {
		return fmt.Errorf("clickhouse %s: table not found", tbl.Table)
	}
	want := map[string]func(string) bool{
		tbl.GroupColumn: func(t string) bool { return strings.Contains(t, "String") },
		keys.Timestamp: func(t string) bool {
			return strings.HasPrefix(t, "Int") || strings.HasPrefix(t, "UInt") || strings.HasPrefix(t, "DateTime")
		},
		keys.Price: func(t string) bool { return t == "Array(Float64)" },
	}
	if keys.Feature != "" {
		want[keys.Feature] = func(t string) bool { return t == "Array(Float64)" }
	}
	for col, ok := range want {
		typ, found := types[col]
		if !found {
			return fmt.Errorf("clickhouse %s: column %q not found", tbl.Table, col)
		}
		if !ok(typ) {
			return fmt.Errorf("clickhouse %s: column %q has unsupported type %s", tbl.Table, col, typ)
		}
	}
	return nil
}

func (s *ClickHouseStore) loadDims(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.tbl.QueryTimeout)
	defer cancel()

	var count, distinct uint64
	q := fmt.Sprintf("SELECT count(), uniqExact(%s) FROM %s WHERE %s = ?", s.keys.Timestamp, s.tbl.Table, s.tbl.GroupColumn)
	if err := s.db.QueryRowContext(ctx, q, s.keys.Group).Scan(&count, &distinct); err != nil {
		return fmt.Errorf("clickhouse %s: count rows: %w", s.tbl.Table, err)
	}
	if err := checkRowCounts(s.tbl, s.keys, count, distinct); err != nil {
		return err
	}
	s.rows = int(count)

	widths := fmt.Sprintf("length(%s)", s.keys.Price)
	if s.keys.Feature != "" {
		widths += fmt.Sprintf(", length(%s)", s.keys.Feature)
	}
	q = fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1", widths, s.tbl.Table, s.tbl.GroupColumn)
	var pc, fc uint64
	dest := []interface{}{&pc}
	if s.keys.Feature != "" {
		dest = append(dest, &fc)
	}
	if err := s.db.QueryRowContext(ctx, q, s.keys.Group).Scan(dest...); err != nil {
		return fmt.Errorf("clickhouse %s: array widths: %w", s.tbl.Table, err)
	}
	s.priceCols, s.featCols = int(pc), int(fc)
	return nil
}

func checkRowCounts(tbl ClickHouseTable, keys DatasetKeys, count, distinct uint64) error {
	if count == 0 {
		return fmt.Errorf("clickhouse %s: group %q has no rows", tbl.Table, keys.Group)
	}
	if distinct != count {
		return fmt.Errorf("clickhouse %s: group %q has %d rows but %d distinct %s values",
			tbl.Table, keys.Group, count, distinct, keys.Timestamp)
	}
	return nil
}

func (s *ClickHouseStore) Len() int         { return s.rows }
func (s *ClickHouseStore) PriceCols() int   { return s.priceCols }
func (s *ClickHouseStore) FeatureCols() int { return s.featCols }

// ID identifies the dataset for shared caches.
func (s *ClickHouseStore) ID() string {
	return fmt.Sprintf("clickhouse|%s|%s|%s|%s|%s", s.tbl.Table, s.keys.Group, s.keys.Price, s.keys.Feature, s.keys.Timestamp)
}

func (s *ClickHouseStore) ReadWindow(start, end int) (*models.RowBlock, error) {
	if end > s.rows {
		end = s.rows
	}
	if start < 0 || start > end {
		return nil, fmt.Errorf("clickhouse %s: invalid window [%d, %d)", s.tbl.Table, start, end)
	}
	n := end - start
	blk := &models.RowBlock{
		Start:      start,
		Timestamps: make([]int64, 0, n),
		Prices:     make([]float64, 0, n*s.priceCols),
	}
	if n == 0 {
		return blk, nil
	}
	if s.featCols > 0 {
		blk.Features = make([]float64, 0, n*s.featCols)
	}

	begin := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.tbl.QueryTimeout)
	defer cancel()

	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s ASC LIMIT ? OFFSET ?",
		s.tbl.selectColumns(s.keys), s.tbl.Table, s.tbl.GroupColumn, s.keys.Timestamp)
	rows, err := s.db.QueryContext(ctx, q, s.keys.Group, n, start)
	if err != nil {
		return nil, s.fail("query", start, err)
	}
	defer rows.Close()

	for rows.Next() {
		var ts int64
		var price, feat []float64
		dest := []interface{}{&ts, &price}
		if s.keys.Feature != "" {
			dest = append(dest, &feat)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, s.fail("scan", start, err)
		}
		if len(price) != s.priceCols || len(feat) != s.featCols {
			return nil, s.fail("scan", start, fmt.Errorf("row at ts %d has %d prices and %d features, want %d and %d",
				ts, len(price), len(feat), s.priceCols, s.featCols))
		}
		blk.Timestamps = append(blk.Timestamps, ts)
		blk.Prices = append(blk.Prices, price...)
		blk.Features = append(blk.Features, feat...)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("rows", start, err)
	}
	if blk.Len() != n {
		return nil, s.fail("rows", start, fmt.Errorf("got %d rows, want %d", blk.Len(), n))
	}
	if s.l != nil {
		s.l.Debug("clickhouse read_window ok",
			applogger.String("table", s.tbl.Table),
			applogger.String("group", s.keys.Group),
			applogger.Int("start", start),
			applogger.Int("rows", n),
			applogger.Duration("duration_ms", time.Since(begin)),
		)
	}
	return blk, nil
}

func (s *ClickHouseStore) TimestampAt(i int) (int64, error) {
	if i < 0 || i >= s.rows {
		return 0, fmt.Errorf("clickhouse %s: row %d out of range", s.tbl.Table, i)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.tbl.QueryTimeout)
	defer cancel()

	q := fmt.Sprintf("SELECT toInt64(%s) FROM %s WHERE %s = ? ORDER BY %s ASC LIMIT 1 OFFSET ?",
		s.keys.Timestamp, s.tbl.Table, s.tbl.GroupColumn, s.keys.Timestamp)
	var ts int64
	if err := s.db.QueryRowContext(ctx, q, s.keys.Group, i).Scan(&ts); err != nil {
		return 0, s.fail("timestamp", i, err)
	}
	return ts, nil
}

func (s *ClickHouseStore) fail(stage string, row int, err error) error {
	if s.l != nil {
		s.l.Error("clickhouse read_window "+stage+" error",
			applogger.String("table", s.tbl.Table),
			applogger.String("group", s.keys.Group),
			applogger.Int("row", row),
			applogger.Error(err),
		)
	}
	return fmt.Errorf("clickhouse %s: %s at row %d: %w", s.tbl.Table, stage, row, err)
}

// Close is a no-op; the connection pool belongs to pkg/clickhouse.
func (s *ClickHouseStore) Close() error { return nil }

// ClickHouseSink appends row blocks of one group to a table.
type ClickHouseSink struct {
	ch   *pkgch.Client
	tbl  ClickHouseTable
	keys DatasetKeys
}

// NewClickHouseSink validates identifiers for writing keys.Group into tbl.
func NewClickHouseSink(ch *pkgch.Client, tbl ClickHouseTable, keys DatasetKeys) (*ClickHouseSink, error) {
	if err := keys.Validate(); err != nil {
		return nil, fmt.Errorf("clickhouse sink: %w", err)
	}
	if err := tbl.normalize(keys); err != nil {
		return nil, fmt.Errorf("clickhouse sink: %w", err)
	}
	return &ClickHouseSink{ch: ch, tbl: tbl, keys: keys}, nil
}

// InitSchema creates the database and table when missing.
func (s *ClickHouseSink) InitSchema(ctx context.Context) error {
	stmts, err := s.tbl.SchemaStatements(s.keys)
	if err != nil {
		return err
	}
	return s.ch.InitSchema(ctx, stmts)
}

// StoreBlock inserts blk in chunks of multi-row VALUES statements.
func (s *ClickHouseSink) StoreBlock(ctx context.Context, blk *models.RowBlock, priceCols, featCols int) error {
	if blk == nil || blk.Len() == 0 {
		return nil
	}
	if len(blk.Prices) != blk.Len()*priceCols || len(blk.Features) != blk.Len()*featCols {
		return errors.New("clickhouse sink: block shape does not match column counts")
	}
	for start := 0; start < blk.Len(); start += clickHouseInsertChunk {
		end := start + clickHouseInsertChunk
		if end > blk.Len() {
			end = blk.Len()
		}
		q, args := s.insertStatement(blk, start, end, priceCols, featCols)
		if _, err := s.ch.DB().ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("clickhouse sink: insert rows %d..%d: %w", blk.Start+start, blk.Start+end, err)
		}
	}
	return nil
}

func (s *ClickHouseSink) insertStatement(blk *models.RowBlock, start, end, priceCols, featCols int) (string, []interface{}) {
	cols := []string{s.tbl.GroupColumn, s.keys.Timestamp, s.keys.Price}
	placeholder := "(?, ?, ?)"
	if s.keys.Feature != "" {
		cols = append(cols, s.keys.Feature)
		placeholder = "(?, ?, ?, ?)"
	}
	values := make([]string, 0, end-start)
	args := make([]interface{}, 0, (end-start)*len(cols))
	for i := start; i < end; i++ {
		values = append(values, placeholder)
		args = append(args, s.keys.Group, blk.Timestamps[i], blk.Prices[i*priceCols:(i+1)*priceCols])
		if s.keys.Feature != "" {
			feat := []float64{}
			if featCols > 0 {
				feat = blk.Features[i*featCols : (i+1)*featCols]
			}
			args = append(args, feat)
		}
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.tbl.Table, strings.Join(cols, ", "), strings.Join(values, ","))
	return q, args
}

var _ domrepo.RowStore = (*ClickHouseStore)(nil)
