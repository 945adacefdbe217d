package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SynthFeed/internal/domain/models"
)

var chKeys = DatasetKeys{Group: "EURUSD", Price: "midprice", Feature: "features", Timestamp: "ts"}

func TestClickHouseSchemaStatements(t *testing.T) {
	stmts, err := ClickHouseTable{}.SchemaStatements(chKeys)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS synthfeed", stmts[0])
	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS synthfeed.rows (instrument LowCardinality(String), ts Int64, "+
			"midprice Array(Float64), features Array(Float64)) ENGINE = MergeTree ORDER BY (instrument, ts)",
		stmts[1])

	stmts, err = ClickHouseTable{Table: "ticks", GroupColumn: "sym"}.SchemaStatements(
		DatasetKeys{Group: "x", Price: "p", Timestamp: "t"})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "ORDER BY (sym, t)")
	assert.NotContains(t, stmts[0], "features")
}

func TestClickHouseRejectsBadIdentifiers(t *testing.T) {
	_, err := ClickHouseTable{Table: "rows; DROP TABLE x"}.SchemaStatements(chKeys)
	assert.Error(t, err)

	bad := chKeys
	bad.Feature = "f-1"
	_, err = ClickHouseTable{}.SchemaStatements(bad)
	assert.Error(t, err)

	_, err = NewClickHouseSink(nil, ClickHouseTable{GroupColumn: "1abc"}, chKeys)
	assert.Error(t, err)
}

func TestCheckColumnTypes(t *testing.T) {
	tbl := ClickHouseTable{}
	require.NoError(t, tbl.normalize(chKeys))

	good := map[string]string{
		"instrument": "LowCardinality(String)",
		"ts":         "DateTime64(3)",
		"midprice":   "Array(Float64)",
		"features":   "Array(Float64)",
	}
	assert.NoError(t, checkColumnTypes(tbl, chKeys, good))

	assert.ErrorContains(t, checkColumnTypes(tbl, chKeys, map[string]string{}), "table not found")

	missing := map[string]string{"instrument": "String", "ts": "Int64", "midprice": "Array(Float64)"}
	assert.ErrorContains(t, checkColumnTypes(tbl, chKeys, missing), `"features" not found`)

	wrong := map[string]string{"instrument": "String", "ts": "Int64", "midprice": "Float64", "features": "Array(Float64)"}
	assert.ErrorContains(t, checkColumnTypes(tbl, chKeys, wrong), "unsupported type")
}

func TestCheckRowCountsRequiresUniqueTimestamps(t *testing.T) {
	tbl := ClickHouseTable{}
	require.NoError(t, tbl.normalize(chKeys))

	assert.NoError(t, checkRowCounts(tbl, chKeys, 10, 10))
	assert.ErrorContains(t, checkRowCounts(tbl, chKeys, 0, 0), "has no rows")

	err := checkRowCounts(tbl, chKeys, 10, 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "9 distinct ts values")
}

func TestClickHouseSinkInsertStatement(t *testing.T) {
	sink, err := NewClickHouseSink(nil, ClickHouseTable{}, chKeys)
	require.NoError(t, err)

	blk := &models.RowBlock{
		Start:      0,
		Timestamps: []int64{1, 2},
		Prices:     []float64{1.5, 2.5},
		Features:   []float64{10, 11, 20, 21},
	}
	q, args := sink.insertStatement(blk, 0, 2, 1, 2)
	assert.Equal(t, "INSERT INTO synthfeed.rows (instrument, ts, midprice, features) VALUES (?, ?, ?, ?),(?, ?, ?, ?)", q)
	require.Len(t, args, 8)
	assert.Equal(t, "EURUSD", args[0])
	assert.Equal(t, int64(2), args[5])
	assert.Equal(t, []float64{2.5}, args[6])
	assert.Equal(t, []float64{20, 21}, args[7])
}
