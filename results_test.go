package gocbstreamx

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/couchbase/gocbstreamx/cbsearchx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamResultPreservesOrder(t *testing.T) {
	for _, numRows := range []int{0, 1, 3, 50} {
		rows := make([]string, numRows)
		for i := range rows {
			rows[i] = fmt.Sprintf(`{"n":%d}`, i)
		}

		handle := newFakeHandle(`{"status":"success"}`, rows...)
		// stall the producer at irregular points
		handle.onPull = func(n int) {
			if n%7 == 3 {
				time.Sleep(time.Millisecond)
			}
		}
		cluster := newTestCluster(t, newFakeEngine(handle), nil)

		type numRow struct {
			N int `json:"n"`
		}
		res, err := Query[numRow](context.Background(), cluster, "SELECT n", nil)
		require.NoError(t, err)

		i := 0
		for row, err := range res.Rows() {
			require.NoError(t, err)
			assert.Equal(t, i, row.N)
			i++
		}
		assert.Equal(t, numRows, i)
	}
}

func TestStreamResultOneShot(t *testing.T) {
	t.Run("Query", func(t *testing.T) {
		cluster := newTestCluster(t, newFakeEngine(newFakeHandle(`{"status":"success"}`, `{"a":1}`)), nil)
		res, err := cluster.Query(context.Background(), "SELECT 1", nil)
		require.NoError(t, err)
		assertOneShot(t, res)
	})

	t.Run("Analytics", func(t *testing.T) {
		cluster := newTestCluster(t, newFakeEngine(newFakeHandle(`{"status":"success"}`, `{"a":1}`)), nil)
		res, err := cluster.AnalyticsQuery(context.Background(), "SELECT 1", nil)
		require.NoError(t, err)
		assertOneShot(t, res)
	})

	t.Run("Search", func(t *testing.T) {
		cluster := newTestCluster(t, newFakeEngine(newFakeHandle(`{"status":{"total":1,"successful":1}}`, `{"id":"doc1","score":1.5}`)), nil)
		res, err := cluster.Search(context.Background(), "index", &cbsearchx.MatchAllQuery{}, nil)
		require.NoError(t, err)
		assertOneShot(t, res)
	})
}

func assertOneShot[RowT any, MetaT any](t *testing.T, res *StreamResult[RowT, MetaT]) {
	rows, err := res.Execute()
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	var errs []error
	for _, err := range res.Rows() {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrPreviouslyIterated)

	_, err = res.Execute()
	assert.ErrorIs(t, err, ErrPreviouslyIterated)

	_, err = res.One()
	assert.ErrorIs(t, err, ErrPreviouslyIterated)

	assert.False(t, res.Next())
	assert.ErrorIs(t, res.Err(), ErrPreviouslyIterated)

	meta, err := res.MetaData()
	require.NoError(t, err)
	assert.NotNil(t, meta)
}

func TestStreamResultCursor(t *testing.T) {
	handle := newFakeHandle(`{"status":"success"}`, `{"a":1}`, `{"a":2}`)
	cluster := newTestCluster(t, newFakeEngine(handle), nil)

	res, err := cluster.Query(context.Background(), "SELECT a", nil)
	require.NoError(t, err)

	var rows []json.RawMessage
	for res.Next() {
		rows = append(rows, res.Row())
	}
	require.NoError(t, res.Err())
	require.Len(t, rows, 2)
	assert.JSONEq(t, `{"a":2}`, string(rows[1]))

	// the cursor stays exhausted rather than reporting misuse
	assert.False(t, res.Next())
	require.NoError(t, res.Err())

	for _, err := range res.Rows() {
		assert.ErrorIs(t, err, ErrPreviouslyIterated)
	}
}

func TestStreamResultOne(t *testing.T) {
	t.Run("FirstRowAndDrain", func(t *testing.T) {
		handle := newFakeHandle(`{"status":"success"}`, `{"a":1}`, `{"a":2}`, `{"a":3}`)
		cluster := newTestCluster(t, newFakeEngine(handle), nil)

		res, err := cluster.Query(context.Background(), "SELECT a", nil)
		require.NoError(t, err)

		row, err := res.One()
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(row))
		assert.Equal(t, 5, handle.Pulls())

		meta, err := res.MetaData()
		require.NoError(t, err)
		assert.EqualValues(t, "success", meta.Status)
	})

	t.Run("NoRows", func(t *testing.T) {
		cluster := newTestCluster(t, newFakeEngine(newFakeHandle(`{"status":"success"}`)), nil)

		res, err := cluster.Query(context.Background(), "SELECT a", nil)
		require.NoError(t, err)

		_, err = res.One()
		assert.ErrorIs(t, err, ErrNoResult)
	})
}

func TestStreamResultMetaDataBeforeExhaustion(t *testing.T) {
	handle := newFakeHandle(`{"status":"success"}`, `{"a":1}`, `{"a":2}`)
	cluster := newTestCluster(t, newFakeEngine(handle), nil)

	res, err := cluster.Query(context.Background(), "SELECT a", nil)
	require.NoError(t, err)

	_, err = res.MetaData()
	assert.ErrorIs(t, err, ErrMetaDataNotAvailable)

	require.True(t, res.Next())
	_, err = res.MetaData()
	assert.ErrorIs(t, err, ErrMetaDataNotAvailable)

	require.NoError(t, res.Close())
	assert.Equal(t, 1, handle.Closes())

	_, err = res.MetaData()
	assert.ErrorIs(t, err, ErrMetaDataNotAvailable)
}

func TestStreamResultEarlyBreak(t *testing.T) {
	handle := newFakeHandle(`{"status":"success"}`, `{"a":1}`, `{"a":2}`, `{"a":3}`)
	cluster := newTestCluster(t, newFakeEngine(handle), nil)

	res, err := cluster.Query(context.Background(), "SELECT a", nil)
	require.NoError(t, err)

	for _, err := range res.Rows() {
		require.NoError(t, err)
		break
	}
	assert.Equal(t, 1, handle.Pulls())

	require.NoError(t, res.Close())
	assert.Equal(t, 1, handle.Closes())
}

func TestStreamResultCanceledContext(t *testing.T) {
	for i := 0; i < 200; i++ {
		handle := newFakeHandle(`{"status":"success"}`, `{"a":1}`, `{"a":2}`)
		cluster := newTestCluster(t, newFakeEngine(handle), nil)

		ctx, cancel := context.WithCancel(context.Background())
		res, err := cluster.Query(ctx, "SELECT a", nil)
		require.NoError(t, err)
		cancel()

		rows, err := res.Execute()
		require.NoError(t, err, "iteration %d", i)
		require.Len(t, rows, 2)
		assert.Equal(t, 4, handle.Pulls())
	}
}

func TestSearchResultLocations(t *testing.T) {
	handle := newFakeHandle(`{"status":{"total":1,"successful":1},"total_hits":2}`,
		`{"index":"travel","id":"hotel_1","score":0.5,"locations":{"name":{"inn":[{"pos":1,"start":0,"end":3}]}}}`,
		`{"index":"travel","id":"hotel_2","score":0.25,"fields":"{\"name\":\"The Inn\"}"}`)
	cluster := newTestCluster(t, newFakeEngine(handle), nil)

	res, err := cluster.Search(context.Background(), "travel", &cbsearchx.MatchQuery{Match: "inn"}, nil)
	require.NoError(t, err)

	rows, err := res.Execute()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NotNil(t, rows[0].Locations)
	assert.Equal(t, []string{"name"}, rows[0].Locations.Fields())
	locations := rows[0].Locations.Get("name", "inn")
	require.Len(t, locations, 1)
	assert.Equal(t, uint32(3), locations[0].End)

	assert.Nil(t, rows[1].Locations)
	var fields struct {
		Name string `json:"name"`
	}
	require.NoError(t, rows[1].DecodeFields(&fields))
	assert.Equal(t, "The Inn", fields.Name)

	meta, err := res.MetaData()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), meta.Metrics.TotalHits)
}
