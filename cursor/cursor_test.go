package cursor

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blurt-dev/blurt/store"
	"github.com/blurt-dev/blurt/store/storetest"
)

// fakeReader is an in-memory record table
type fakeReader struct {
	ids        []int64
	maxErr     error
	afterErr   error
	afterCalls []int64
}

func (f *fakeReader) insert(ids ...int64) {
	f.ids = append(f.ids, ids...)
	sort.Slice(f.ids, func(i, j int) bool { return f.ids[i] < f.ids[j] })
}

func (f *fakeReader) MaxRowID(ctx context.Context) (int64, bool, error) {
	if f.maxErr != nil {
		return 0, false, f.maxErr
	}
	if len(f.ids) == 0 {
		return 0, false, nil
	}
	return f.ids[len(f.ids)-1], true, nil
}

func (f *fakeReader) RecordsAfter(ctx context.Context, id int64) ([]store.Record, error) {
	f.afterCalls = append(f.afterCalls, id)
	if f.afterErr != nil {
		return nil, f.afterErr
	}
	var out []store.Record
	for _, rowID := range f.ids {
		if rowID > id {
			out = append(out, store.Record{ID: rowID, Data: []byte{byte(rowID)}})
		}
	}
	return out, nil
}

func ids(records []store.Record) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestPoll_EmptyTable(t *testing.T) {
	c := New()
	r := &fakeReader{}

	res, err := c.Poll(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, ChangeEmpty, res.Change)
	assert.Empty(t, res.Records)

	_, ok := c.Watermark()
	assert.False(t, ok)
	assert.Empty(t, r.afterCalls)
}

func TestPoll_FirstPollSuppressesExistingRows(t *testing.T) {
	c := New()
	r := &fakeReader{}
	r.insert(1, 2, 3)

	res, err := c.Poll(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, ChangeInitialized, res.Change)
	assert.Empty(t, res.Records)

	w, ok := c.Watermark()
	require.True(t, ok)
	assert.Equal(t, int64(3), w)

	res, err = c.Poll(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, ChangeUnchanged, res.Change)
	assert.Empty(t, res.Records)
}

func TestPoll_InitializesAfterEmptyPolls(t *testing.T) {
	c := New()
	r := &fakeReader{}

	_, err := c.Poll(context.Background(), r)
	require.NoError(t, err)

	r.insert(4)
	res, err := c.Poll(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, ChangeInitialized, res.Change)
	assert.Empty(t, res.Records)

	w, _ := c.Watermark()
	assert.Equal(t, int64(4), w)
}

func TestPoll_Growth(t *testing.T) {
	c := New()
	r := &fakeReader{}
	r.insert(1)

	_, err := c.Poll(context.Background(), r)
	require.NoError(t, err)

	r.insert(2, 3)
	res, err := c.Poll(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, ChangeGrew, res.Change)
	assert.Equal(t, []int64{2, 3}, ids(res.Records))
	assert.Equal(t, []int64{1}, r.afterCalls)

	w, _ := c.Watermark()
	assert.Equal(t, int64(3), w)
}

func TestPoll_GrowthWithGaps(t *testing.T) {
	c := New()
	r := &fakeReader{}
	r.insert(10)

	_, err := c.Poll(context.Background(), r)
	require.NoError(t, err)

	r.insert(15, 42)
	res, err := c.Poll(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, []int64{15, 42}, ids(res.Records))

	w, _ := c.Watermark()
	assert.Equal(t, int64(42), w)
}

func TestPoll_ShrinkResyncs(t *testing.T) {
	c := New()
	r := &fakeReader{}
	r.insert(1, 2)

	_, err := c.Poll(context.Background(), r)
	require.NoError(t, err)

	r.ids = nil
	r.insert(1)

	res, err := c.Poll(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, ChangeShrank, res.Change)
	assert.Empty(t, res.Records)
	assert.Equal(t, []int64{1}, r.afterCalls, "shrink re-queries from the new max")

	w, _ := c.Watermark()
	assert.Equal(t, int64(1), w)

	r.insert(2)
	res, err = c.Poll(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, ChangeGrew, res.Change)
	assert.Equal(t, []int64{2}, ids(res.Records))
}

func TestPoll_ShrinkToEmptyKeepsWatermark(t *testing.T) {
	c := New()
	r := &fakeReader{}
	r.insert(5)

	_, err := c.Poll(context.Background(), r)
	require.NoError(t, err)

	r.ids = nil
	res, err := c.Poll(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, ChangeEmpty, res.Change)

	w, ok := c.Watermark()
	assert.True(t, ok)
	assert.Equal(t, int64(5), w)
}

func TestPoll_MaxErrorLeavesWatermark(t *testing.T) {
	c := New()
	r := &fakeReader{}
	r.insert(1)

	_, err := c.Poll(context.Background(), r)
	require.NoError(t, err)

	boom := errors.New("disk I/O error")
	r.maxErr = boom
	_, err = c.Poll(context.Background(), r)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	w, _ := c.Watermark()
	assert.Equal(t, int64(1), w)
}

func TestPoll_RecordsErrorLeavesWatermark(t *testing.T) {
	c := New()
	r := &fakeReader{}
	r.insert(1)

	_, err := c.Poll(context.Background(), r)
	require.NoError(t, err)

	r.insert(2)
	boom := errors.New("database is locked")
	r.afterErr = boom

	_, err = c.Poll(context.Background(), r)
	assert.ErrorIs(t, err, boom)

	w, _ := c.Watermark()
	assert.Equal(t, int64(1), w)

	// The rows are picked up once the store recovers
	r.afterErr = nil
	res, err := c.Poll(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(res.Records))
}

func TestPoll_SQLiteStoreScenarios(t *testing.T) {
	ctx := context.Background()
	s, _ := storetest.NewTestStore(t)
	c := New()

	res, err := c.Poll(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, ChangeEmpty, res.Change)

	storetest.InsertNotification(t, s, 1, "Test Title", "Test Body", "com.test.app", 1234567890.5)
	res, err = c.Poll(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, ChangeInitialized, res.Change)
	assert.Empty(t, res.Records)

	res, err = c.Poll(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, res.Records)

	storetest.InsertNotification(t, s, 2, "New", "", "com.test.app", 0)
	res, err = c.Poll(ctx, s)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(2), res.Records[0].ID)

	storetest.DeleteAll(t, s)
	storetest.InsertNotification(t, s, 1, "After", "", "com.test.app", 0)
	res, err = c.Poll(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, ChangeShrank, res.Change)
	assert.Empty(t, res.Records)

	w, _ := c.Watermark()
	assert.Equal(t, int64(1), w)
}

func TestChangeString(t *testing.T) {
	assert.Equal(t, "grew", ChangeGrew.String())
	assert.Equal(t, "shrank", ChangeShrank.String())
	assert.Equal(t, "unknown", Change(99).String())
}
