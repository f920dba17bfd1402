package paging_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/range-feed-service/internal/paging"
)

func oneToFive() paging.SliceSource[int] { return paging.SliceSource[int]{1, 2, 3, 4, 5} }

func TestPaginate_Scenarios(t *testing.T) {
	cases := []struct {
		name      string
		src       paging.SliceSource[int]
		spec      paging.RangeSpec
		wantItems []int
		wantFirst int64
	}{
		{"subset 1-2", oneToFive(), paging.Subset(1, 2), []int{2, 3}, 1},
		{"tail open 2-", oneToFive(), paging.TailOpen(2), []int{3, 4, 5}, 2},
		{"last two", oneToFive(), paging.Tail(2), []int{4, 5}, 3},
		{"tail overflow clamps", paging.SliceSource[int]{1, 2}, paging.Tail(4), []int{1, 2}, 0},
		{"subset past end clamps", oneToFive(), paging.Subset(3, 100), []int{4, 5}, 3},
		{"tail open at length", oneToFive(), paging.TailOpen(5), []int{}, 5},
		{"inverted subset is empty", oneToFive(), paging.Subset(3, 1), []int{}, 3},
		{"last zero", oneToFive(), paging.Tail(0), []int{}, 5},
		{"subset to max int64 clamps", oneToFive(), paging.Subset(0, math.MaxInt64), []int{1, 2, 3, 4, 5}, 0},
		{"subset from 2 to max int64 clamps", oneToFive(), paging.Subset(2, math.MaxInt64), []int{3, 4, 5}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := paging.Paginate[int](context.Background(), tc.src, tc.spec)
			require.NoError(t, err)
			assert.Equal(t, tc.wantItems, page.Items)
			assert.Equal(t, tc.wantFirst, page.FirstIndex)
		})
	}
}

func TestPaginate_NoBoundsIsInvalid(t *testing.T) {
	for _, src := range []paging.SliceSource[int]{nil, {1}, oneToFive()} {
		_, err := paging.Paginate[int](context.Background(), src, paging.RangeSpec{})
		assert.ErrorIs(t, err, paging.ErrInvalidRange)
	}
}

func TestPaginate_NegativeBoundIsInvalid(t *testing.T) {
	_, err := paging.Paginate[int](context.Background(), oneToFive(), paging.TailOpen(-1))
	assert.ErrorIs(t, err, paging.ErrInvalidRange)
}

func TestPaginate_Properties(t *testing.T) {
	ctx := context.Background()
	for l := 0; l <= 12; l++ {
		src := make(paging.SliceSource[int], l)
		for i := range src {
			src[i] = i
		}
		for a := 0; a < l; a++ {
			for b := a; b < l; b++ {
				page, err := paging.Paginate[int](ctx, src, paging.Subset(int64(a), int64(b)))
				require.NoError(t, err)
				require.Len(t, page.Items, b-a+1)
				require.Equal(t, int64(a), page.FirstIndex)
				require.Equal(t, a, page.Items[0])
			}
		}
		for a := 0; a <= l; a++ {
			page, err := paging.Paginate[int](ctx, src, paging.TailOpen(int64(a)))
			require.NoError(t, err)
			require.Equal(t, []int(src[a:]), page.Items)
			require.Equal(t, int64(a), page.FirstIndex)
		}
		for n := 0; n <= l+3; n++ {
			page, err := paging.Paginate[int](ctx, src, paging.Tail(int64(n)))
			require.NoError(t, err)
			if n <= l {
				require.Equal(t, []int(src[l-n:]), page.Items)
				require.Equal(t, int64(l-n), page.FirstIndex)
			} else {
				require.Equal(t, []int(src), page.Items)
				require.Equal(t, int64(0), page.FirstIndex)
			}
		}
	}
}

func TestPaginate_LargeIndicesDoNotOverflow(t *testing.T) {
	const huge = int64(1) << 40
	var gotOffset, gotLimit int64
	src := paging.SourceFuncs[int]{
		CountFunc: func(context.Context) (int64, error) { return huge, nil },
		SliceFunc: func(_ context.Context, offset, limit int64) ([]int, error) {
			gotOffset, gotLimit = offset, limit
			return []int{1}, nil
		},
	}
	page, err := paging.Paginate[int](context.Background(), src, paging.Tail(3))
	require.NoError(t, err)
	assert.Equal(t, huge-3, page.FirstIndex)
	assert.Equal(t, huge-3, gotOffset)
	assert.Equal(t, int64(3), gotLimit)
}

func TestPaginate_SourceErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	src := paging.SourceFuncs[int]{
		CountFunc: func(context.Context) (int64, error) { return 0, boom },
		SliceFunc: func(context.Context, int64, int64) ([]int, error) { return nil, boom },
	}
	_, err := paging.Paginate[int](context.Background(), src, paging.Tail(1))
	assert.ErrorIs(t, err, boom)
	_, err = paging.Paginate[int](context.Background(), src, paging.Subset(0, 1))
	assert.ErrorIs(t, err, boom)
}

func TestClampWindow(t *testing.T) {
	cases := []struct {
		n, offset, limit int64
		lo, hi           int64
	}{
		{5, 0, paging.NoLimit, 0, 5},
		{5, 2, 2, 2, 4},
		{5, 4, 10, 4, 5},
		{5, 9, 1, 5, 5},
		{5, -3, 2, 0, 2},
		{0, 0, paging.NoLimit, 0, 0},
	}
	for _, tc := range cases {
		lo, hi := paging.ClampWindow(tc.n, tc.offset, tc.limit)
		assert.Equal(t, tc.lo, lo, "lo for %+v", tc)
		assert.Equal(t, tc.hi, hi, "hi for %+v", tc)
	}
}

func TestRangeSpec_Span(t *testing.T) {
	cases := []struct {
		name   string
		spec   paging.RangeSpec
		want   int64
		wantOK bool
	}{
		{"subset", paging.Subset(1, 2), 2, true},
		{"inverted", paging.Subset(3, 1), 0, true},
		{"full int64 range saturates", paging.Subset(0, math.MaxInt64), math.MaxInt64, true},
		{"from one to max", paging.Subset(1, math.MaxInt64), math.MaxInt64, true},
		{"tail", paging.Tail(4), 4, true},
		{"half open", paging.TailOpen(2), 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, ok := tc.spec.Span()
			assert.Equal(t, tc.want, n)
			assert.Equal(t, tc.wantOK, ok)
		})
	}
}

func TestRangeSpec_String(t *testing.T) {
	assert.Equal(t, "items=1-2", paging.Subset(1, 2).WithUnit("items").String())
	assert.Equal(t, "items=3-", paging.TailOpen(3).WithUnit("items").String())
	assert.Equal(t, "items=-4", paging.Tail(4).WithUnit("items").String())
}
