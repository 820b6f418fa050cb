package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/models"
)

func TestNewDataset(t *testing.T) {
	records := []models.SalesRecord{
		{Date: day(2024, 5, 3).Add(10 * time.Hour), Product: "Gadget", Region: "West", Sales: 1},
		{Date: day(2024, 5, 1), Product: "Widget", Region: "East", Sales: 2},
		{Date: day(2024, 5, 9), Product: "Gadget", Region: "North", Sales: 3},
		{Date: day(2024, 5, 2), Product: "Anvil", Region: "East", Sales: 4},
	}

	ds, err := NewDataset("memory", records)
	require.NoError(t, err)

	assert.Equal(t, 4, ds.Len())
	assert.Equal(t, "memory", ds.Source)
	assert.False(t, ds.LoadedAt.IsZero())
	assert.Equal(t, []string{"Gadget", "Widget", "Anvil"}, ds.Products())
	assert.Equal(t, []string{"West", "East", "North"}, ds.Regions())

	lo, hi := ds.DateBounds()
	assert.Equal(t, day(2024, 5, 1), lo)
	assert.Equal(t, day(2024, 5, 9), hi)
}

func TestNewDataset_Empty(t *testing.T) {
	_, err := NewDataset("memory", nil)
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestDataset_CopiesAreIndependent(t *testing.T) {
	ds, err := NewDataset("memory", threeRows())
	require.NoError(t, err)

	records := ds.Records()
	records[0].Sales = -1
	products := ds.Products()
	products[0] = "changed"

	assert.Equal(t, 100.0, ds.Records()[0].Sales)
	assert.Equal(t, "A", ds.Products()[0])

	view := ds.View()
	assert.Equal(t, len(view), cap(view))
	view = append(view, models.SalesRecord{Product: "Z"})
	assert.Equal(t, 3, ds.Len())
	assert.Len(t, view, 4)
}

func TestDatasetCell_LoadsOnce(t *testing.T) {
	var calls atomic.Int32
	cell := NewDatasetCell(func(ctx context.Context) (*Dataset, error) {
		calls.Add(1)
		return NewDataset("memory", threeRows())
	})

	var wg sync.WaitGroup
	results := make([]*Dataset, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ds, err := cell.Get(context.Background())
			assert.NoError(t, err)
			results[i] = ds
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, ds := range results {
		assert.Same(t, results[0], ds)
	}
}

func TestDatasetCell_RemembersFailure(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	cell := NewDatasetCell(func(ctx context.Context) (*Dataset, error) {
		calls++
		return nil, boom
	})

	_, err := cell.Get(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = cell.Get(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDatasetCell_NotLoaded(t *testing.T) {
	_, err := NewDatasetCell(nil).Get(context.Background())
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)

	_, err = NewLoadedCell(nil).Get(context.Background())
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
}

func TestNewLoadedCell(t *testing.T) {
	ds, err := NewDataset("memory", threeRows())
	require.NoError(t, err)

	got, err := NewLoadedCell(ds).Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, ds, got)
}
