package votes

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/qa-forum/internal/common"
)

func TestToggleFlipsMembership(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())

	res, err := svc.Toggle(ctx, "q1", 7)
	require.NoError(t, err)
	assert.Equal(t, DirectionUp, res.Direction)
	assert.Equal(t, 1, res.Count)

	res, err = svc.Toggle(ctx, "q1", 7)
	require.NoError(t, err)
	assert.Equal(t, DirectionDown, res.Direction)
	assert.Zero(t, res.Count)

	// Снятый голос можно поставить снова
	res, err = svc.Toggle(ctx, "q1", 7)
	require.NoError(t, err)
	assert.Equal(t, DirectionUp, res.Direction)
}

func TestToggleValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	_, err := svc.Toggle(context.Background(), "", 7)
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.Toggle(context.Background(), "q1", 0)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestConcurrentVotersKeepTallyExact(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())

	var wg sync.WaitGroup
	for voter := int64(1); voter <= 50; voter++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _ = svc.Toggle(ctx, "a1", id)
		}(voter)
	}
	wg.Wait()

	count, err := svc.Count(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 50, count)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())

	_, _ = svc.Toggle(ctx, "q1", 1)
	_, _ = svc.Toggle(ctx, "q1", 2)
	_, _ = svc.Toggle(ctx, "q2", 1)

	require.NoError(t, svc.Purge(ctx, "q1"))

	count, _ := svc.Count(ctx, "q1")
	assert.Zero(t, count)
	count, _ = svc.Count(ctx, "q2")
	assert.Equal(t, 1, count)
}
