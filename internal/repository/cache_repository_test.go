package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	err := repo.Get(ctx, "schedule:week:2024-03-04", &dest)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCacheMiss.Code, appErrors.FromError(err).Code)

	assert.NoError(t, repo.Set(ctx, "schedule:week:2024-03-04", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "schedule:*"))

	gen, err := repo.Counter(ctx, "schedule_generation")
	require.NoError(t, err)
	assert.Zero(t, gen)
	gen, err = repo.Incr(ctx, "schedule_generation")
	require.NoError(t, err)
	assert.Zero(t, gen)
	assert.NoError(t, repo.Close())
}
