package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	assert.NoError(t, repo.Ping(ctx))
	assert.NoError(t, repo.Set(ctx, "timetable:class:c-1", map[string]string{"a": "b"}, time.Minute))

	var dest map[string]string
	err := repo.Get(ctx, "timetable:class:c-1", &dest)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.Nil(t, dest)

	assert.NoError(t, repo.DeleteByPattern(ctx, "timetable:*"))
}
