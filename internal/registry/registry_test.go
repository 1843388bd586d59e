package registry

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pageboot/internal/errors"
)

func TestResolve_BuildsOnce(t *testing.T) {
	r := New[string]("template")
	var calls atomic.Int32
	r.Register("article", func(context.Context) (string, error) {
		calls.Add(1)
		return "article-decorator", nil
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := r.Resolve(context.Background(), "article")
			assert.NoError(t, err)
			assert.Equal(t, "article-decorator", v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolve_NotRegistered(t *testing.T) {
	r := New[int]("block")
	_, err := r.Resolve(context.Background(), "cards")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotRegistered)
	assert.Equal(t, errors.CategoryNotFound, errors.GetCategory(err))

	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	name, _ := ce.Context().GetString("name")
	assert.Equal(t, "cards", name)
}

func TestResolve_FactoryErrorIsCached(t *testing.T) {
	r := New[int]("delayed module")
	boom := stderrors.New("boom")
	var calls int
	r.Register("delayed", func(context.Context) (int, error) {
		calls++
		return 0, boom
	})

	_, err := r.Resolve(context.Background(), "delayed")
	require.ErrorIs(t, err, boom)
	_, err = r.Resolve(context.Background(), "delayed")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, errors.CategoryRuntime, errors.GetCategory(err))
}

func TestNamesAndHas(t *testing.T) {
	r := New[int]("block")
	r.RegisterValue("hero", 1)
	r.RegisterValue("cards", 2)

	assert.Equal(t, []string{"cards", "hero"}, r.Names())
	assert.True(t, r.Has("hero"))
	assert.False(t, r.Has("columns"))

	v, err := r.Resolve(context.Background(), "cards")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}
