package contentcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingGenerator records how many times it was invoked.
type countingGenerator struct {
	calls  int
	result string
	err    error
}

func (g *countingGenerator) generate(ctx context.Context) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.result, nil
}

func TestGetOrCompute_InvokesGeneratorOnce(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	gen := &countingGenerator{result: "Inspector Marlow enters the study."}
	params := map[string]string{"character": "marlow", "victim": "blackwood"}

	first, err := c.GetOrCompute(context.Background(), "intro", params, gen.generate, 0)
	require.NoError(t, err)
	assert.Equal(t, gen.result, first)

	second, err := c.GetOrCompute(context.Background(), "intro", params, gen.generate, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 1, gen.calls, "second call must be served from cache")
}

func TestGetOrCompute_ParamOrderDoesNotMatter(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	gen := &countingGenerator{result: "narration"}

	_, err = c.GetOrCompute(context.Background(), "narration",
		map[string]string{"a": "1", "b": "2"}, gen.generate, 0)
	require.NoError(t, err)

	// Maps have no order anyway; building the same logical params again must
	// still hit.
	_, err = c.GetOrCompute(context.Background(), "narration",
		map[string]string{"b": "2", "a": "1"}, gen.generate, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls)
}

func TestGetOrCompute_DistinctCategoriesDoNotCollide(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	params := map[string]string{"character": "marlow"}

	intro := &countingGenerator{result: "intro text"}
	response := &countingGenerator{result: "response text"}

	got, err := c.GetOrCompute(context.Background(), "intro", params, intro.generate, 0)
	require.NoError(t, err)
	assert.Equal(t, "intro text", got)

	got, err = c.GetOrCompute(context.Background(), "response", params, response.generate, 0)
	require.NoError(t, err)
	assert.Equal(t, "response text", got)

	assert.Equal(t, 1, intro.calls)
	assert.Equal(t, 1, response.calls)
}

func TestGetOrCompute_FailureIsNotMemoized(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	genErr := errors.New("rate limited")
	gen := &countingGenerator{err: genErr}
	params := map[string]string{"character": "marlow"}

	_, err = c.GetOrCompute(context.Background(), "intro", params, gen.generate, 0)
	require.ErrorIs(t, err, genErr, "generator failure must propagate unchanged")

	// The failure was not cached: a retry invokes the generator again and
	// can succeed.
	gen.err = nil
	gen.result = "recovered"

	got, err := c.GetOrCompute(context.Background(), "intro", params, gen.generate, 0)
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, 2, gen.calls)
}

func TestGetOrCompute_TTLExpiryRecomputes(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	gen := &countingGenerator{result: "v"}
	params := map[string]string{"k": "v"}

	_, err = c.GetOrCompute(context.Background(), "intro", params, gen.generate, 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, err = c.GetOrCompute(context.Background(), "intro", params, gen.generate, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls, "expired entry must be recomputed")
}

func TestGetOrCompute_NoExpiry(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	gen := &countingGenerator{result: "v"}
	params := map[string]string{"k": "v"}

	_, err = c.GetOrCompute(context.Background(), "intro", params, gen.generate, NoExpiry)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = c.GetOrCompute(context.Background(), "intro", params, gen.generate, NoExpiry)
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
}

func TestInvalidate(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	gen := &countingGenerator{result: "v"}
	params := map[string]string{"character": "marlow"}

	_, err = c.GetOrCompute(context.Background(), "intro", params, gen.generate, 0)
	require.NoError(t, err)

	c.Invalidate("intro", params)

	_, err = c.GetOrCompute(context.Background(), "intro", params, gen.generate, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls)
}

func TestSessionScoped_KeysDifferAcrossInstances(t *testing.T) {
	a, err := New(Config{SessionScoped: true})
	require.NoError(t, err)
	b, err := New(Config{SessionScoped: true})
	require.NoError(t, err)

	require.NotEmpty(t, a.nonce)
	require.NotEmpty(t, b.nonce)
	assert.NotEqual(t, a.nonce, b.nonce)

	params := map[string]string{"character": "marlow"}
	assert.NotEqual(t,
		deriveKey("intro", params, a.nonce),
		deriveKey("intro", params, b.nonce))

	// Within one instance the key stays stable.
	assert.Equal(t,
		deriveKey("intro", params, a.nonce),
		deriveKey("intro", params, a.nonce))
}

func TestStats(t *testing.T) {
	c, err := New(Config{MaxSize: 5})
	require.NoError(t, err)

	gen := &countingGenerator{result: "v"}
	params := map[string]string{"k": "v"}

	_, _ = c.GetOrCompute(context.Background(), "intro", params, gen.generate, 0) // miss
	_, _ = c.GetOrCompute(context.Background(), "intro", params, gen.generate, 0) // hit

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 5, stats.MaxSize)
	assert.InDelta(t, 0.5, stats.HitRate(), 1e-9)
}
