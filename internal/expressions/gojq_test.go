package expressions

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/pkg/resource"
)

func TestNewGoJQEngine(t *testing.T) {
	e := NewGoJQEngine()
	assert.NotNil(t, e)
	assert.Equal(t, "jq", e.Name())
}

// --- Basic evaluation ---

func TestGoJQ_Identity(t *testing.T) {
	e := NewGoJQEngine()
	data := map[string]any{"values": map[string]any{"x": 1.0}}

	out, err := e.Evaluate(context.Background(), ".", data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestGoJQ_FieldAccess(t *testing.T) {
	e := NewGoJQEngine()
	data := map[string]any{
		"values": map[string]any{
			"address": map[string]any{"city": "lagos"},
		},
	}

	out, err := e.Evaluate(context.Background(), ".values.address.city", data)
	require.NoError(t, err)
	assert.Equal(t, "lagos", out)
}

func TestGoJQ_Reshaping(t *testing.T) {
	e := NewGoJQEngine()
	data := map[string]any{
		"values": map[string]any{
			"first": "ada",
			"last":  "lovelace",
		},
	}

	out, err := e.Evaluate(context.Background(),
		`{full: (.values.first + " " + .values.last)}`, data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"full": "ada lovelace"}, out)
}

func TestGoJQ_Aggregation(t *testing.T) {
	e := NewGoJQEngine()
	data := map[string]any{
		"values": map[string]any{
			"scores": []any{3.0, 7.0, 5.0},
		},
	}

	out, err := e.Evaluate(context.Background(), ".values.scores | add", data)
	require.NoError(t, err)
	assert.Equal(t, 15.0, out)
}

func TestGoJQ_MultipleOutputs(t *testing.T) {
	e := NewGoJQEngine()
	data := map[string]any{
		"values": map[string]any{
			"scores": []any{3.0, 7.0, 5.0},
		},
	}

	out, err := e.Evaluate(context.Background(), ".values.scores[] | select(. > 4)", data)
	require.NoError(t, err)
	assert.Equal(t, []any{7.0, 5.0}, out)
}

func TestGoJQ_NoOutput(t *testing.T) {
	e := NewGoJQEngine()
	data := map[string]any{"values": map[string]any{}}

	out, err := e.Evaluate(context.Background(), ".values | to_entries[]", data)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestGoJQ_EvaluateAll(t *testing.T) {
	e := NewGoJQEngine()
	data := map[string]any{
		"values": map[string]any{"scores": []any{1.0, 2.0}},
	}

	results, err := e.EvaluateAll(context.Background(), ".values.scores[]", data)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, results)
}

func TestGoJQ_EvaluateNormalized(t *testing.T) {
	e := NewGoJQEngine()

	// Tree values carry int64 after normalization; jq wants float64.
	data := map[string]any{
		"values": map[string]any{
			"price":    int64(20),
			"quantity": int64(3),
		},
	}

	out, err := e.EvaluateNormalized(context.Background(), ".values.price * .values.quantity", data)
	require.NoError(t, err)
	assert.Equal(t, 60.0, out)
}

// --- Sandbox ---

func TestGoJQ_EnvBlocked(t *testing.T) {
	e := NewGoJQEngine()

	out, err := e.Evaluate(context.Background(), `$ENV | length`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 0, out)
}

// --- Errors ---

func TestGoJQ_EmptyExpression(t *testing.T) {
	e := NewGoJQEngine()

	_, err := e.Evaluate(context.Background(), "", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, resource.ErrCodeExpression, resource.CodeOf(err))
}

func TestGoJQ_ParseError(t *testing.T) {
	e := NewGoJQEngine()

	_, err := e.Evaluate(context.Background(), ".values |", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, resource.ErrCodeExpression, resource.CodeOf(err))
}

func TestGoJQ_RuntimeError(t *testing.T) {
	e := NewGoJQEngine()
	data := map[string]any{"values": map[string]any{"x": "str"}}

	_, err := e.Evaluate(context.Background(), ".values.x + 1", data)
	require.Error(t, err)
	assert.Equal(t, resource.ErrCodeExpression, resource.CodeOf(err))
}

// --- Caching and concurrency ---

func TestGoJQ_CacheReuse(t *testing.T) {
	e := NewGoJQEngine()
	ctx := context.Background()

	_, err := e.Evaluate(ctx, ".values", map[string]any{"values": map[string]any{}})
	require.NoError(t, err)

	e.mu.RLock()
	assert.Len(t, e.cache, 1)
	e.mu.RUnlock()

	_, err = e.Evaluate(ctx, ".values", map[string]any{"values": map[string]any{"a": 1.0}})
	require.NoError(t, err)

	e.mu.RLock()
	assert.Len(t, e.cache, 1)
	e.mu.RUnlock()
}

func TestGoJQ_ConcurrentEvaluate(t *testing.T) {
	e := NewGoJQEngine()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n float64) {
			defer wg.Done()
			out, err := e.Evaluate(ctx, ".x * 2", map[string]any{"x": n})
			assert.NoError(t, err)
			assert.Equal(t, n*2, out)
		}(float64(i))
	}
	wg.Wait()
}
