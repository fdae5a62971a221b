package fle

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeParamsSlot(t *testing.T) {
	t.Parallel()
	ex := NewExchange()

	_, err := ex.RequireParams()
	assert.ErrorIs(t, err, ErrTransportCorrelationMissing)

	p := &Params{IV: []byte{1}, Key: []byte{2}}
	ex.SetParams(p)
	got, err := ex.RequireParams()
	require.NoError(t, err)
	assert.Same(t, p, got)

	ex.Put("reqLogged", true)
	v, ok := ex.Get("reqLogged")
	assert.True(t, ok)
	assert.Equal(t, true, v)

	ex.Clear()
	assert.Nil(t, ex.Params())
	_, ok = ex.Get("reqLogged")
	assert.False(t, ok)
	_, err = ex.RequireParams()
	assert.ErrorIs(t, err, ErrTransportCorrelationMissing)
}

func TestExchangeContext(t *testing.T) {
	t.Parallel()

	_, ok := ExchangeFrom(context.Background())
	assert.False(t, ok)

	ex := NewExchange()
	ctx := WithExchange(context.Background(), ex)
	got, ok := ExchangeFrom(ctx)
	require.True(t, ok)
	assert.Same(t, ex, got)
}

func TestExchangesAreIndependent(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ex := NewExchange()
			p := &Params{IV: []byte{byte(i)}}
			ex.SetParams(p)
			got, err := ex.RequireParams()
			assert.NoError(t, err)
			assert.Equal(t, byte(i), got.IV[0])
			ex.Clear()
		}(i)
	}
	wg.Wait()
}

func TestExchangeFork(t *testing.T) {
	t.Parallel()
	parent := NewExchange()
	parent.Put("tenant", "acme")
	parent.SetParams(&Params{IV: []byte{1}})

	child := parent.Fork()
	assert.NotSame(t, parent, child)
	assert.Nil(t, child.Params())
	v, ok := child.Get("tenant")
	require.True(t, ok)
	assert.Equal(t, "acme", v)

	child.Put("correlationId", "c-1")
	child.SetParams(&Params{IV: []byte{2}})
	child.Clear()

	_, ok = parent.Get("correlationId")
	assert.False(t, ok)
	_, ok = parent.Get("tenant")
	assert.True(t, ok)
	require.NotNil(t, parent.Params())
	assert.Equal(t, byte(1), parent.Params().IV[0])
}
