package netpool

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeDialer(t *testing.T) (DialFunc, *int) {
	dials := 0
	return func(ctx context.Context) (net.Conn, error) {
		dials++
		client, server := net.Pipe()
		t.Cleanup(func() { server.Close() })
		return client, nil
	}, &dials
}

func TestReleaseThenReuse(t *testing.T) {
	p := NewPool(4, 4, 0)
	dial, dials := pipeDialer(t)

	c1, err := p.Get(context.Background(), dial)
	require.NoError(t, err)
	c1.Release()

	c2, err := p.Get(context.Background(), dial)
	require.NoError(t, err)
	assert.Equal(t, 1, *dials, "released connection should be reused")
	assert.Same(t, c1.Raw(), c2.Raw())
}

func TestClosedConnectionNotReused(t *testing.T) {
	p := NewPool(4, 4, 0)
	dial, dials := pipeDialer(t)

	c1, err := p.Get(context.Background(), dial)
	require.NoError(t, err)
	require.NoError(t, c1.Close())

	_, err = p.Get(context.Background(), dial)
	require.NoError(t, err)
	assert.Equal(t, 2, *dials)
}

func TestStaleIdleConnectionDiscarded(t *testing.T) {
	p := NewPool(4, 4, time.Nanosecond)
	dial, dials := pipeDialer(t)

	c1, err := p.Get(context.Background(), dial)
	require.NoError(t, err)
	c1.Release()
	time.Sleep(time.Millisecond)

	_, err = p.Get(context.Background(), dial)
	require.NoError(t, err)
	assert.Equal(t, 2, *dials)
}

func TestConnCapBlocksUntilCtxDone(t *testing.T) {
	p := NewPool(1, 1, 0)
	dial, _ := pipeDialer(t)

	c1, err := p.Get(context.Background(), dial)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Get(ctx, dial)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// freeing the ticket unblocks the next Get
	require.NoError(t, c1.Close())
	c3, err := p.Get(context.Background(), dial)
	require.NoError(t, err)
	c3.Release()
}

func TestGroupKeysIsolatePools(t *testing.T) {
	g := NewGroup(4, 4, 0)
	dial, dials := pipeDialer(t)

	a, err := g.Get(context.Background(), "http://a:80", dial)
	require.NoError(t, err)
	a.Release()

	_, err = g.Get(context.Background(), "http://b:80", dial)
	require.NoError(t, err)
	assert.Equal(t, 2, *dials, "different keys must not share connections")

	c, err := g.Get(context.Background(), "http://a:80", dial)
	require.NoError(t, err)
	assert.Equal(t, 2, *dials)
	c.Release()
}
