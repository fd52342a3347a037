package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsAcceptsURLAndAddress(t *testing.T) {
	opts := Options("redis://:secret@cache:6380/2")
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	plain := Options("127.0.0.1:6379")
	assert.Equal(t, "127.0.0.1:6379", plain.Addr)
}

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client, err := New(context.Background(), addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	mr.Close()
	_, err = New(context.Background(), addr)
	assert.Error(t, err)
}
