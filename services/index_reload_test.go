package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeLoader struct {
	calls    int
	err      error
	deadline bool
}

func (f *fakeLoader) Load(ctx context.Context) error {
	f.calls++
	_, f.deadline = ctx.Deadline()
	return f.err
}

func TestReloadRefreshesIndex(t *testing.T) {
	loader := &fakeLoader{}
	listener := NewIndexReloadListener(nil, loader, time.Second)

	listener.reload(context.Background())
	assert.Equal(t, 1, loader.calls)
	assert.True(t, loader.deadline, "reload must bound the load call")
}

func TestReloadToleratesLoadFailure(t *testing.T) {
	loader := &fakeLoader{err: errors.New("mongo down")}
	listener := NewIndexReloadListener(nil, loader, time.Second)

	// A failed reload keeps the previous snapshot and the listener alive.
	listener.reload(context.Background())
	assert.Equal(t, 1, loader.calls)
}
