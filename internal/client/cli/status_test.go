package cli

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/silverkiwi/jobs-manager-sub002/internal/client/client"
	"github.com/silverkiwi/jobs-manager-sub002/internal/client/viewmodel"
	"github.com/silverkiwi/jobs-manager-sub002/internal/common"
)

type pingStub struct {
	mu  sync.Mutex
	err error
}

func (s *pingStub) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *pingStub) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *pingStub) Close() error { return nil }
func (s *pingStub) Login(ctx context.Context, username string, password []byte) error {
	return nil
}
func (s *pingStub) Hydrate(ctx context.Context, kind common.DocumentKind, key string) (*viewmodel.Hydration, error) {
	return nil, common.ErrorNotFound
}
func (s *pingStub) Save(ctx context.Context, snapshot *viewmodel.Snapshot) (*client.SaveResult, error) {
	return &client.SaveResult{Success: true}, nil
}

func TestStatusPoller_TracksReachability(t *testing.T) {
	stub := &pingStub{}
	p := newStatusPoller(stub, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	assert.Eventually(t, p.Online, time.Second, 5*time.Millisecond)

	stub.setErr(errors.New("connection refused"))
	assert.Eventually(t, func() bool { return !p.Online() }, time.Second, 5*time.Millisecond)

	stub.setErr(nil)
	assert.Eventually(t, p.Online, time.Second, 5*time.Millisecond)
}
