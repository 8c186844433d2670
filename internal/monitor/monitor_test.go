// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"autoback/internal/identity"
)

const (
	appA uint64 = 0x0100000000010000
	appB uint64 = 0x0100000000020000
)

var alice = identity.NewAccount(identity.AccountUID{1, 2}, "alice")

// MockResolver testify mock 版 identity.Resolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) ActiveApplication(ctx context.Context) (identity.ApplicationIdentity, error) {
	args := m.Called(ctx)
	return args.Get(0).(identity.ApplicationIdentity), args.Error(1)
}

func (m *MockResolver) DisplayName(ctx context.Context, app identity.ApplicationIdentity) (string, error) {
	args := m.Called(ctx, app)
	return args.String(0), args.Error(1)
}

func (m *MockResolver) DrivingAccount(ctx context.Context) (identity.AccountIdentity, error) {
	args := m.Called(ctx)
	return args.Get(0).(identity.AccountIdentity), args.Error(1)
}

// scriptedResolver 按脚本依次返回前台应用；脚本耗尽后重复最后一个
type scriptedResolver struct {
	ids     []uint64
	pos     int
	account identity.AccountIdentity
	// noAccount 中的应用进入时账户不可用
	noAccount map[uint64]bool
	current   uint64
}

func (s *scriptedResolver) ActiveApplication(ctx context.Context) (identity.ApplicationIdentity, error) {
	id := s.ids[len(s.ids)-1]
	if s.pos < len(s.ids) {
		id = s.ids[s.pos]
		s.pos++
	}
	s.current = id
	return identity.ApplicationIdentity{ID: id}, nil
}

func (s *scriptedResolver) DisplayName(ctx context.Context, app identity.ApplicationIdentity) (string, error) {
	return "", nil
}

func (s *scriptedResolver) DrivingAccount(ctx context.Context) (identity.AccountIdentity, error) {
	if s.noAccount[s.current] {
		return identity.AccountIdentity{}, identity.ErrUnavailable
	}
	return s.account, nil
}

type recordingRunner struct {
	mu   sync.Mutex
	jobs []ArchiveJob
	err  error
}

func (r *recordingRunner) Run(ctx context.Context, job ArchiveJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return r.err
}

func (r *recordingRunner) appIDs() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j.Application.ID)
	}
	return out
}

func tickAll(t *testing.T, m *SessionMonitor, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, m.Tick(context.Background()))
	}
}

func TestTick_ZeroAABZero(t *testing.T) {
	res := &scriptedResolver{ids: []uint64{0, appA, appA, appB, 0}, account: alice}
	runner := &recordingRunner{}
	m := New(res, runner, Options{})

	tickAll(t, m, 5)

	assert.Equal(t, []uint64{appA, appB}, runner.appIDs())
	for _, j := range runner.jobs {
		assert.Equal(t, alice, j.Account)
		assert.NotEmpty(t, j.ID)
		assert.False(t, j.Timestamp.IsZero())
	}
	assert.Equal(t, StateIdle, m.Snapshot().State)
	assert.Equal(t, 2, m.Snapshot().JobsRun)
}

func TestTick_NoAccountSkipsButAdvances(t *testing.T) {
	res := &scriptedResolver{
		ids:       []uint64{0, appA, appB, 0},
		account:   alice,
		noAccount: map[uint64]bool{appA: true},
	}
	runner := &recordingRunner{}
	m := New(res, runner, Options{})

	tickAll(t, m, 3) // 0, A, B
	assert.Empty(t, runner.appIDs(), "A->B without a cached account must not archive")
	st := m.Snapshot()
	assert.Equal(t, StateTracking, st.State)
	assert.Equal(t, identity.ApplicationIdentity{ID: appB}.Hex(), st.AppID)

	tickAll(t, m, 1) // B -> 0
	assert.Equal(t, []uint64{appB}, runner.appIDs())
}

func TestTick_ShellIsIdle(t *testing.T) {
	res := &scriptedResolver{ids: []uint64{identity.ShellID, appA, identity.ShellID, 0}, account: alice}
	runner := &recordingRunner{}
	m := New(res, runner, Options{})

	tickAll(t, m, 4)
	assert.Equal(t, []uint64{appA}, runner.appIDs())
}

func TestTick_FailedJobNotRetried(t *testing.T) {
	res := &scriptedResolver{ids: []uint64{appA, 0, 0, 0}, account: alice}
	runner := &recordingRunner{err: errors.New("disk full")}
	m := New(res, runner, Options{})

	tickAll(t, m, 4)
	assert.Equal(t, []uint64{appA}, runner.appIDs())
	assert.Equal(t, 1, m.Snapshot().JobsFailed)
}

func TestTick_ResolverErrorIsNoChange(t *testing.T) {
	res := new(MockResolver)
	res.On("ActiveApplication", mock.Anything).Return(identity.ApplicationIdentity{ID: appA}, nil).Once()
	res.On("DrivingAccount", mock.Anything).Return(alice, nil).Once()
	res.On("ActiveApplication", mock.Anything).Return(identity.ApplicationIdentity{}, identity.ErrNotRunning).Once()
	res.On("ActiveApplication", mock.Anything).Return(identity.ApplicationIdentity{ID: appB}, nil).Once()
	res.On("DrivingAccount", mock.Anything).Return(alice, nil).Once()

	runner := &recordingRunner{}
	m := New(res, runner, Options{})

	require.NoError(t, m.Tick(context.Background()))
	err := m.Tick(context.Background())
	require.ErrorIs(t, err, identity.ErrNotRunning)
	assert.Empty(t, runner.appIDs(), "a failed query must not look like an edge to idle")
	assert.Equal(t, StateTracking, m.Snapshot().State)

	require.NoError(t, m.Tick(context.Background()))
	assert.Equal(t, []uint64{appA}, runner.appIDs())
	res.AssertExpectations(t)
}

func TestPrime_ResolvesAccountForRunningApp(t *testing.T) {
	res := new(MockResolver)
	res.On("ActiveApplication", mock.Anything).Return(identity.ApplicationIdentity{ID: appA, DisplayName: "Game A"}, nil).Once()
	res.On("DrivingAccount", mock.Anything).Return(alice, nil).Once()
	res.On("ActiveApplication", mock.Anything).Return(identity.ApplicationIdentity{}, nil).Once()

	runner := &recordingRunner{}
	m := New(res, runner, Options{})
	m.Prime(context.Background())

	st := m.Snapshot()
	assert.Equal(t, StateTracking, st.State)
	assert.Equal(t, "alice", st.Nickname)
	assert.Equal(t, "Game A", st.AppName)

	require.NoError(t, m.Tick(context.Background()))
	assert.Equal(t, []uint64{appA}, runner.appIDs())
	res.AssertExpectations(t)
}

func TestRun_StopsOnStop(t *testing.T) {
	res := &scriptedResolver{ids: []uint64{0}, account: alice}
	m := New(res, &recordingRunner{}, Options{Interval: 5 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	m.Stop()
	m.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.Positive(t, m.Snapshot().TickCount)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	res := &scriptedResolver{ids: []uint64{0}, account: alice}
	m := New(res, JobRunnerFunc(func(ctx context.Context, job ArchiveJob) error { return nil }), Options{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
