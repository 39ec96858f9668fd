package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/logging"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models/serviceresponse"
)

// fakeRunner detecta solapamientos y puede bloquearse hasta que se libere
type fakeRunner struct {
	running  int32
	overlaps int32
	calls    int32
	release  chan struct{}

	mu      sync.Mutex
	runIDs  []string
	refTime *time.Time
}

func (f *fakeRunner) Run(ctx context.Context, referenceTime *time.Time) serviceresponse.WorkflowResult {
	if atomic.AddInt32(&f.running, 1) > 1 {
		atomic.AddInt32(&f.overlaps, 1)
	}
	defer atomic.AddInt32(&f.running, -1)
	atomic.AddInt32(&f.calls, 1)

	f.mu.Lock()
	f.runIDs = append(f.runIDs, logging.RunID(ctx))
	f.refTime = referenceTime
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}
	time.Sleep(time.Millisecond)
	return serviceresponse.WorkflowResult{RunID: logging.RunID(ctx), Success: true, State: serviceresponse.StateDone}
}

func receive(t *testing.T, ch <-chan serviceresponse.WorkflowResult) serviceresponse.WorkflowResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for run result")
		return serviceresponse.WorkflowResult{}
	}
}

func TestRunQueue_SerializesRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &fakeRunner{}
	q := NewRunQueue(runner, zap.NewNop(), 16)
	q.Start(ctx)

	var results []<-chan serviceresponse.WorkflowResult
	for i := 0; i < 10; i++ {
		ch, err := q.Submit(context.Background(), Request{Trigger: "interval"})
		require.NoError(t, err)
		results = append(results, ch)
	}

	for _, ch := range results {
		assert.True(t, receive(t, ch).Success)
	}
	assert.Equal(t, int32(10), atomic.LoadInt32(&runner.calls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&runner.overlaps))
}

func TestRunQueue_AssignsRunIDAndPassesReferenceTime(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &fakeRunner{}
	q := NewRunQueue(runner, nil, 0)
	q.Start(ctx)

	at := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	ch, err := q.Submit(context.Background(), Request{ReferenceTime: &at, Trigger: "manual"})
	require.NoError(t, err)
	result := receive(t, ch)

	assert.NotEmpty(t, result.RunID)
	runner.mu.Lock()
	refTime := runner.refTime
	runner.mu.Unlock()
	require.NotNil(t, refTime)
	assert.True(t, refTime.Equal(at))

	// un run_id ya presente en el contexto se respeta
	ch, err = q.Submit(logging.WithRunFields(context.Background(), "fixed-id", ""), Request{})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", receive(t, ch).RunID)
}

func TestRunQueue_FullQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &fakeRunner{release: make(chan struct{})}
	q := NewRunQueue(runner, zap.NewNop(), 1)
	q.Start(ctx)

	first, err := q.Submit(context.Background(), Request{})
	require.NoError(t, err)
	// esperar a que el worker tome el primero
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runner.calls) == 1 }, 5*time.Second, time.Millisecond)

	second, err := q.Submit(context.Background(), Request{})
	require.NoError(t, err)

	_, err = q.Submit(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(runner.release)
	assert.True(t, receive(t, first).Success)
	assert.True(t, receive(t, second).Success)
}

func TestRunQueue_CancelledCallerDoesNotAbortRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &fakeRunner{}
	q := NewRunQueue(runner, zap.NewNop(), 1)
	q.Start(ctx)

	callerCtx, callerCancel := context.WithCancel(context.Background())
	callerCancel()

	ch, err := q.Submit(callerCtx, Request{})
	require.NoError(t, err)
	assert.True(t, receive(t, ch).Success)
}

func TestRunQueue_Stop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	q := NewRunQueue(&fakeRunner{}, zap.NewNop(), 4)
	q.Start(ctx)
	cancel()
	q.Wait()

	_, err := q.Submit(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrQueueStopped)
}
