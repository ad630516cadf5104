package payment

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educonnectpro/educonnect/core"
)

type outcomes struct {
	sync.Mutex
	list []string
}

func (o *outcomes) ObservePayment(outcome string) {
	o.Lock()
	defer o.Unlock()
	o.list = append(o.list, outcome)
}

func (o *outcomes) get() []string {
	o.Lock()
	defer o.Unlock()
	return append([]string(nil), o.list...)
}

func newTestSimulator(processing, reset time.Duration) (*Simulator, *outcomes) {
	conf := core.NewTestConfig()
	conf.Payment.ProcessingDelay = processing
	conf.Payment.ResetDelay = reset
	obs := new(outcomes)
	return NewSimulator(conf, obs), obs
}

func TestSimulator_Success(t *testing.T) {
	sim, obs := newTestSimulator(20*time.Millisecond, 50*time.Millisecond)
	assert.Equal(t, StateIdle, sim.State("fee-1").State)

	written := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- sim.Confirm(context.Background(), "fee-1", func(ctx context.Context) error {
			close(written)
			return nil
		})
	}()

	assert.Eventually(t, func() bool { return sim.State("fee-1").State == StateProcessing }, time.Second, time.Millisecond)
	<-written
	require.NoError(t, <-done)
	assert.Equal(t, StateSuccess, sim.State("fee-1").State)
	assert.Equal(t, []string{"success"}, obs.get())

	// success resets to idle
	assert.Eventually(t, func() bool { return sim.State("fee-1").State == StateIdle }, time.Second, 5*time.Millisecond)
}

func TestSimulator_FailedWrite(t *testing.T) {
	sim, obs := newTestSimulator(time.Millisecond, time.Hour)

	err := sim.Confirm(context.Background(), "fee-1", func(ctx context.Context) error {
		return errors.New("permission denied")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPaymentFailed))

	tx := sim.State("fee-1")
	assert.Equal(t, StateIdle, tx.State)
	assert.Equal(t, "Payment failed. Please try again.", tx.Message)
	assert.Equal(t, []string{"failure"}, obs.get())

	// retry from idle
	require.NoError(t, sim.Confirm(context.Background(), "fee-1", func(ctx context.Context) error { return nil }))
	assert.Equal(t, StateSuccess, sim.State("fee-1").State)
}

func TestSimulator_Busy(t *testing.T) {
	sim, _ := newTestSimulator(50*time.Millisecond, time.Hour)

	done := make(chan error)
	go func() {
		done <- sim.Confirm(context.Background(), "b-1", func(ctx context.Context) error { return nil })
	}()
	require.Eventually(t, func() bool { return sim.State("b-1").State == StateProcessing }, time.Second, time.Millisecond)

	assert.Equal(t, ErrBusy, sim.Confirm(context.Background(), "b-1", func(ctx context.Context) error { return nil }))
	// other records are independent
	assert.NoError(t, sim.Confirm(context.Background(), "b-2", func(ctx context.Context) error { return nil }))

	require.NoError(t, <-done)
	// not idle until reset
	assert.Equal(t, ErrBusy, sim.Confirm(context.Background(), "b-1", func(ctx context.Context) error { return nil }))
}

func TestSimulator_Cancelled(t *testing.T) {
	sim, _ := newTestSimulator(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	called := false
	go func() {
		done <- sim.Confirm(ctx, "fee-1", func(ctx context.Context) error {
			called = true
			return nil
		})
	}()
	require.Eventually(t, func() bool { return sim.State("fee-1").State == StateProcessing }, time.Second, time.Millisecond)
	cancel()

	err := <-done
	assert.True(t, errors.Is(err, ErrPaymentFailed))
	assert.False(t, called)
	assert.Equal(t, StateIdle, sim.State("fee-1").State)
}

func TestSimulator_ForgetsFinishedPayments(t *testing.T) {
	sim, obs := newTestSimulator(time.Millisecond, 100*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := "fee-" + strconv.Itoa(i)
		err := sim.Confirm(ctx, key, func(ctx context.Context) error { return errors.New("write failed") })
		require.Error(t, err)
		assert.Equal(t, ErrPaymentFailed.Error(), sim.State(key).Message)
	}
	require.NoError(t, sim.Confirm(ctx, "fee-ok", func(ctx context.Context) error { return nil }))
	assert.Equal(t, 6, sim.pending())

	assert.Eventually(t, func() bool { return sim.pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, Transaction{Key: "fee-0", State: StateIdle}, sim.State("fee-0"))
	assert.Len(t, obs.get(), 6)
}

func TestSimulator_ResetKeepsNewerTransaction(t *testing.T) {
	sim, _ := newTestSimulator(time.Millisecond, 100*time.Millisecond)
	ctx := context.Background()

	require.Error(t, sim.Confirm(ctx, "b-1", func(ctx context.Context) error { return errors.New("write failed") }))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, sim.Confirm(ctx, "b-1", func(ctx context.Context) error { return nil }))

	// the first reset fires while the success is still shown
	time.Sleep(70 * time.Millisecond)
	assert.Equal(t, StateSuccess, sim.State("b-1").State)
	assert.Eventually(t, func() bool { return sim.State("b-1").State == StateIdle }, time.Second, 5*time.Millisecond)
}
