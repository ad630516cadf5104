package payment

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core"
)

type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
)

var (
	// ErrPaymentFailed is the only error shown to payers. The cause is wrapped for logging.
	ErrPaymentFailed = errors.New("Payment failed. Please try again.")
	ErrBusy          = errors.New("a payment is already in progress")
)

// Transaction is the state of the simulated payment of one record.
type Transaction struct {
	Key       string    `json:"key"`
	State     State     `json:"state"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Observer is notified of every finished payment ("success" or "failure").
type Observer interface {
	ObservePayment(outcome string)
}

// WriteFunc persists the status update of the paid record.
type WriteFunc func(ctx context.Context) error

// Simulator runs the idle -> processing -> success payment flow of a record.
// A failed write returns the record to idle with a message; success resets to idle after a delay.
type Simulator struct {
	processingDelay time.Duration
	resetDelay      time.Duration
	observer        Observer

	mu  sync.Mutex
	txs map[string]*Transaction
}

func NewSimulator(conf *core.Config, observer Observer) *Simulator {
	return &Simulator{
		processingDelay: conf.Payment.ProcessingDelay,
		resetDelay:      conf.Payment.ResetDelay,
		observer:        observer,
		txs:             make(map[string]*Transaction),
	}
}

// State returns the transaction of `key`; unknown keys are idle.
func (s *Simulator) State(key string) Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx, ok := s.txs[key]; ok {
		return *tx
	}
	return Transaction{Key: key, State: StateIdle}
}

func (s *Simulator) setState(key string, state State, msg string) *Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &Transaction{Key: key, State: state, Message: msg, UpdatedAt: time.Now().UTC()}
	s.txs[key] = tx
	return tx
}

// Confirm starts the payment of `key` when idle, waits the processing delay then calls `write`.
// It blocks until the payment succeeds or fails.
func (s *Simulator) Confirm(ctx context.Context, key string, write WriteFunc) error {
	s.mu.Lock()
	if tx, ok := s.txs[key]; ok && tx.State != StateIdle {
		s.mu.Unlock()
		return ErrBusy
	}
	s.txs[key] = &Transaction{Key: key, State: StateProcessing, UpdatedAt: time.Now().UTC()}
	s.mu.Unlock()

	timer := time.NewTimer(s.processingDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		s.fail(key)
		return errors.Wrap(ErrPaymentFailed, ctx.Err().Error())
	case <-timer.C:
	}

	if err := write(ctx); err != nil {
		s.fail(key)
		return errors.Wrap(ErrPaymentFailed, err.Error())
	}

	tx := s.setState(key, StateSuccess, "")
	s.observe("success")
	time.AfterFunc(s.resetDelay, func() { s.reset(key, tx) })
	return nil
}

// fail returns `key` to idle with the failure message, cleared after the reset delay.
func (s *Simulator) fail(key string) {
	tx := s.setState(key, StateIdle, ErrPaymentFailed.Error())
	s.observe("failure")
	time.AfterFunc(s.resetDelay, func() { s.reset(key, tx) })
}

// reset forgets `tx` unless a newer transaction of `key` replaced it.
func (s *Simulator) reset(key string, tx *Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txs[key] == tx {
		delete(s.txs, key)
	}
}

func (s *Simulator) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txs)
}

func (s *Simulator) observe(outcome string) {
	if s.observer != nil {
		s.observer.ObservePayment(outcome)
	}
}
