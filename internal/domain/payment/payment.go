// Package payment dispatches a payment-method tag to its settlement
// routine. Settlement runs a verification step (a hook for future fraud and
// identity checks) followed by an external confirmation; only the
// confirmation can decline. A decline is a valid outcome, not an error.
package payment

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnknownMethod is returned when no method is registered for the tag.
var ErrUnknownMethod = errors.New("unknown payment method")

// Outcome is the result of a settlement attempt.
type Outcome string

const (
	Settled  Outcome = "settled"
	Declined Outcome = "declined"
)

// Request carries the settlement input.
type Request struct {
	Amount       decimal.Decimal
	CustomerName string
}

// Receipt records the result of a settlement attempt.
type Receipt struct {
	ID      string
	Method  string
	Amount  decimal.Decimal
	Outcome Outcome
}

// Confirmer is the external confirmation port. The original flow blocked on
// interactive input; injecting it keeps the dispatcher testable and lets
// callers impose timeouts through ctx.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AutoConfirm approves every confirmation request.
func AutoConfirm() Confirmer {
	return ConfirmerFunc(func(context.Context, string) (bool, error) {
		return true, nil
	})
}

// Counter tallies settlement outcomes. The QR method reports every attempt
// to it.
type Counter interface {
	Inc(outcome Outcome)
}

// VerifyFunc is the identity/fraud verification step. It always succeeds in
// this implementation but is ctx-aware so it can be cancelled.
type VerifyFunc func(ctx context.Context, customerName string) error

// Method is a payment-method variant.
type Method interface {
	Tag() string
	Settle(ctx context.Context, req Request, confirm Confirmer) (Outcome, error)
}

// Config holds the dispatcher dependencies.
type Config struct {
	Confirmer Confirmer
	// QRCounter receives per-attempt tallies from the QR method.
	// Defaults to a no-op counter.
	QRCounter Counter
	// Verify overrides the verification step. Defaults to a simulated
	// 150ms check.
	Verify VerifyFunc
}

// Dispatcher maps payment-method tags to settlement routines.
type Dispatcher struct {
	mu      sync.RWMutex
	methods map[string]Method
	confirm Confirmer
	verify  VerifyFunc
}

// NewDispatcher creates a dispatcher with the five built-in methods
// registered.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Verify == nil {
		cfg.Verify = simulatedVerify
	}
	if cfg.QRCounter == nil {
		cfg.QRCounter = nopCounter{}
	}
	d := &Dispatcher{
		methods: make(map[string]Method),
		confirm: cfg.Confirmer,
		verify:  cfg.Verify,
	}
	d.Register(BankTransfer{})
	d.Register(Card{})
	d.Register(CashOnDelivery{})
	d.Register(Crypto{})
	d.Register(QR{Counter: cfg.QRCounter})
	return d
}

// Register adds or replaces a payment method under its tag.
func (d *Dispatcher) Register(m Method) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.methods[m.Tag()] = m
}

// Tags returns the registered method tags.
func (d *Dispatcher) Tags() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tags := make([]string, 0, len(d.methods))
	for tag := range d.methods {
		tags = append(tags, tag)
	}
	return tags
}

// Settle verifies the customer and runs the method's settlement routine.
// A declined confirmation produces a Declined receipt, not an error.
func (d *Dispatcher) Settle(ctx context.Context, tag string, req Request) (*Receipt, error) {
	d.mu.RLock()
	m, ok := d.methods[tag]
	d.mu.RUnlock()
	if !ok {
		return nil, errors.Wrap(ErrUnknownMethod, tag)
	}

	if err := d.verify(ctx, req.CustomerName); err != nil {
		return nil, errors.Wrap(err, "verify customer")
	}

	outcome, err := m.Settle(ctx, req, d.confirm)
	if err != nil {
		return nil, errors.Wrapf(err, "settle via %s", tag)
	}

	return &Receipt{
		ID:      uuid.New().String(),
		Method:  tag,
		Amount:  req.Amount,
		Outcome: outcome,
	}, nil
}

func simulatedVerify(ctx context.Context, _ string) error {
	t := time.NewTimer(150 * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopCounter struct{}

func (nopCounter) Inc(Outcome) {}
