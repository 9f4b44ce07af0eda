package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher submits emails to a Mailer from detached goroutines so callers
// never wait on delivery. Each send gets its own timeout context derived
// from context.Background, not from the request: the HTTP response may be
// long gone by the time the send completes.
type Dispatcher struct {
	mailer  Mailer
	lg      *zap.Logger
	timeout time.Duration

	// wg lets tests and graceful shutdown wait for in-flight sends.
	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with the given send timeout.
func NewDispatcher(mailer Mailer, lg *zap.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{mailer: mailer, lg: lg, timeout: timeout}
}

// StatusChanged dispatches a status-change email and returns immediately.
func (d *Dispatcher) StatusChanged(msg StatusChange) {
	d.submit(func(ctx context.Context) error {
		return d.mailer.SendStatusChange(ctx, msg)
	}, zap.String("reference", msg.Reference), zap.String("new_status", msg.NewStatus))
}

// AdminAlerted dispatches an admin alert email and returns immediately.
func (d *Dispatcher) AdminAlerted(msg AdminAlert) {
	d.submit(func(ctx context.Context) error {
		return d.mailer.SendAdminAlert(ctx, msg)
	}, zap.String("subject", msg.Subject))
}

// Wait blocks until all in-flight sends have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) submit(send func(context.Context) error, fields ...zap.Field) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := send(ctx); err != nil {
			d.lg.Error("notification send failed", append(fields, zap.Error(err))...)
		}
	}()
}
