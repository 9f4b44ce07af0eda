package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingMailer struct {
	mu            sync.Mutex
	statusChanges []StatusChange
	alerts        []AdminAlert
	err           error
	block         chan struct{}
}

func (m *recordingMailer) SendStatusChange(_ context.Context, msg StatusChange) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusChanges = append(m.statusChanges, msg)
	return m.err
}

func (m *recordingMailer) SendAdminAlert(_ context.Context, msg AdminAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, msg)
	return m.err
}

func TestDispatcher_StatusChanged(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, zaptest.NewLogger(t), time.Second)

	d.StatusChanged(StatusChange{
		Recipient:      "mira@example.com",
		Reference:      "BK-2025-0042",
		PreviousStatus: "PENDING",
		NewStatus:      "PAID",
		TotalAmount:    decimal.RequireFromString("34.50"),
		DeliveryLabel:  "Econt office Sofia-Center",
	})
	d.Wait()

	require.Len(t, mailer.statusChanges, 1)
	msg := mailer.statusChanges[0]
	assert.Equal(t, "BK-2025-0042", msg.Reference)
	assert.Equal(t, "PAID", msg.NewStatus)
}

func TestDispatcher_SendFailureIsSwallowed(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp: connection refused")}
	d := NewDispatcher(mailer, zaptest.NewLogger(t), time.Second)

	// A failing mailer must not panic or surface anywhere.
	d.StatusChanged(StatusChange{Reference: "BK-1"})
	d.AdminAlerted(AdminAlert{Subject: "order stuck"})
	d.Wait()
}

func TestDispatcher_DoesNotBlockCaller(t *testing.T) {
	mailer := &recordingMailer{block: make(chan struct{})}
	d := NewDispatcher(mailer, zaptest.NewLogger(t), time.Second)

	done := make(chan struct{})
	go func() {
		d.StatusChanged(StatusChange{Reference: "BK-2"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("StatusChanged blocked on a slow mailer")
	}
	close(mailer.block)
	d.Wait()
}
