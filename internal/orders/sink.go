package orders

// Event names emitted by the engine.
const (
	EventOrderCreated       = "order-created"
	EventOrderUpdated       = "order-updated"
	EventOrderStatusUpdated = "order-status-updated"
	EventTableStatusChanged = "table-status-changed"
	EventPaymentReceived    = "payment-received"
)

// EventSink receives engine events after a successful commit. Implementations
// must be best effort: a sink failure is the sink's problem to log and never
// propagates back to the caller.
type EventSink interface {
	Emit(event string, data map[string]any)
}

// NopSink discards everything. Used when no broadcaster is configured.
type NopSink struct{}

func (NopSink) Emit(string, map[string]any) {}

// MultiSink fans one event out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) Emit(event string, data map[string]any) {
	for _, s := range m {
		s.Emit(event, data)
	}
}
