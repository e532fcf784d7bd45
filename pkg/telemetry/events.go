package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event emitted by the effectivity engine.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// ECOID is the associated change order, if applicable.
	ECOID string `json:"eco_id,omitempty"`

	// EntityType and EntityID reference the document under evaluation,
	// if applicable.
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`

	// Actor is the identity that caused the event, if applicable.
	Actor string `json:"actor,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// Event type constants.
const (
	EventTypeStatusChanged   = "eco.status_changed"
	EventTypeEffectivitySet  = "eco.effectivity_set"
	EventTypeEffectivityEval = "eco.checked"
	EventTypeVersionResolved = "version.resolved"
	EventTypePlanComputed    = "transition_plan.computed"
)

// Event severity levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be delivered.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	ep := &EventPublisher{
		config: cfg,
		buffer: make(chan Event, cfg.BufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if ep == nil || !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Level == "" {
		event.Level = EventLevelInfo
	}

	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// PublishStatusChanged emits a status transition event.
func (ep *EventPublisher) PublishStatusChanged(ecoID, from, to, actor string) error {
	return ep.Publish(Event{
		Type:    EventTypeStatusChanged,
		ECOID:   ecoID,
		Actor:   actor,
		Message: fmt.Sprintf("ECO status changed %s -> %s", from, to),
		Data:    map[string]interface{}{"from": from, "to": to},
	})
}

// PublishEffectivitySet emits an effectivity configuration event.
func (ep *EventPublisher) PublishEffectivitySet(ecoID, kind, value, actor string) error {
	return ep.Publish(Event{
		Type:    EventTypeEffectivitySet,
		ECOID:   ecoID,
		Actor:   actor,
		Message: fmt.Sprintf("ECO effectivity set to %s", kind),
		Data:    map[string]interface{}{"kind": kind, "value": value},
	})
}

// PublishVersionResolved emits a resolution event.
func (ep *EventPublisher) PublishVersionResolved(entityType, entityID, version, source string) error {
	return ep.Publish(Event{
		Type:       EventTypeVersionResolved,
		EntityType: entityType,
		EntityID:   entityID,
		Message:    fmt.Sprintf("resolved effective version %s", version),
		Data:       map[string]interface{}{"version": version, "source": source},
	})
}

// PublishPlanComputed emits a transition plan event.
func (ep *EventPublisher) PublishPlanComputed(ecoID string, transitionDays int, impactValue float64) error {
	return ep.Publish(Event{
		Type:    EventTypePlanComputed,
		ECOID:   ecoID,
		Message: fmt.Sprintf("transition plan computed: %d day window", transitionDays),
		Data: map[string]interface{}{
			"transition_days":    transitionDays,
			"total_impact_value": impactValue,
		},
	})
}

// Subscribe registers a subscriber with an optional filter.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	if ep == nil {
		return
	}
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.subscribers = append(ep.subscribers, subscriberEntry{subscriber: subscriber, filter: filter})
}

// processEvents drains the async buffer until shutdown.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()
	for {
		select {
		case event := <-ep.buffer:
			ep.deliverEvent(event)
		case <-ep.ctx.Done():
			// Drain whatever is left.
			for {
				select {
				case event := <-ep.buffer:
					ep.deliverEvent(event)
				default:
					return
				}
			}
		}
	}
}

// deliverEvent fans the event out to matching subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()
	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown stops event processing, waiting up to the configured timeout for
// in-flight events.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if ep == nil || !ep.config.Enabled || ep.cancel == nil {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	timeout := time.Duration(ep.config.ShutdownTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("event publisher shutdown timed out")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FilterByType keeps only events of the given types.
func FilterByType(types ...string) EventFilter {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(event Event) bool {
		_, ok := set[event.Type]
		return ok
	}
}

// FilterByECOID keeps only events for the given change order.
func FilterByECOID(ecoID string) EventFilter {
	return func(event Event) bool {
		return event.ECOID == ecoID
	}
}
