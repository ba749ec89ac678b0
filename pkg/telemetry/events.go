package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a notable occurrence reported to subscribers.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// Feature is the associated feature, if any.
	Feature string `json:"feature,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// Event types.
const (
	EventTypeReferenceLoaded       = "reference.loaded"
	EventTypeReferenceReloaded     = "reference.reloaded"
	EventTypeReferenceReloadFailed = "reference.reload_failed"
	EventTypeLintViolation         = "lint.violation"
	EventTypeSnapshotSaved         = "snapshot.saved"
	EventTypeDeviceError           = "device.error"
)

// Event levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be delivered.
type EventFilter func(event Event) bool

// EventPublisher delivers events to subscribers, synchronously or from a
// background goroutine.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	mu          sync.RWMutex
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	ep := &EventPublisher{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.EnableAsync {
		ep.buffer = make(chan Event, cfg.BufferSize)
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish delivers an event to all matching subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if ep.config.EnableAsync {
		select {
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
		}
		select {
		case ep.buffer <- event:
			return nil
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// PublishReferenceLoaded reports a successful reference build.
func (ep *EventPublisher) PublishReferenceLoaded(api, product string, features int) error {
	return ep.Publish(Event{
		Type:    EventTypeReferenceLoaded,
		Source:  "cmdref",
		Message: fmt.Sprintf("Command reference loaded with %d features", features),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"api":      api,
			"product":  product,
			"features": features,
		},
	})
}

// PublishReferenceReloaded reports a successful hot reload.
func (ep *EventPublisher) PublishReferenceReloaded(features int) error {
	return ep.Publish(Event{
		Type:    EventTypeReferenceReloaded,
		Source:  "cmdref",
		Message: fmt.Sprintf("Command reference reloaded with %d features", features),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"features": features,
		},
	})
}

// PublishReferenceReloadFailed reports a rejected hot reload.
func (ep *EventPublisher) PublishReferenceReloadFailed(err error) error {
	return ep.Publish(Event{
		Type:    EventTypeReferenceReloadFailed,
		Source:  "cmdref",
		Message: fmt.Sprintf("Command reference reload rejected: %v", err),
		Level:   EventLevelError,
	})
}

// PublishLintViolation reports a lint violation.
func (ep *EventPublisher) PublishLintViolation(policy, feature, severity, message string) error {
	level := EventLevelWarning
	if severity == "error" {
		level = EventLevelError
	}
	return ep.Publish(Event{
		Type:    EventTypeLintViolation,
		Source:  "policy",
		Feature: feature,
		Message: fmt.Sprintf("%s: %s", policy, message),
		Level:   level,
		Data: map[string]interface{}{
			"policy":   policy,
			"severity": severity,
		},
	})
}

// PublishSnapshotSaved reports a stored snapshot.
func (ep *EventPublisher) PublishSnapshotSaved(id string, features int) error {
	return ep.Publish(Event{
		Type:    EventTypeSnapshotSaved,
		Source:  "stores",
		Message: fmt.Sprintf("Snapshot %s saved with %d features", id, features),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"snapshot_id": id,
			"features":    features,
		},
	})
}

// PublishDeviceError reports a failed device exchange.
func (ep *EventPublisher) PublishDeviceError(host, feature string, err error) error {
	return ep.Publish(Event{
		Type:    EventTypeDeviceError,
		Source:  "node",
		Feature: feature,
		Message: fmt.Sprintf("Device %s: %v", host, err),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"host": host,
		},
	})
}

// Subscribe adds a subscriber. A nil filter receives every event.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	for {
		select {
		case event := <-ep.buffer:
			ep.deliverEvent(event)
		case <-ep.ctx.Done():
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

// Shutdown stops the publisher after draining buffered events.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// FilterByLevel allows events of minLevel or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}
	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType allows events of the given types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}
