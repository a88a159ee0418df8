package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	publishTimeout = 2 * time.Second
	eventQueueSize = 64
)

// Publisher mirrors engine changes to MQTT. Committed transitions go to
// <prefix>/<building>/events. Saved snapshots are retained on
// <prefix>/<building>/snapshot, with one GeoJSON layer per floor on
// <prefix>/<building>/floors/<floor>/geojson.
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
}

// NewPublisher creates a publisher. A nil client disables publishing.
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = os.Getenv("MQTT_PUBLISH_PREFIX")
	}
	if prefix == "" {
		prefix = "plannotate"
	}
	return &Publisher{
		client:        client,
		publishPrefix: prefix,
	}
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// Attach publishes every change of e from a background goroutine until ctx
// is done. The change hook only enqueues, so a slow broker never blocks the
// caller mutating e. Events are dropped when the queue is full. Failures are
// logged, never surfaced to the engine.
func (p *Publisher) Attach(ctx context.Context, e *Engine) {
	events := make(chan Event, eventQueueSize)
	e.OnChange(func(ev Event) {
		select {
		case events <- ev:
		default:
			log.Printf("[MQTT] event queue full, dropping %s", ev.Kind)
		}
	})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				if err := p.PublishEvent(ev); err != nil {
					log.Printf("[MQTT] event %s not published: %v", ev.Kind, err)
				}
			}
		}
	}()
}

// PublishEvent sends one change event, not retained.
func (p *Publisher) PublishEvent(ev Event) error {
	return p.publish(p.topic(ev.BuildingID, "events"), false, ev)
}

// Load is a no-op: the broker is a mirror, not a source of truth.
func (p *Publisher) Load(context.Context) (*Snapshot, error) {
	return nil, nil
}

// Save publishes snap as the retained snapshot so late subscribers get the
// last saved state.
func (p *Publisher) Save(_ context.Context, snap Snapshot) error {
	buildingID := ""
	if snap.Building != nil {
		buildingID = snap.Building.ID
	}
	if err := p.publish(p.topic(buildingID, "snapshot"), true, snap); err != nil {
		return err
	}
	for _, f := range snap.Floors {
		fc, err := FloorFeatures(snap, f.ID)
		if err != nil {
			return err
		}
		if err := p.publish(p.topic(buildingID, "floors/"+f.ID+"/geojson"), true, fc); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) topic(buildingID, leaf string) string {
	if buildingID == "" {
		buildingID = "default"
	}
	return fmt.Sprintf("%s/%s/%s", p.publishPrefix, buildingID, leaf)
}

func (p *Publisher) publish(topic string, retain bool, v any) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling payload for %s: %w", topic, err)
	}
	token := p.client.Publish(topic, p.qos, retain, payload)
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}
