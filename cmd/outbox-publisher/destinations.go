package main

import (
	"context"
	"errors"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

// destinations keeps one publisher per Pub/Sub topic for the life of the
// loop. The saga fans AccountActionDone out to two topics, so a batch
// usually touches three or four of them.
type destinations struct {
	factory publisherFactory

	mu      sync.Mutex
	byTopic map[string]publisher
}

func newDestinations(factory publisherFactory) *destinations {
	return &destinations{factory: factory, byTopic: map[string]publisher{}}
}

// lookup returns nil when no publisher can be built for topic. The miss is
// not cached so a topic created after start is picked up on the next batch.
func (d *destinations) lookup(topic string) publisher {
	if topic == "" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if pub, ok := d.byTopic[topic]; ok {
		return pub
	}
	pub := d.factory(topic)
	if pub == nil {
		return nil
	}
	d.byTopic[topic] = pub
	return pub
}

// stop flushes buffered messages on every topic publisher.
func (d *destinations) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for topic, pub := range d.byTopic {
		if s, ok := pub.(interface{ Stop() }); ok {
			s.Stop()
		}
		delete(d.byTopic, topic)
	}
}

func newGCPPubPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
