package hub

import (
	"sort"
	"sync"

	"cryptoflow/internal/model/enum"
)

// Registry holds the topic set of every joined subscriber.
// Unknown subscriber ids are ignored by every mutation.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]map[enum.Topic]struct{}
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]map[enum.Topic]struct{})}
}

// Add registers id with an empty topic set. It reports false if id exists.
func (r *Registry) Add(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[id]; ok {
		return false
	}
	r.subs[id] = make(map[enum.Topic]struct{})
	return true
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[id]; !ok {
		return false
	}
	delete(r.subs, id)
	return true
}

// Subscribe adds topics to id's set. It reports false for an unknown id.
func (r *Registry) Subscribe(id string, topics ...enum.Topic) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subs[id]
	if !ok {
		return false
	}
	for _, topic := range topics {
		set[topic] = struct{}{}
	}
	return true
}

// Unsubscribe removes topics from id's set. It reports false for an unknown id.
func (r *Registry) Unsubscribe(id string, topics ...enum.Topic) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subs[id]
	if !ok {
		return false
	}
	for _, topic := range topics {
		delete(set, topic)
	}
	return true
}

// Match returns the ids subscribed to topic.
func (r *Registry) Match(topic enum.Topic) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, set := range r.subs {
		if _, ok := set[topic]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Topics returns id's topics, sorted.
func (r *Registry) Topics(id string) []enum.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.subs[id]
	topics := make([]enum.Topic, 0, len(set))
	for topic := range set {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}

// Counts returns the number of subscribers per topic.
func (r *Registry) Counts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, set := range r.subs {
		for topic := range set {
			counts[string(topic)]++
		}
	}
	return counts
}
