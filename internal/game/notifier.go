package game

import "sync"

// Subscriber receives a snapshot after every accepted state change
type Subscriber interface {
	OnUpdate(state State)
}

// SubscriberFunc adapts a function to a Subscriber
type SubscriberFunc func(State)

func (f SubscriberFunc) OnUpdate(state State) { f(state) }

// Notifier fans state snapshots out to subscribers. Subscribers are called
// synchronously in subscription order and must not call back into the
// engine.
type Notifier struct {
	mu          sync.Mutex
	next        int
	order       []int
	subscribers map[int]Subscriber
}

// NewNotifier creates an empty notifier
func NewNotifier() *Notifier {
	return &Notifier{subscribers: make(map[int]Subscriber)}
}

// Subscribe registers s and returns a function that removes it
func (n *Notifier) Subscribe(s Subscriber) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	n.order = append(n.order, id)
	n.subscribers[id] = s

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subscribers, id)
			for i, v := range n.order {
				if v == id {
					n.order = append(n.order[:i], n.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Len returns the number of subscribers
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.order)
}

// Publish delivers state to every subscriber. Subscribers share the value and
// must treat it as read-only.
func (n *Notifier) Publish(state State) {
	n.mu.Lock()
	targets := make([]Subscriber, 0, len(n.order))
	for _, id := range n.order {
		targets = append(targets, n.subscribers[id])
	}
	n.mu.Unlock()

	for _, s := range targets {
		s.OnUpdate(state)
	}
}
