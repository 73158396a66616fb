package can

import (
	"github.com/cyphal-go/transport/internal/avltree"
	"github.com/cyphal-go/transport"
)

func comparePortID(a, b transport.PortID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// subscriptionRegistry indexes active subscriptions by port id, one tree
// per transfer kind, per spec.md §3's "at most one Rx session per
// (kind, port-id)" invariant.
type subscriptionRegistry struct {
	byKind [transport.NumKinds]*avltree.Tree[transport.PortID, *Subscription]
}

func newSubscriptionRegistry() *subscriptionRegistry {
	r := &subscriptionRegistry{}
	for i := range r.byKind {
		r.byKind[i] = avltree.New[transport.PortID, *Subscription](comparePortID)
	}
	return r
}

// add registers sub, returning ErrAlreadyExists if its (kind, port)
// already has a subscription.
func (r *subscriptionRegistry) add(sub *Subscription) error {
	tree := r.byKind[sub.Kind]
	if _, exists := tree.Get(sub.Port); exists {
		return transport.ErrAlreadyExists
	}
	tree.Put(sub.Port, sub)
	return nil
}

func (r *subscriptionRegistry) remove(kind transport.Kind, port transport.PortID) {
	r.byKind[kind].Remove(port)
}

func (r *subscriptionRegistry) get(kind transport.Kind, port transport.PortID) (*Subscription, bool) {
	return r.byKind[kind].Get(port)
}

func (r *subscriptionRegistry) all(kind transport.Kind) []*Subscription {
	var out []*Subscription
	r.byKind[kind].Traverse(func(_ transport.PortID, sub *Subscription) {
		out = append(out, sub)
	})
	return out
}

func (r *subscriptionRegistry) count() int {
	n := 0
	for _, t := range r.byKind {
		n += t.Len()
	}
	return n
}
