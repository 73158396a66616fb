package can

import "github.com/cyphal-go/transport"

// ComputeFilters derives the hardware acceptance filter set from the
// active subscriptions, per spec.md §4.4 step 3 and §8 property 10: one
// filter per message subscription always; one filter per service
// subscription only when the node is non-anonymous (an anonymous node
// cannot complete service transfers and has no stable node id for peers
// to address).
func ComputeFilters(reg *subscriptionRegistry, local transport.NodeID) []transport.Filter {
	var filters []transport.Filter
	for _, sub := range reg.all(transport.KindMessage) {
		filters = append(filters, messageFilter(sub.Port))
	}
	if !local.IsUnset() {
		for _, sub := range reg.all(transport.KindRequest) {
			filters = append(filters, serviceFilter(sub.Port, local))
		}
		for _, sub := range reg.all(transport.KindResponse) {
			filters = append(filters, serviceFilter(sub.Port, local))
		}
	}
	return filters
}

// messageFilter accepts any message frame for exactly one subject id,
// regardless of source node or priority.
func messageFilter(subject transport.PortID) transport.Filter {
	mask := uint32(flagServiceNotMessage) | (uint32(MaxSubjectID) << offsetSubjectID)
	id := uint32(subject) << offsetSubjectID
	return transport.Filter{ExtendedID: id, Mask: mask}
}

// serviceFilter accepts any service frame (request or response) for
// exactly one service id addressed to local, regardless of source or
// priority.
func serviceFilter(service transport.PortID, local transport.NodeID) transport.Filter {
	mask := uint32(flagServiceNotMessage) | (uint32(MaxServiceID) << offsetServiceID) | (uint32(MaxNodeID) << offsetDstNodeID)
	id := flagServiceNotMessage | (uint32(service) << offsetServiceID) | (uint32(local) << offsetDstNodeID)
	return transport.Filter{ExtendedID: id, Mask: mask}
}
