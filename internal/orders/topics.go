package orders

const (
	TopicOrderReserved = "order.reserved"
)

// Partition key = offer_id, so events for one offer keep their order.
func PartitionKey(offerID string) []byte { return []byte(offerID) }
