package cachesync

import (
	"encoding/json"

	"github.com/kbukum/cachesync/errors"
)

// EntityType names the kind of entity a change message refers to.
type EntityType string

// Entity types the backend emits.
const (
	EntityProduct        EntityType = "product"
	EntityProductVariant EntityType = "productVariant"
	EntityCustomer       EntityType = "customer"
	EntitySupplier       EntityType = "supplier"
	EntityPaymentMethod  EntityType = "paymentMethod"
	EntityStockLocation  EntityType = "stockLocation"
	EntityOrder          EntityType = "order"
)

// KnownEntityTypes returns every entity type the backend emits.
func KnownEntityTypes() []EntityType {
	return []EntityType{
		EntityProduct, EntityProductVariant, EntityCustomer, EntitySupplier,
		EntityPaymentMethod, EntityStockLocation, EntityOrder,
	}
}

// Action is what happened to the entity.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Message is one change notification from the stream.
type Message struct {
	EntityType EntityType `json:"entityType"`
	Action     Action     `json:"action"`
	ChannelID  string     `json:"channelId"`
	ID         string     `json:"id"`
}

// DecodeMessage parses the JSON data of a stream event.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, errors.MalformedMessage(err)
	}
	return m, nil
}

// messageKey identifies the entity a message refers to.
type messageKey struct {
	entityType EntityType
	id         string
}

func (m Message) key() messageKey {
	return messageKey{entityType: m.EntityType, id: m.ID}
}
