package core

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	AttributeKeyChain       = attribute.Key("chain")
	AttributeKeySource      = attribute.Key("source")
	AttributeKeyTarget      = attribute.Key("target")
	AttributeKeyLane        = attribute.Key("lane")
	AttributeKeyBlockNumber = attribute.Key("block_number")
	AttributeKeyBlockHash   = attribute.Key("block_hash")
	AttributeKeyNonceBegin  = attribute.Key("nonce_begin")
	AttributeKeyNonceEnd    = attribute.Key("nonce_end")
	AttributeKeySession     = attribute.Key("session")
	AttributeKeyPackage     = attribute.Key("package")
)

// AttributeGroup prefixes the given key to all attributes.
//
// For example, if the key is "foo" and the key of an attribute is "bar", the new key will be "foo.bar".
func AttributeGroup(key string, attributes ...attribute.KeyValue) []attribute.KeyValue {
	newAttrs := make([]attribute.KeyValue, 0, len(attributes))
	for _, attr := range attributes {
		newAttrs = append(newAttrs, attribute.KeyValue{
			Key:   attribute.Key(key + "." + string(attr.Key)),
			Value: attr.Value,
		})
	}
	return newAttrs
}

// HeaderAttributes returns the attributes of a header id grouped under key.
func HeaderAttributes(key string, id HeaderID) []attribute.KeyValue {
	return AttributeGroup(key,
		AttributeKeyBlockNumber.Int64(int64(id.Number)),
		AttributeKeyBlockHash.String(id.Hash.String()),
	)
}
