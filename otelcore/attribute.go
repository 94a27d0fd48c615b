package otelcore

import "go.opentelemetry.io/otel/attribute"

const (
	AttributeKeyMethod      = attribute.Key("method")
	AttributeKeyStorageKeys = attribute.Key("storage_keys")
	AttributeKeySigner      = attribute.Key("signer")
	AttributeKeyNonce       = attribute.Key("nonce")
	AttributeKeyTxHash      = attribute.Key("tx_hash")
)
