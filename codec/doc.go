// Package codec is the single CBOR configuration used on the wire by the
// NATS transport.
//
// Envelopes are encoded with Core Deterministic Encoding: sorted map keys,
// smallest integer encoding and no indefinite-length items. Timestamps are
// encoded as Unix nanoseconds so the source timestamp of a message survives
// the round trip exactly. Message payloads are carried as opaque byte
// strings; codec never looks inside them.
//
// Struct fields use `cbor` tags with short keys:
//
//	type envelope struct {
//	    Kind uint8  `cbor:"k"`
//	    Data []byte `cbor:"d"`
//	}
//
//	data, err := codec.Marshal(envelope{Kind: 1, Data: payload})
//	var decoded envelope
//	err = codec.Unmarshal(data, &decoded)
package codec
