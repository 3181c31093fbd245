// Package codec defines the Codec external collaborator: the
// serialize/unserialize boundary between user values and the ground
// (JSON-compatible, string-encoded) data form vom persists.
package codec

// Codec converts between user values and their "ground" serialized
// form. Ground is defined as any value encoding/json (or an
// API-compatible drop-in) can marshal to a JSON string: the vatstore
// boundary is string-keyed and string-valued, so every serialized
// property value is itself a JSON-encodable string.
//
// Serialize must be side-effect free and must not retain references to
// value's internals — vom calls it before mutating any cache state
// specifically so a failed serialization never leaves state changed.
type Codec interface {
	Serialize(value interface{}) (string, error)
	Unserialize(ground string, out interface{}) error
}
