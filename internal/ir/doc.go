// Package ir defines the versioned intermediate representation mediating
// between the parser and the code generators.
//
// # Contract
//
// A Document is built once per compile by the compiler package, validated
// against the embedded schema before any code generation begins, and held
// read-only afterwards. Step attributes are a closed sum (StepAttr) rather
// than an open mapping: unknown-attribute detection happens exactly once,
// at lowering, and generator dispatch is a total match.
//
// # Content addressing
//
// Escape-cache keys are SHA-256 hashes with domain separation over RFC 8785
// canonical JSON (UTF-16 key order, NFC-normalized strings, no floats, no
// null). MarshalCanonical is the only serialization allowed to feed a hash;
// the ordinary JSON encoding of a Document is for human-facing output and
// the wire format, not identity.
package ir
