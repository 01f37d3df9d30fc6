// Package harness provides a YAML-driven conformance harness for the
// compile pipeline.
//
// A scenario carries an inline workflow source, an environment snapshot and
// expectations about the outcome: whether lowering accepts it, which error
// codes it must produce, how many markers the generated code carries, and
// substrings the code must or must not contain. Scenarios run the real
// parser, compiler and adapter; only the environment and escape cache are
// scenario-controlled, so results are reproducible.
//
// Golden comparison serializes the lowered document with indented
// encoding/json output; Step's custom marshaling keeps attribute keys
// ordered, so golden files are byte-stable across runs and platforms.
package harness
