// Package textnorm repairs the encoding, escaping and whitespace artifacts of
// the legacy feed format.
//
// Each rule is a separate function so it can be tested on its own. Repair
// chains the document-level rules in the order the extractor relies on:
// unwrap CDATA sections, expand newline placeholders, strip control
// characters, collapse space runs. None of the rules checks that the result
// is well-formed XML; malformed payloads surface when a handler parses them.
package textnorm
