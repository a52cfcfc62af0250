// Package sqlast defines the SQL abstract syntax tree produced by the
// parser and consumed by the semantic validator and TRC translator.
//
// Statement, Predicate, and Expr are sealed interfaces using the marker
// method pattern. Only types in this package implement them, which
// keeps the node sets closed and lets every downstream walk use an
// exhaustive type switch instead of runtime type probing. Adding a node
// kind is a compile-visible change to every switch over the interface.
//
// Every node carries its source position so diagnostics can point at
// the offending token of the original SQL text. The tree is built fresh
// per validation request and is never mutated after parsing.
package sqlast
