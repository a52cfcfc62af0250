// Package schema provides the read-only schema graph consumed by the
// validation gauntlet.
//
// The graph describes tables, columns, column types, primary keys, and
// foreign keys. It is built once (from a YAML file or by extraction from
// a live database), integrity-checked eagerly at load time, and then
// treated as immutable for the lifetime of every validation request.
// No validation stage ever mutates it.
//
// This package contains type definitions, identifier folding, loading,
// and integrity verification only. All other internal packages import
// schema; schema imports nothing internal. This keeps the graph the
// foundational layer with no circular dependencies.
package schema
