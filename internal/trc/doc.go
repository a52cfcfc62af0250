// Package trc implements the tuple relational calculus side of the
// gauntlet: formula types, the deterministic SQL→TRC translator, the
// total TRC→readable renderer (canonical symbolic notation plus an
// English gloss), and a parser for the symbolic notation.
//
// A query is a set-builder head over a body formula: {t | φ(t)}. The
// translator assigns one tuple variable per table reference in
// FROM-then-JOIN order and conjoins one relation atom per table with
// the translated join and WHERE predicates. Translation is a pure
// function of the statement and schema graph; running it twice yields
// byte-identical renderings.
//
// Formula and Term are sealed interfaces using the marker method
// pattern, so the safety checker's walks are exhaustive type switches
// over a closed node set.
package trc
