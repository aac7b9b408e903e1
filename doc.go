// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

/*
Package sylvan implements a parallel engine for decision diagrams: Binary
Decision Diagrams (BDD), Multi-Terminal BDDs (MTBDD), Zero-suppressed
Decision Diagrams (ZDD), List Decision Diagrams (LDD), and Tagged BDDs
(TBDD), all sharing one lock-free unique node table, one set of operation
caches, and one work-stealing runtime per Forest.

Basics

A Forest has a fixed number of variables, Varnum, declared when it is
created (with New) and grown as needed with SetVarnum. Each variable is an
index in [0..Varnum), called a level. Operations return a Node, an opaque
handle into the Forest's unique table; 0 and 1 are always the addresses of
the constants False and True.

Concurrency

Unlike a sequential BDD package, every recursive operation (Apply, Ite,
Exist, ...) is spawned across a fixed pool of workers (internal/task) and
may run its two recursive calls in parallel. The unique table
(internal/table) and operation cache (internal/cache) are built to answer
concurrent lookups without locking the whole structure; a stop-the-world
frame (internal/gc) is the only point where all workers are ever
serialized. It runs a garbage collection when the table is too full to keep
allocating, when a collection is requested explicitly, and after every
variable swap made by the reordering engine (internal/reorder).

Use of build tags

Binaries built with the `debug` tag get a lower zerolog threshold, which
makes the Debug-level log lines (such as the collector's per-collection
live and freed counts) visible, the same opt-in verbosity switch rudd
offered with its own `debug` tag.
*/
package sylvan
