// Package sample owns the line wire format and its numeric records.
//
// Ownership boundary:
// - tagged numeric values (int, float, none)
// - whole-line kind inference and atomic per-line parsing
// - buffered line reading over a transport
package sample
