// Package notebook reads Jupyter notebook documents (nbformat JSON).
//
// Notebooks are parsed into version 4 of the schema. Version 3 documents are
// upgraded on read: worksheets are flattened, heading cells become markdown
// headings, and legacy output types and MIME keys are renamed.
//
// The parser checks structure only: required keys, value types, and the
// nbformat version. Cell and output types are preserved as written so the
// exporter can decide what it supports.
//
// Every parsed cell carries a unique id. Missing or duplicate ids are replaced
// with ids derived from the cell position and source, so parsing the same
// document twice yields the same ids.
package notebook
