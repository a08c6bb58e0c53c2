// Package normalisers holds the text extractors used when importing
// newsletters: eml parses messages and html flattens HTML bodies.
package normalisers
