// Package document loads JSON, YAML and CUE files into plain Go values that
// the equivalency engine can compare.
//
// Every loader produces the same small set of types:
//
//	nil, bool, int64, float64, string, []any, map[string]any
//
// Strings (including object keys) are NFC normalized. Integers stay int64 so
// that 1 loaded from JSON and 1 loaded from YAML compare directly; a float
// that happens to be whole is still a float64 and is reconciled by the
// engine's conversion step.
package document
