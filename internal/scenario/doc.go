// Package scenario runs equivalence checks described in YAML files.
//
// A scenario names a subject and an expectation, the engine options to
// compare them with, and the outcome the author expects:
//
//	name: order_totals
//	description: Totals computed by the billing job match the ledger
//	subject:
//	  query:
//	    db: billing.db
//	    sql: SELECT id, total FROM invoices ORDER BY id
//	expectation:
//	  file: ledger.yaml
//	options:
//	  excluding: [Notes]
//	expect:
//	  equivalent: true
//
// Each side is exactly one of an inline value, a document file (JSON, YAML
// or CUE) or a read-only SQLite query. Relative paths resolve against the
// scenario file's directory.
//
// Documents are normalized before comparison (see package document), so
// scenarios compare maps of plain values and mismatch paths look like
// "[0].total" or "customer.name".
package scenario
