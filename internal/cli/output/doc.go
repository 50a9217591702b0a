// Package output renders blobtier-cli results.
//
//   - formatter.go: Format names and the Formatter factory
//   - table.go: aligned tables built from structs or slices of structs
//   - json.go, yaml.go: machine-readable output for scripting
//
// Struct fields use the "json" and "yaml" tags for names; a `table:"-"`
// tag hides a field from tables and `table:"wide"` shows it only in wide
// mode.
package output
