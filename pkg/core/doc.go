// Package core defines the shared language of the mapsql system.
//
// This package contains:
//   - Domain entities (ModelSpec, ColumnMapping, JoinSpec, KeySet, DDLColumn)
//   - Schedule descriptors (ScheduleSpec)
//   - The error taxonomy shared by extractors and compilers
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
