// Package core holds the inventory domain shared by the importer, the stores
// and the web layer.
//
// It contains no transport or database code and can be used by the CLI, the
// HTTP server or tests without modification.
//
// # Data Model
//
// Regions own districts, districts group branches, and branches own contact
// persons. ATMs reference a branch weakly: deleting the branch leaves the ATM
// with no branch. Optional fields are [pgtype.Text] so a missing value is
// distinguishable from an empty one.
//
// # Reading Sources
//
// [ReadTable] loads a CSV or XLSX export. CSV bytes are decoded by trying
// each configured encoding in order; when none decodes cleanly the file is
// read once more with invalid bytes replaced by '?'. Headers are trimmed and
// made unique, and [Row.Lookup] finds a value under any of several aliases,
// first by exact name and then by folded name.
//
// # Normalization
//
// Cells pass through [CleanValue], which maps the usual spreadsheet
// placeholders ("nan", "N/A", "-", ...) to null. Identifiers such as ATM TIDs
// go through [NormalizeIdentifier], which turns "1001.0" and "1.001E+3" back
// into "1001".
//
// # Merging
//
// [BranchPatch] and [ATMPatch] carry the values of one source row. Applying a
// patch overwrites a stored field only when the incoming value is non-null,
// so a sparse source never erases what a richer one wrote.
//
// # Branch Resolution
//
// Sources spell branch names inconsistently. [BranchResolver] tries, in
// order, an exact identity match, a case-insensitive match, a substring match
// and a first-token match, stopping at its configured [MatchTier]. Ties go to
// the alphabetically smallest name.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB001-DB008: Database errors (duplicates, constraints, connections, not found)
//   - SRC001-SRC004: Source file errors (missing, encoding, format)
//   - IMP001-IMP003: Import errors (already running, setup failed, unknown phase)
package core
