package core

// error_messages.go maps technical errors to messages an operator can act on.
//
// # Error Codes Reference
//
// Codes are grouped by where the failure happened:
//
// # Store Errors (DB001-DB099)
//
//	DB001 - Duplicate key: a record with this identity already exists
//	DB002 - Unique constraint: a branch name, TID or contact is already taken
//	DB003 - Foreign key: a referenced branch or district is missing
//	DB004 - Connection refused: the database cannot be reached
//	DB005 - Connection reset: the database connection dropped
//	DB006 - Timeout: the store did not answer in time
//	DB007 - Deadlock: conflicting writes, retry the import
//	DB008 - Not found: a record looked up by key does not exist
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Encoding error: the file could not be decoded in any supported encoding
//	SRC002 - Invalid CSV: quoting or column counts are broken beyond repair
//	SRC003 - Empty file: the file has no header row
//	SRC004 - Missing file: a configured source file does not exist
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Import running: another import holds the run slot
//	IMP002 - Setup failed: the region/district taxonomy could not be created
//	IMP003 - Unknown phase: a phase name was not recognised
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled
//	REQ002 - Request timed out
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches; the logs hold the technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Store
	{"duplicate key", UserMessage{
		Message: "A record with this identity already exists",
		Action:  "Check the source for rows that resolve to the same branch or TID",
		Code:    "DB001",
	}},
	{"unique constraint", UserMessage{
		Message: "This value must be unique but already exists",
		Action:  "Check the source for duplicate branch names or TIDs",
		Code:    "DB002",
	}},
	{"violates unique", UserMessage{
		Message: "A duplicate value was found",
		Action:  "Check the source for duplicate branch names or TIDs",
		Code:    "DB002",
	}},
	{"foreign key", UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Run the branch phase before contacts and ATMs",
		Code:    "DB003",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB005",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Try again later or import fewer files at once",
		Code:    "DB006",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB007",
	}},
	{"record not found", UserMessage{
		Message: "Record not found",
		Action:  "Check the identifier and try again",
		Code:    "DB008",
	}},

	// Source files
	{"encoding error", UserMessage{
		Message: "File could not be decoded",
		Action:  "Save the file as UTF-8 or Windows-1252 CSV",
		Code:    "SRC001",
	}},
	{"invalid csv", UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure file is comma-separated with consistent columns",
		Code:    "SRC002",
	}},
	{"empty file", UserMessage{
		Message: "The source file is empty",
		Action:  "Export the sheet again with its header row",
		Code:    "SRC003",
	}},
	{"no such file", UserMessage{
		Message: "Source file not found",
		Action:  "Check IMPORT_DATA_DIR and the configured file names",
		Code:    "SRC004",
	}},

	// Import runs
	{"already in progress", UserMessage{
		Message: "An import is already running",
		Action:  "Wait for the current import to finish",
		Code:    "IMP001",
	}},
	{"setup failed", UserMessage{
		Message: "Could not prepare the region and districts",
		Action:  "Check database permissions and the taxonomy settings",
		Code:    "IMP002",
	}},
	{"unknown phase", UserMessage{
		Message: "Unknown import phase",
		Action:  "Use one of: branches, contacts, atms, supplementary",
		Code:    "IMP003",
	}},

	// Requests
	{"context canceled", UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Request timed out",
		Action:  "Please try again",
		Code:    "REQ002",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the server logs",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Unknown errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
