package core

// error_messages.go maps technical errors to user-friendly messages with
// codes for support reference.
//
// # Edit Errors (EDIT001-EDIT099)
//
//	EDIT001 - Index out of range: The row or column no longer exists
//	          Action: Reload the table and try again
//	          Patterns: "index out of range"
//
//	EDIT002 - Invariant: The table must keep at least one column
//	          Action: Use Clear to remove every column
//	          Patterns: "table invariant violation"
//
//	EDIT003 - Unknown edit: The requested edit is not supported
//	          Action: Refresh the page
//	          Patterns: "unknown edit operation"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds maximum size limit
//	FILE002 - Unsupported format: Only CSV, JSON and XLSX files are supported
//	FILE003 - Invalid file: The file could not be read in the claimed format
//	FILE004 - No file: No file was selected
//	FILE005 - Empty file: The uploaded file is empty
//
// # Generation Errors (GEN001-GEN099)
//
//	GEN001 - Precondition: Headers and a description are required
//	GEN002 - In progress: A generation is already running for this table
//	GEN003 - Busy: Too many generations in progress
//	GEN004 - Not configured: Data generation is not available
//	GEN005 - Failed: The data generation service failed
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session expired: The editing session no longer exists
//	SES002 - Too many sessions: The server has reached its session limit
//
// # Request Errors (REQ001-REQ099) and Rate Limiting (RATE001)
//
//	REQ001 - Request cancelled
//	REQ002 - Request timeout
//	REQ003 - Malformed request body
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check the application logs for
// the original technical error.
//
// # Pattern Matching
//
// Patterns are matched case-insensitively using strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Edit Errors (EDIT001-EDIT003)
	// =========================================================================
	{
		pattern: "index out of range",
		msg: UserMessage{
			Message: "The row or column no longer exists",
			Action:  "Reload the table and try again",
			Code:    "EDIT001",
		},
	},
	{
		pattern: "table invariant violation",
		msg: UserMessage{
			Message: "The table must keep at least one column",
			Action:  "Use Clear to remove every column",
			Code:    "EDIT002",
		},
	},
	{
		pattern: "unknown edit operation",
		msg: UserMessage{
			Message: "The requested edit is not supported",
			Action:  "Refresh the page and try again",
			Code:    "EDIT003",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// "unsupported format" must precede the general "invalid format".
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller parts",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported format",
		msg: UserMessage{
			Message: "Only CSV, JSON and XLSX files are supported",
			Action:  "Save the file with a .csv, .json or .xlsx extension",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid format",
		msg: UserMessage{
			Message: "The file could not be processed",
			Action:  "Check the file format. JSON must be a non-empty array of objects",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV, JSON or XLSX file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a file with data",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Generation Errors (GEN001-GEN005)
	// =========================================================================
	{
		pattern: "generation requires",
		msg: UserMessage{
			Message: "Headers and a description are required",
			Action:  "Define the headers and describe the data to generate",
			Code:    "GEN001",
		},
	},
	{
		pattern: "generation already in progress",
		msg: UserMessage{
			Message: "A generation is already running for this table",
			Action:  "Wait for it to finish",
			Code:    "GEN002",
		},
	},
	{
		pattern: "too many concurrent generations",
		msg: UserMessage{
			Message: "The generator is busy",
			Action:  "Please wait a moment and try again",
			Code:    "GEN003",
		},
	},
	{
		pattern: "generation not configured",
		msg: UserMessage{
			Message: "Data generation is not available",
			Action:  "Ask the administrator to configure GENERATION_API_KEY",
			Code:    "GEN004",
		},
	},
	{
		pattern: "generation failed",
		msg: UserMessage{
			Message: "An error occurred while generating data",
			Action:  "Please try again",
			Code:    "GEN005",
		},
	},

	// =========================================================================
	// Session Errors (SES001-SES002)
	// =========================================================================
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Your editing session has expired",
			Action:  "Reload the page to start a new session",
			Code:    "SES001",
		},
	},
	{
		pattern: "too many active sessions",
		msg: UserMessage{
			Message: "The server is at capacity",
			Action:  "Please try again later",
			Code:    "SES002",
		},
	},

	// =========================================================================
	// Request Errors (REQ001-REQ003)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be understood",
			Action:  "Refresh the page and try again",
			Code:    "REQ003",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first pattern match, or the ERR000 fallback.
//
// Example:
//
//	msg := MapError(table.DeleteColumn(0))
//	// msg.Code == "EDIT002" for a single-column table
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

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
