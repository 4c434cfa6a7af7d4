// Package core error codes.
//
// Users quote the code shown next to an error message; support staff look it
// up here.
//
// # Identity Errors (ID001-ID099)
//
//	ID001 - Missing account: No account name was entered
//	        Patterns: "identity is empty"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: An export exceeds the upload size limit
//	          Patterns: "file too large", "request body too large"
//	FILE002 - Invalid CSV: An export is not readable delimited text
//	          Patterns: "invalid csv"
//	FILE003 - Invalid workbook: An .xlsx export could not be opened
//	          Patterns: "invalid xlsx"
//	FILE004 - Unsupported format: Legacy .xls or another binary format
//	          Patterns: "unsupported file format"
//	FILE005 - Malformed form: The upload form could not be parsed
//	          Patterns: "invalid form"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: All generation slots are in use
//	         Patterns: "too many concurrent"
//	UPL004 - Request cancelled
//	         Patterns: "context canceled"
//	UPL005 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # History Errors (DB001-DB099)
//
//	DB001 - History disabled: No database is configured
//	        Patterns: "history disabled"
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//
// # Auth and Rate Limiting
//
//	AUTH001 - Missing API key
//	AUTH002 - Invalid API key
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the server log for the technical
// error, correlated by request_id.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins.
package core

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

// errorPatterns is ordered: specific patterns before general ones.
var errorPatterns = []errorPattern{
	// Identity
	{
		pattern: "identity is empty",
		msg: UserMessage{
			Message: "No account name was entered",
			Action:  "Enter the sAMAccountName of the user to deprovision",
			Code:    "ID001",
		},
	},

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "An export exceeds the maximum upload size",
			Action:  "Remove unrelated sheets or columns and try again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "An export exceeds the maximum upload size",
			Action:  "Remove unrelated sheets or columns and try again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "An export is not a readable CSV file",
			Action:  "Export again as CSV (comma, semicolon or tab separated) or as .xlsx",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid xlsx",
		msg: UserMessage{
			Message: "An Excel export could not be opened",
			Action:  "Open the file in Excel and save it again as .xlsx",
			Code:    "FILE003",
		},
	},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "This file format is not supported",
			Action:  "Save the export as .xlsx or .csv",
			Code:    "FILE004",
		},
	},
	{
		pattern: "invalid form",
		msg: UserMessage{
			Message: "The upload form could not be read",
			Action:  "Reload the page and submit the form again",
			Code:    "FILE005",
		},
	},

	// Upload processing
	{
		pattern: "too many concurrent",
		msg: UserMessage{
			Message: "The system is busy processing other requests",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},

	// History database
	{
		pattern: "history disabled",
		msg: UserMessage{
			Message: "Run history is not enabled on this server",
			Action:  "Set DATABASE_URL to enable run history",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the history database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},

	// Request lifecycle
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try smaller exports or check your connection",
			Code:    "UPL005",
		},
	},

	// Auth
	{
		pattern: "missing api key",
		msg: UserMessage{
			Message: "An API key is required",
			Action:  "Send the key in the X-API-Key header",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "invalid api key",
		msg: UserMessage{
			Message: "The API key is not valid",
			Action:  "Check the key with the server administrator",
			Code:    "AUTH002",
		},
	},

	// Rate limiting
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

// MapError converts a technical error to a user-friendly message. If no
// pattern matches, the ERR000 fallback is returned.
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
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

// UserError pairs a technical error with the message shown to users.
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
