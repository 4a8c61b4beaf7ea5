package dberr

import (
	"errors"
	"fmt"
	"strings"
)

// Category classifies errors by their nature and appropriate handling
// strategy.
type Category int

const (
	// CategoryUser represents errors caused by invalid SQL or operations
	// that violate the schema. Fixable by changing the statement.
	CategoryUser Category = iota

	// CategorySystem represents storage-layer faults such as a full
	// backing file. These are reported per-operation and the engine
	// stays open.
	CategorySystem

	// CategoryData represents corruption: page checksum failures,
	// invalid type tags, unreadable log records.
	CategoryData

	// CategoryInternal represents invariant violations inside the
	// engine, e.g. an index update failing after the primary page
	// write succeeded.
	CategoryInternal
)

// Error codes for every failure the engine reports across the statement
// boundary.
const (
	CodeSyntaxError         = "SYNTAX_ERROR"
	CodeSchemaViolation     = "SCHEMA_VIOLATION"
	CodeUnknownTable        = "UNKNOWN_TABLE"
	CodeUnknownColumn       = "UNKNOWN_COLUMN"
	CodeDuplicateTable      = "DUPLICATE_TABLE"
	CodeDuplicateIndex      = "DUPLICATE_INDEX"
	CodeInvalidSchema       = "INVALID_SCHEMA"
	CodePrimaryKeyViolation = "PRIMARY_KEY_VIOLATION"
	CodeStorageFull         = "STORAGE_FULL"
	CodeCorruptPage         = "CORRUPT_PAGE"
	CodeLogCorruption       = "LOG_CORRUPTION"
	CodeInternal            = "INTERNAL"
)

// DBError is the structured error every component returns up to the
// executor. Callers always receive one of these; a raw error never
// crosses the statement boundary.
type DBError struct {
	// Code is the stable identifier for this error kind, e.g.
	// "PRIMARY_KEY_VIOLATION".
	Code string

	// Category classifies the error for handling strategy.
	Category Category

	// Message is a human-readable description of what went wrong.
	Message string

	// Detail narrows the message to the specific instance, e.g.
	// "table 'users' already exists".
	Detail string

	// Position is the byte offset of the offending token for syntax
	// errors, -1 when not applicable.
	Position int

	// Cause is the underlying error, if any.
	Cause error
}

func (e *DBError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.Position >= 0 {
		fmt.Fprintf(&b, " (at position %d)", e.Position)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " caused by: %v", e.Cause)
	}
	return b.String()
}

func (e *DBError) Unwrap() error {
	return e.Cause
}

// New creates a DBError with the given code, category and detail text.
func New(category Category, code, detail string) *DBError {
	return &DBError{
		Code:     code,
		Category: category,
		Message:  messageFor(code),
		Detail:   detail,
		Position: -1,
	}
}

// Newf is New with a formatted detail string.
func Newf(category Category, code, format string, args ...any) *DBError {
	return New(category, code, fmt.Sprintf(format, args...))
}

// Syntax creates a syntax error pinned to a byte position in the
// statement text. expected names the token class the parser wanted.
func Syntax(position int, expected, got string) *DBError {
	return &DBError{
		Code:     CodeSyntaxError,
		Category: CategoryUser,
		Message:  messageFor(CodeSyntaxError),
		Detail:   fmt.Sprintf("expected %s, got %s", expected, got),
		Position: position,
	}
}

// Wrap attaches an engine error code to an underlying error. If err is
// already a DBError it is returned unchanged so the original code and
// position survive.
func Wrap(err error, category Category, code, detail string) *DBError {
	if err == nil {
		return nil
	}
	var dbe *DBError
	if errors.As(err, &dbe) {
		return dbe
	}
	return &DBError{
		Code:     code,
		Category: category,
		Message:  messageFor(code),
		Detail:   detail,
		Position: -1,
		Cause:    err,
	}
}

// Is reports whether err carries the given engine error code.
func Is(err error, code string) bool {
	var dbe *DBError
	return errors.As(err, &dbe) && dbe.Code == code
}

// As extracts the DBError from err, wrapping unknown errors as INTERNAL
// so the caller always gets a structured outcome.
func As(err error) *DBError {
	if err == nil {
		return nil
	}
	var dbe *DBError
	if errors.As(err, &dbe) {
		return dbe
	}
	return Wrap(err, CategoryInternal, CodeInternal, "")
}

func messageFor(code string) string {
	switch code {
	case CodeSyntaxError:
		return "malformed SQL"
	case CodeSchemaViolation:
		return "statement violates table schema"
	case CodeUnknownTable:
		return "table does not exist"
	case CodeUnknownColumn:
		return "column does not exist"
	case CodeDuplicateTable:
		return "table already exists"
	case CodeDuplicateIndex:
		return "index already exists"
	case CodeInvalidSchema:
		return "invalid table definition"
	case CodePrimaryKeyViolation:
		return "duplicate primary key"
	case CodeStorageFull:
		return "backing store cannot grow"
	case CodeCorruptPage:
		return "page failed validation"
	case CodeLogCorruption:
		return "write-ahead log is corrupt"
	default:
		return "internal error"
	}
}
