package data

import "errors"

// Error taxonomy shared by sources, services and packagers. Errors are wrapped
// with fmt.Errorf("...: %w") and matched with errors.Is.
var (
	// ErrParsing means the input URL or an expected HTML structure could not be understood.
	ErrParsing = errors.New("parsing error")
	// ErrNotFound means the listing container (or a requested resource) is absent.
	ErrNotFound = errors.New("not found")
	// ErrFileSystem means a directory or file operation failed.
	ErrFileSystem = errors.New("file system error")
	// ErrNetwork means a transport failure or a non-success HTTP status.
	ErrNetwork = errors.New("network error")
	// ErrEncoding means an image could not be decoded for a paginated document.
	ErrEncoding = errors.New("encoding error")

	// ErrEndOfIssue signals that page discovery ran past the last page.
	ErrEndOfIssue = errors.New("end of issue")
)
