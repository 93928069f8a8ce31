package port

import "context"

//go:generate mockgen -source=storage.go -destination=mocks/storage_mock.go -package=mocks

// AttachmentStore keeps receipt and invoice files. The workflow only records and forgets
// the returned references and never reads file contents.
type AttachmentStore interface {
	// Store saves content under a name derived from name and returns its reference URL
	Store(ctx context.Context, name string, content []byte) (string, error)

	// Delete forgets the file behind url. Unknown references are not an error.
	Delete(ctx context.Context, url string) error
}
