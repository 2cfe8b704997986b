// Package clipboard provides access to the system clipboard.
package clipboard

import (
	"github.com/atotto/clipboard"
)

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Reader reads textual data from the system clipboard.
type Reader interface {
	Read() (string, error)
}

// Service implements Copier and Reader using github.com/atotto/clipboard.
type Service struct{}

// NewService constructs a Clipboard service implementation.
func NewService() *Service {
	return &Service{}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	return clipboard.WriteAll(text)
}

// Read returns the current text content of the system clipboard.
func (service *Service) Read() (string, error) {
	return clipboard.ReadAll()
}

var (
	_ Copier = (*Service)(nil)
	_ Reader = (*Service)(nil)
)
