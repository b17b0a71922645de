package sources

import (
	"fmt"
	"time"

	"github.com/librarian-dev/librarian/internal/config"
	"github.com/librarian-dev/librarian/internal/trust"
)

// HandlerFactory creates source handlers based on source type.
type HandlerFactory interface {
	// CreateHandler creates a source handler for the given source type.
	CreateHandler(sourceType string) (Handler, error)
}

type defaultHandlerFactory struct {
	cfg        *config.Config
	trustState *trust.State
	timeout    time.Duration
}

// NewHandlerFactory creates a factory building handlers from the given
// configuration and shared trust state.
func NewHandlerFactory(cfg *config.Config, trustState *trust.State) HandlerFactory {
	return &defaultHandlerFactory{
		cfg:        cfg,
		trustState: trustState,
		timeout:    cfg.FetchTimeout(),
	}
}

// CreateHandler creates a source handler for the given source type.
func (f *defaultHandlerFactory) CreateHandler(sourceType string) (Handler, error) {
	switch sourceType {
	case config.SourceTypeIndex, "":
		return NewIndexHandler(f.cfg, f.trustState, nil, f.timeout)
	case config.SourceTypeGit:
		return NewGitHandler(f.cfg, f.trustState, nil)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}
