package registry

import (
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/modelgate/modelgate/internal/httperr"
	"github.com/modelgate/modelgate/pkg/models"
)

// Backend is a registered downstream server. The descriptor is immutable
// after construction; only the load counter mutates, atomically, so one
// Backend pointer can safely live in several pools at once.
type Backend struct {
	id      string
	baseURL string
	kinds   Kind
	load    atomic.Uint64
}

// NewBackend validates the URL, trims the trailing slash, and mints the id
// "<kind-tokens>-server-<nonce>".
func NewBackend(rawURL string, kinds Kind) (*Backend, error) {
	if kinds.IsEmpty() {
		return nil, httperr.BadRequest("at least one server kind is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, httperr.SocketAddr(rawURL)
	}
	return &Backend{
		id:      kinds.String() + "-server-" + uuid.NewString(),
		baseURL: strings.TrimRight(rawURL, "/"),
		kinds:   kinds,
	}, nil
}

func (b *Backend) ID() string      { return b.id }
func (b *Backend) BaseURL() string { return b.baseURL }
func (b *Backend) Kinds() Kind     { return b.kinds }

// Load returns the number of selections so far.
func (b *Backend) Load() uint64 { return b.load.Load() }

// Release undoes one selection. Only the optional decrement-on-completion
// mode calls this; the default policy lets the counter grow forever so it
// keeps ordering future selections.
func (b *Backend) Release() {
	for {
		cur := b.load.Load()
		if cur == 0 {
			return
		}
		if b.load.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// View snapshots the descriptor for listing.
func (b *Backend) View() models.BackendView {
	return models.BackendView{
		ID:   b.id,
		URL:  b.baseURL,
		Kind: b.kinds.Tokens(),
		Load: b.load.Load(),
	}
}
