package inmemory

import (
	"fmt"
	"slices"
	"sort"

	"github.com/jrsteele09/go-mcp-auth/clients"
	"github.com/jrsteele09/go-mcp-auth/internal/store"
)

var _ clients.Repo = (*Repo)(nil)

// Repo keeps clients in an injectable key/value store, in memory by default.
type Repo struct {
	clients store.Store[clients.Client]
}

func New() *Repo {
	return NewWithStore(store.NewMemory[clients.Client]())
}

func NewWithStore(s store.Store[clients.Client]) *Repo {
	return &Repo{clients: s}
}

func (r *Repo) Upsert(client clients.Client) error {
	if client.ID == "" {
		return fmt.Errorf("client ID is required")
	}
	client.RedirectURIs = slices.Clone(client.RedirectURIs)
	r.clients.Put(client.ID, client)
	return nil
}

func (r *Repo) Get(clientID string) (clients.Client, error) {
	client, ok := r.clients.Get(clientID)
	if !ok {
		return clients.Client{}, fmt.Errorf("client %q not found", clientID)
	}
	client.RedirectURIs = slices.Clone(client.RedirectURIs)
	return client, nil
}

func (r *Repo) List() ([]clients.Client, error) {
	list := make([]clients.Client, 0, r.clients.Len())
	r.clients.Range(func(_ string, c clients.Client) bool {
		c.RedirectURIs = slices.Clone(c.RedirectURIs)
		list = append(list, c)
		return true
	})
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list, nil
}
