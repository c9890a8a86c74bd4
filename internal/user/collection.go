package user

import (
	"log/slog"
	"math"

	"github.com/raveportal/pageshare/internal/bind"
	"github.com/raveportal/pageshare/internal/rpc"
)

// ListViewModel is what the collection hands to templates.
type ListViewModel struct {
	SearchTerm string
	Pagination *Pagination
	Users      []map[string]any
}

// Option configures a Collection.
type Option func(*Collection)

// WithStaleResponseGuard makes the collection drop a page result when a
// newer Filter or FetchPage has been issued since its request went out.
// Without it the last response to arrive wins, whatever order the requests
// were made in.
func WithStaleResponseGuard() Option {
	return func(c *Collection) { c.guard = true }
}

// WithLogger sets the collection's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collection) { c.logger = l }
}

// Collection is the paginated user list behind the share dialog. It is
// either searching (a non-empty search term backs it with searchUsers) or
// browsing (listUsers).
type Collection struct {
	*bind.Collection

	client     rpc.Client
	searchTerm string
	pageSize   int
	pagination *Pagination

	guard      bool
	generation uint64
	logger     *slog.Logger
}

// NewCollection creates an empty collection backed by client.
func NewCollection(client rpc.Client, opts ...Option) *Collection {
	c := &Collection{
		Collection: bind.NewCollection(bind.WithModelFactory(func(attrs map[string]any) *bind.Model {
			return New(attrs).Model
		})),
		client:   client,
		pageSize: DefaultPageSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchTerm returns the active search term, "" when browsing.
func (c *Collection) SearchTerm() string { return c.searchTerm }

// Searching reports whether searchUsers backs the collection.
func (c *Collection) Searching() bool { return c.searchTerm != "" }

// PageSize returns the page size used to compute offsets.
func (c *Collection) PageSize() int { return c.pageSize }

// Pagination returns a copy of the latest pagination data, or nil before the
// first page arrives.
func (c *Collection) Pagination() *Pagination {
	if c.pagination == nil {
		return nil
	}
	p := *c.pagination
	p.Pages = append([]PageEntry(nil), c.pagination.Pages...)
	return &p
}

// Filter switches to searching for term, or back to browsing when term is
// empty, and requests the first page.
func (c *Collection) Filter(term string) {
	c.searchTerm = term
	c.request(0)
}

// FetchPage requests the given 1-based page in the current mode. Page
// numbers below 1 fetch the first page; numbers past the last known page
// fetch the last one.
func (c *Collection) FetchPage(pageNumber int) {
	if c.pagination != nil && len(c.pagination.Pages) > 0 {
		pageNumber = min(pageNumber, len(c.pagination.Pages))
	}
	pageNumber = min(pageNumber, MaxPages)
	skip := max(pageNumber-1, 0)
	if skip > 0 && c.pageSize > math.MaxInt/skip {
		skip = math.MaxInt / c.pageSize
	}
	c.request(skip * c.pageSize)
}

func (c *Collection) request(offset int) {
	c.generation++
	onSuccess := c.Parse
	if c.guard {
		gen := c.generation
		onSuccess = func(resp rpc.Response) {
			if gen != c.generation {
				c.logger.Debug("discarding stale user page", "generation", gen, "current", c.generation)
				return
			}
			c.Parse(resp)
		}
	}

	if c.Searching() {
		c.client.SearchUsers(rpc.SearchUsersParams{SearchTerm: c.searchTerm, Offset: offset}, onSuccess)
		return
	}
	c.client.ListUsers(rpc.ListUsersParams{Offset: offset}, onSuccess)
}

// Parse applies a page result: page size, pagination and members, then one
// reset event. Missing fields are defaulted. A payload that cannot be
// decoded at all changes nothing.
func (c *Collection) Parse(resp rpc.Response) {
	pr, err := resp.PageResult()
	if err != nil {
		c.logger.Warn("ignoring malformed user page", "error", err)
		return
	}

	pagination, pageSize := Paginate(pr)
	records := pr.ResultSet
	if records == nil {
		records = []map[string]any{}
	}

	c.pageSize = pageSize
	c.pagination = &pagination
	c.Reset(records)
}

// ToViewModel returns the search term, the pagination and each user's
// view-model.
func (c *Collection) ToViewModel() any {
	return c.ListViewModel()
}

// ListViewModel is the typed form of ToViewModel.
func (c *Collection) ListViewModel() ListViewModel {
	base := c.Collection.ViewModels()
	users := make([]map[string]any, 0, len(base))
	for _, vm := range base {
		if m, ok := vm.(map[string]any); ok {
			users = append(users, m)
		}
	}
	return ListViewModel{
		SearchTerm: c.searchTerm,
		Pagination: c.Pagination(),
		Users:      users,
	}
}
