package user

import "github.com/raveportal/pageshare/internal/rpc"

// DefaultPageSize is used until the portal reports its own page size.
const DefaultPageSize = 10

// MaxPages bounds the numbered page links derived from one result.
const MaxPages = 1000

// PageLink is a previous/next control.
type PageLink struct {
	Show       bool
	PageNumber int
}

// PageEntry is one numbered page link.
type PageEntry struct {
	PageNumber int
	Current    bool
}

// Pagination is derived entirely from the latest page result.
type Pagination struct {
	Start    int
	Finish   int
	Total    int
	PageSize int
	PrevLink PageLink
	NextLink PageLink
	Pages    []PageEntry
}

// Paginate derives pagination data from a page result. Fields the portal
// left out are defaulted from the ones it sent, never treated as errors.
// It also returns the page size the collection should use from now on.
func Paginate(pr rpc.PageResult) (Pagination, int) {
	pageSize := DefaultPageSize
	if pr.PageSize != nil && *pr.PageSize > 0 {
		pageSize = *pr.PageSize
	}

	offset := 0
	if pr.Offset != nil && *pr.Offset > 0 {
		offset = *pr.Offset
	}

	returned := len(pr.ResultSet)

	total := offset + returned
	if pr.TotalResults != nil && *pr.TotalResults >= 0 {
		total = *pr.TotalResults
	}

	// The portal's page count is only trusted up to what total and page
	// size allow.
	numberOfPages := min(pageCount(total, pageSize), MaxPages)
	if pr.NumberOfPages != nil && *pr.NumberOfPages >= 0 && *pr.NumberOfPages < numberOfPages {
		numberOfPages = *pr.NumberOfPages
	}

	currentPage := offset/pageSize + 1
	if pr.CurrentPage != nil {
		currentPage = *pr.CurrentPage
	}

	var pages []PageEntry
	for n := 1; n <= numberOfPages; n++ {
		pages = append(pages, PageEntry{PageNumber: n, Current: n == currentPage})
	}

	return Pagination{
		Start:    offset + 1,
		Finish:   offset + returned,
		Total:    total,
		PageSize: pageSize,
		PrevLink: PageLink{Show: currentPage > 1, PageNumber: currentPage - 1},
		NextLink: PageLink{Show: currentPage < numberOfPages, PageNumber: currentPage + 1},
		Pages:    pages,
	}, pageSize
}

// pageCount is ceil(total/pageSize) without overflowing near MaxInt.
func pageCount(total, pageSize int) int {
	n := total / pageSize
	if total%pageSize != 0 {
		n++
	}
	return n
}
