package user

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raveportal/pageshare/internal/rpc"
)

func ptr(n int) *int { return &n }

func TestPaginate_ThirdOfFivePages(t *testing.T) {
	pr := rpc.PageResult{
		ResultSet:     make([]map[string]any, 10),
		Offset:        ptr(20),
		TotalResults:  ptr(45),
		PageSize:      ptr(10),
		CurrentPage:   ptr(3),
		NumberOfPages: ptr(5),
	}

	p, size := Paginate(pr)

	assert.Equal(t, 10, size)
	assert.Equal(t, 21, p.Start)
	assert.Equal(t, 30, p.Finish)
	assert.Equal(t, 45, p.Total)
	assert.Equal(t, PageLink{Show: true, PageNumber: 2}, p.PrevLink)
	assert.Equal(t, PageLink{Show: true, PageNumber: 4}, p.NextLink)
	assert.Len(t, p.Pages, 5)
	for i, entry := range p.Pages {
		assert.Equal(t, i+1, entry.PageNumber)
		assert.Equal(t, i == 2, entry.Current)
	}
}

func TestPaginate_FirstAndLastPages(t *testing.T) {
	first, _ := Paginate(rpc.PageResult{
		ResultSet: make([]map[string]any, 10), Offset: ptr(0), TotalResults: ptr(15),
		PageSize: ptr(10), CurrentPage: ptr(1), NumberOfPages: ptr(2),
	})
	assert.False(t, first.PrevLink.Show)
	assert.True(t, first.NextLink.Show)

	last, _ := Paginate(rpc.PageResult{
		ResultSet: make([]map[string]any, 5), Offset: ptr(10), TotalResults: ptr(15),
		PageSize: ptr(10), CurrentPage: ptr(2), NumberOfPages: ptr(2),
	})
	assert.True(t, last.PrevLink.Show)
	assert.False(t, last.NextLink.Show)
	assert.Equal(t, 15, last.Finish)
}

func TestPaginate_DefaultsMissingFields(t *testing.T) {
	p, size := Paginate(rpc.PageResult{ResultSet: make([]map[string]any, 3)})

	assert.Equal(t, DefaultPageSize, size)
	assert.Equal(t, 1, p.Start)
	assert.Equal(t, 3, p.Finish)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, []PageEntry{{PageNumber: 1, Current: true}}, p.Pages)
	assert.False(t, p.PrevLink.Show)
	assert.False(t, p.NextLink.Show)
}

func TestPaginate_DerivesPagesFromOffset(t *testing.T) {
	p, size := Paginate(rpc.PageResult{
		ResultSet:    make([]map[string]any, 5),
		Offset:       ptr(25),
		TotalResults: ptr(42),
		PageSize:     ptr(5),
	})

	assert.Equal(t, 5, size)
	assert.Len(t, p.Pages, 9)
	assert.True(t, p.Pages[5].Current)
	assert.Equal(t, PageLink{Show: true, PageNumber: 5}, p.PrevLink)
	assert.Equal(t, PageLink{Show: true, PageNumber: 7}, p.NextLink)
}

func TestPaginate_EmptyResult(t *testing.T) {
	p, _ := Paginate(rpc.PageResult{})
	assert.Equal(t, 1, p.Start)
	assert.Equal(t, 0, p.Finish)
	assert.Empty(t, p.Pages)
}

func TestPaginate_IgnoresNonPositivePageSize(t *testing.T) {
	_, size := Paginate(rpc.PageResult{PageSize: ptr(0)})
	assert.Equal(t, DefaultPageSize, size)
}

func TestPaginate_HugeNumberOfPagesFallsBackToTotal(t *testing.T) {
	p, _ := Paginate(rpc.PageResult{
		ResultSet:     make([]map[string]any, 1),
		PageSize:      ptr(10),
		TotalResults:  ptr(25),
		CurrentPage:   ptr(1),
		NumberOfPages: ptr(1 << 62),
	})

	assert.Len(t, p.Pages, 3)
	assert.Equal(t, PageLink{Show: true, PageNumber: 2}, p.NextLink)
}

func TestPaginate_PageLinksAreCapped(t *testing.T) {
	p, _ := Paginate(rpc.PageResult{
		ResultSet:     make([]map[string]any, 1),
		PageSize:      ptr(1),
		TotalResults:  ptr(1 << 62),
		NumberOfPages: ptr(1 << 62),
	})

	assert.Len(t, p.Pages, MaxPages)
	assert.Equal(t, 1<<62, p.Total)
}

func TestPaginate_SmallerNumberOfPagesIsKept(t *testing.T) {
	p, _ := Paginate(rpc.PageResult{
		ResultSet:     make([]map[string]any, 10),
		PageSize:      ptr(10),
		TotalResults:  ptr(45),
		NumberOfPages: ptr(2),
	})

	assert.Len(t, p.Pages, 2)
}
