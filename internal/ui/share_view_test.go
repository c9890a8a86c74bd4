package ui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raveportal/pageshare/internal/dom"
	"github.com/raveportal/pageshare/internal/page"
	"github.com/raveportal/pageshare/internal/rpc"
	"github.com/raveportal/pageshare/internal/rpc/rpctest"
	"github.com/raveportal/pageshare/internal/user"
)

type fixture struct {
	view   *PageShareView
	client *rpctest.Client
	page   *page.Page
	users  *user.Collection
	el     *dom.Buffer
	events []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := NewRegistry()
	require.NoError(t, err)

	f := &fixture{client: rpctest.New(), el: &dom.Buffer{}}
	f.page = page.New(f.client, 42, 1)
	f.page.AddInitData(2, false)
	f.page.AddInitData(3, true)
	f.users = user.NewCollection(f.client)
	f.view = NewPageShareView(f.page, f.users, reg.Lookup(ShareViewTemplate), f.el,
		WithEventObserver(func(binding, result string) {
			f.events = append(f.events, binding+"="+result)
		}))
	return f
}

func (f *fixture) loadUsers(t *testing.T) {
	t.Helper()
	f.view.Show()
	f.client.ResolveLast(rpctest.PageResponse(0, 4, 10, 1, 1, rpctest.Users(1, 4)...))
}

func TestEnrichUsers(t *testing.T) {
	p := page.New(rpctest.New(), 1, 1)
	p.AddInitData(2, false)
	p.AddInitData(3, true)

	list := user.ListViewModel{Users: []map[string]any{
		{"id": int64(1)}, {"id": int64(2)}, {"id": "3"}, {"id": int64(4)}, {"name": "no id"},
	}}
	got := EnrichUsers(p, list)

	flags := func(u map[string]any) [3]bool {
		return [3]bool{u[FlagOwner].(bool), u[FlagShare].(bool), u[FlagEdit].(bool)}
	}
	assert.Equal(t, [3]bool{true, false, false}, flags(got.Users[0]), "owner is not implicitly a member or editor")
	assert.Equal(t, [3]bool{false, true, false}, flags(got.Users[1]))
	assert.Equal(t, [3]bool{false, true, true}, flags(got.Users[2]))
	assert.Equal(t, [3]bool{false, false, false}, flags(got.Users[3]))
	assert.Equal(t, [3]bool{false, false, false}, flags(got.Users[4]))
}

func TestShow_FetchesFirstPage(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.view.HandleEvent(dom.Event{Type: "show", Target: "#sharePageDialog"}))

	call := f.client.Last()
	require.NotNil(t, call)
	assert.Equal(t, rpc.OpListUsers, call.Op)
	assert.Equal(t, rpc.ListUsersParams{Offset: 0}, call.Params)
}

func TestRender_ShowsControlsPerRelation(t *testing.T) {
	f := newFixture(t)
	f.loadUsers(t)

	require.Equal(t, 1, f.el.Renders(), "one reset, one render")
	html := f.el.Last()
	assert.Contains(t, html, `data-pageid="42"`)
	assert.Contains(t, html, `Showing 1-4 of 4`)
	assert.Contains(t, html, `data-userid="2" data-action="removeMember"`)
	assert.Contains(t, html, `data-userid="2" data-action="addEditor"`)
	assert.Contains(t, html, `data-userid="3" data-action="removeEditor"`)
	assert.Contains(t, html, `data-userid="4" data-action="addMember"`)
	assert.NotContains(t, html, `data-userid="1" data-action`, "owner row has no share controls")
	assert.Contains(t, html, `class="active"><a href="#" data-pagenumber="1"`)
}

func TestAddMember_RendersOnceAfterConfirmation(t *testing.T) {
	f := newFixture(t)
	f.loadUsers(t)
	before := f.el.Renders()

	err := f.view.HandleEvent(dom.Event{
		Type: "click", Target: ".searchResultRecord a",
		Data: map[string]string{"userid": "4", "action": "addMember"},
	})
	require.NoError(t, err)

	call := f.client.Last()
	assert.Equal(t, rpc.OpAddMemberToPage, call.Op)
	assert.Equal(t, rpc.MemberParams{PageID: 42, UserID: 4}, call.Params)
	assert.Equal(t, before, f.el.Renders(), "nothing changes before the portal confirms")

	f.client.ResolveLast(rpctest.OK())
	assert.Equal(t, before+1, f.el.Renders())
	assert.Contains(t, f.el.Last(), `data-userid="4" data-action="removeMember"`)
}

func TestFailedShareAction_DoesNotRender(t *testing.T) {
	f := newFixture(t)
	f.loadUsers(t)
	before := f.el.Renders()

	require.NoError(t, f.view.HandleEvent(dom.Event{
		Type: "click", Target: ".searchResultRecord a",
		Data: map[string]string{"userid": "3", "action": "removeEditor"},
	}))
	f.client.Drop(len(f.client.Calls()) - 1)

	assert.Equal(t, before, f.el.Renders())
	assert.True(t, f.page.IsUserEditor(3))
}

func TestTwoSources_OneRenderPerEvent(t *testing.T) {
	f := newFixture(t)
	f.loadUsers(t)
	require.Equal(t, 1, f.el.Renders())

	f.page.Set("ownerId", int64(9))
	assert.Equal(t, 2, f.el.Renders())

	f.users.Parse(rpctest.PageResponse(0, 1, 10, 1, 1, rpctest.Users(9, 1)...))
	assert.Equal(t, 3, f.el.Renders())
	assert.Contains(t, f.el.Last(), "Owner")
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name   string
		evt    dom.Event
		search bool
	}{
		{"button click", dom.Event{Type: "click", Target: "#shareSearchButton"}, true},
		{"enter key", dom.Event{Type: "keypress", Target: "#searchTerm", Which: dom.KeyEnter}, true},
		{"no key code", dom.Event{Type: "keypress", Target: "#searchTerm"}, true},
		{"other key", dom.Event{Type: "keypress", Target: "#searchTerm", Which: 'a'}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.evt.Form = map[string]string{"searchTerm": "ann"}
			require.NoError(t, f.view.HandleEvent(tt.evt))

			if !tt.search {
				assert.Empty(t, f.client.Calls())
				return
			}
			call := f.client.Last()
			require.NotNil(t, call)
			assert.Equal(t, rpc.OpSearchUsers, call.Op)
			assert.Equal(t, rpc.SearchUsersParams{SearchTerm: "ann", Offset: 0}, call.Params)
		})
	}
}

func TestClearSearch_Browses(t *testing.T) {
	f := newFixture(t)
	f.users.Filter("ann")
	require.NoError(t, f.view.HandleEvent(dom.Event{Type: "click", Target: "#clearSearchButton"}))

	assert.False(t, f.users.Searching())
	assert.Equal(t, rpc.OpListUsers, f.client.Last().Op)
}

func TestPaging(t *testing.T) {
	tests := []struct {
		raw    string
		offset int
	}{
		{"3", 20},
		{"1", 0},
		{"", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		t.Run("page "+tt.raw, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.view.HandleEvent(dom.Event{
				Type: "click", Target: "#pagingul a",
				Data: map[string]string{"pagenumber": tt.raw},
			}))
			assert.Equal(t, rpc.ListUsersParams{Offset: tt.offset}, f.client.Last().Params)
		})
	}
}

func TestShareAction_FailsLoudly(t *testing.T) {
	f := newFixture(t)

	err := f.view.HandleEvent(dom.Event{
		Type: "click", Target: ".searchResultRecord a",
		Data: map[string]string{"userid": "4", "action": "deletePage"},
	})
	assert.ErrorIs(t, err, page.ErrUnknownAction)

	err = f.view.HandleEvent(dom.Event{
		Type: "click", Target: ".searchResultRecord a",
		Data: map[string]string{"userid": "four", "action": "addMember"},
	})
	assert.Error(t, err)
	assert.Empty(t, f.client.Calls())
}

func TestHandleEvent_ReportsResults(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.view.HandleEvent(dom.Event{Type: "click", Target: "#clearSearchButton"}))
	assert.ErrorIs(t, f.view.HandleEvent(dom.Event{Type: "click", Target: "#nowhere"}), dom.ErrNoHandler)
	assert.Error(t, f.view.HandleEvent(dom.Event{
		Type: "click", Target: ".searchResultRecord a",
		Data: map[string]string{"action": "bogus"},
	}))

	assert.Equal(t, []string{
		"click #clearSearchButton=ok",
		"unbound=unbound",
		"click .searchResultRecord a=error",
	}, f.events)
}

func TestHandleEvent_UnboundEventsShareOneBinding(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 50; i++ {
		_ = f.view.HandleEvent(dom.Event{Type: "click", Target: fmt.Sprintf("#junk%d", i)})
	}
	require.NoError(t, f.view.HandleEvent(dom.Event{Type: "click", Target: "  #clearSearchButton "}))

	seen := make(map[string]bool)
	for _, e := range f.events {
		seen[e] = true
	}
	assert.Equal(t, map[string]bool{
		UnboundBinding + "=unbound": true,
		BindClearSearch + "=ok":     true,
	}, seen)
}

func TestBindings(t *testing.T) {
	f := newFixture(t)
	got := strings.Join(f.view.Bindings(), "|")
	for _, b := range []string{BindSearchClick, BindSearchKey, BindClearSearch, BindPage, BindShareAction, BindShow} {
		assert.Contains(t, got, b)
	}
}
