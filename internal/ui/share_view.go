package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/raveportal/pageshare/internal/bind"
	"github.com/raveportal/pageshare/internal/dom"
	"github.com/raveportal/pageshare/internal/page"
	"github.com/raveportal/pageshare/internal/user"
)

// Event bindings of the share dialog.
const (
	BindSearchClick = "click #shareSearchButton"
	BindSearchKey   = "keypress #searchTerm"
	BindClearSearch = "click #clearSearchButton"
	BindPage        = "click #pagingul a"
	BindShareAction = "click .searchResultRecord a"
	BindShow        = "show #sharePageDialog"
)

const (
	shareViewName   = "page-share"
	bindNamePage    = "page"
	bindNameUsers   = "users"
	searchTermField = "searchTerm"
	pageNumberData  = "pagenumber"
	userIDData      = "userid"
	actionData      = "action"
)

// Per-user flags added to the users view-model.
const (
	FlagOwner = "isOwner"
	FlagShare = "hasShare"
	FlagEdit  = "hasEdit"
)

// EventObserver is told the outcome of every handled UI event.
type EventObserver func(binding, result string)

// ShareOption configures a PageShareView.
type ShareOption func(*PageShareView)

// WithShareRenderObserver forwards render timings, e.g. to metrics.
func WithShareRenderObserver(fn bind.RenderObserver) ShareOption {
	return func(v *PageShareView) { v.renderObs = fn }
}

// WithEventObserver reports the result of every UI event.
func WithEventObserver(fn EventObserver) ShareOption {
	return func(v *PageShareView) { v.eventObs = fn }
}

// WithShareLogger sets the view's logger.
func WithShareLogger(l *slog.Logger) ShareOption {
	return func(v *PageShareView) { v.logger = l }
}

// PageShareView is the share dialog: a search box, a paginated list of
// users and per-user share controls for one page.
type PageShareView struct {
	*bind.View

	page   *page.Page
	users  *user.Collection
	events *dom.Delegator

	renderObs bind.RenderObserver
	eventObs  EventObserver
	logger    *slog.Logger
}

// NewPageShareView binds p and users to tmpl, rendering into el.
func NewPageShareView(p *page.Page, users *user.Collection, tmpl bind.Template, el bind.Element, opts ...ShareOption) *PageShareView {
	v := &PageShareView{
		page:   p,
		users:  users,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}

	viewOpts := []bind.ViewOption{bind.WithCompose(v.compose)}
	if v.renderObs != nil {
		viewOpts = append(viewOpts, bind.WithRenderObserver(v.renderObs))
	}
	v.View = bind.NewView(shareViewName, map[string]bind.Source{
		bindNamePage:  p,
		bindNameUsers: users,
	}, tmpl, el, viewOpts...)

	v.events = dom.NewDelegator(map[string]dom.EventHandler{
		BindSearchClick: v.search,
		BindSearchKey:   v.searchKey,
		BindClearSearch: v.clearSearch,
		BindPage:        v.fetchPage,
		BindShareAction: v.shareAction,
		BindShow:        func(dom.Event) error { v.Show(); return nil },
	})
	return v
}

// Page returns the page being shared.
func (v *PageShareView) Page() *page.Page { return v.page }

// Users returns the user list.
func (v *PageShareView) Users() *user.Collection { return v.users }

// Bindings lists the event bindings the view handles.
func (v *PageShareView) Bindings() []string { return v.events.Keys() }

// Show runs when the dialog opens: it loads the first page of users.
func (v *PageShareView) Show() {
	v.users.FetchPage(1)
}

// UnboundBinding is reported to the event observer for events that match no
// binding, so observers only ever see the fixed binding set plus this one.
const UnboundBinding = "unbound"

// HandleEvent routes a UI event to its handler.
func (v *PageShareView) HandleEvent(evt dom.Event) error {
	err := v.events.Dispatch(evt)
	if v.eventObs != nil {
		binding, ok := v.events.Match(evt)
		if !ok {
			binding = UnboundBinding
		}
		v.eventObs(binding, eventResult(err))
	}
	return err
}

func eventResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, dom.ErrNoHandler):
		return "unbound"
	default:
		return "error"
	}
}

func (v *PageShareView) compose(vm map[string]any) map[string]any {
	if list, ok := vm[bindNameUsers].(user.ListViewModel); ok {
		vm[bindNameUsers] = EnrichUsers(v.page, list)
	}
	return vm
}

// EnrichUsers flags every user with its relation to p. The flags are
// derived at render time from the current membership.
func EnrichUsers(p *page.Page, list user.ListViewModel) user.ListViewModel {
	for _, u := range list.Users {
		id, ok := user.IDOf(u[user.AttrID])
		u[FlagOwner] = ok && p.IsUserOwner(id)
		u[FlagShare] = ok && p.IsUserMember(id)
		u[FlagEdit] = ok && p.IsUserEditor(id)
	}
	return list
}

func (v *PageShareView) search(evt dom.Event) error {
	v.users.Filter(evt.FormValue(searchTermField))
	return nil
}

// searchKey only searches on Enter, or when the display sent no key code.
func (v *PageShareView) searchKey(evt dom.Event) error {
	if evt.Which != dom.KeyEnter && evt.Which != 0 {
		return nil
	}
	return v.search(evt)
}

func (v *PageShareView) clearSearch(dom.Event) error {
	v.users.Filter("")
	return nil
}

// fetchPage treats an unreadable page number as 0, which loads the first page.
func (v *PageShareView) fetchPage(evt dom.Event) error {
	n, err := strconv.Atoi(strings.TrimSpace(evt.DataValue(pageNumberData)))
	if err != nil {
		n = 0
	}
	v.users.FetchPage(n)
	return nil
}

func (v *PageShareView) shareAction(evt dom.Event) error {
	action, err := page.ParseAction(evt.DataValue(actionData))
	if err != nil {
		return err
	}
	raw := evt.DataValue(userIDData)
	userID, ok := user.IDOf(raw)
	if !ok {
		return fmt.Errorf("share action %s: invalid user id %q", action, raw)
	}
	v.logger.Info("audit", "action", string(action), "page_id", v.page.ID(), "user_id", userID)
	return v.page.Dispatch(action, userID)
}
