// Package page models the page being shared: who owns it, who may see it
// and who may edit it. Membership only changes after the portal confirms a
// call; nothing is applied before and nothing is rolled back.
package page

import (
	"log/slog"
	"sort"

	"github.com/raveportal/pageshare/internal/bind"
	"github.com/raveportal/pageshare/internal/rpc"
)

// NoID marks an unset page or owner identifier.
const NoID int64 = -1

// Attribute names.
const (
	AttrID      = "id"
	AttrOwnerID = "ownerId"
	AttrMembers = "members"
)

// Member is one user's access to the page.
type Member struct {
	UserID int64 `json:"userId"`
	Editor bool  `json:"editor"`
}

// Members maps user IDs to their membership.
type Members map[int64]Member

// Page is the membership state of a single page.
type Page struct {
	*bind.Model
	client rpc.Client
	logger *slog.Logger
}

// New creates a page bound to client. Its id and owner default to NoID.
func New(client rpc.Client, id, ownerID int64) *Page {
	return &Page{
		Model: bind.NewModel(map[string]any{
			AttrID:      id,
			AttrOwnerID: ownerID,
			AttrMembers: Members{},
		}),
		client: client,
		logger: slog.Default(),
	}
}

// NewEmpty creates a page with no id and no owner.
func NewEmpty(client rpc.Client) *Page {
	return New(client, NoID, NoID)
}

// ID returns the page identifier.
func (p *Page) ID() int64 { return p.int64Attr(AttrID) }

// OwnerID returns the owner's user identifier.
func (p *Page) OwnerID() int64 { return p.int64Attr(AttrOwnerID) }

func (p *Page) int64Attr(name string) int64 {
	if v, ok := p.Get(name).(int64); ok {
		return v
	}
	return NoID
}

func (p *Page) members() Members {
	m, _ := p.Get(AttrMembers).(Members)
	if m == nil {
		m = Members{}
	}
	return m
}

// Members returns the current members ordered by user ID.
func (p *Page) Members() []Member {
	m := p.members()
	out := make([]Member, 0, len(m))
	for _, mem := range m {
		out = append(out, mem)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// IsUserOwner reports whether userID owns the page.
func (p *Page) IsUserOwner(userID int64) bool {
	return userID == p.OwnerID()
}

// IsUserMember reports whether the page is shared with userID.
func (p *Page) IsUserMember(userID int64) bool {
	_, ok := p.members()[userID]
	return ok
}

// IsUserEditor reports whether userID is a member with edit rights.
// Owning the page does not make a user an editor.
func (p *Page) IsUserEditor(userID int64) bool {
	mem, ok := p.members()[userID]
	return ok && mem.Editor
}

// AddInitData seeds a member without notifying anyone. It is meant for the
// initial state handed over when the dialog is set up.
func (p *Page) AddInitData(userID int64, editor bool) {
	m := p.members()
	m[userID] = Member{UserID: userID, Editor: editor}
	p.Set(AttrMembers, m, bind.Silent())
}

// putMember and dropMember are the only writers of members after setup.
// Each is exactly one Set, so one change event.
func (p *Page) putMember(userID int64, editor bool) {
	m := p.members()
	m[userID] = Member{UserID: userID, Editor: editor}
	p.Set(AttrMembers, m)
}

func (p *Page) dropMember(userID int64) {
	m := p.members()
	delete(m, userID)
	p.Set(AttrMembers, m)
}

// AddMember shares the page with userID once the portal confirms.
func (p *Page) AddMember(userID int64) {
	p.client.AddMemberToPage(rpc.MemberParams{PageID: p.ID(), UserID: userID}, func(rpc.Response) {
		p.putMember(userID, false)
	})
}

// RemoveMember unshares the page from userID once the portal confirms.
func (p *Page) RemoveMember(userID int64) {
	p.client.RemoveMemberFromPage(rpc.MemberParams{PageID: p.ID(), UserID: userID}, func(rpc.Response) {
		p.dropMember(userID)
	})
}

// AddEditor grants edit rights once the portal confirms. A user who was not
// a member becomes one.
func (p *Page) AddEditor(userID int64) {
	p.client.UpdatePageEditingStatus(rpc.EditingStatusParams{PageID: p.ID(), UserID: userID, IsEditor: true}, func(rpc.Response) {
		p.putMember(userID, true)
	})
}

// RemoveEditor revokes edit rights once the portal confirms; the user stays
// a member.
func (p *Page) RemoveEditor(userID int64) {
	p.client.UpdatePageEditingStatus(rpc.EditingStatusParams{PageID: p.ID(), UserID: userID, IsEditor: false}, func(rpc.Response) {
		p.putMember(userID, false)
	})
}

// CloneForUser asks the portal to give userID a detached copy of the page
// named pageName. Local membership is untouched.
func (p *Page) CloneForUser(userID int64, pageName string) {
	p.client.UpdatePageEditingStatus(rpc.EditingStatusParams{PageID: p.ID(), UserID: userID, PageName: pageName}, func(rpc.Response) {
		p.logger.Info("page cloned for user", "page_id", p.ID(), "user_id", userID, "page_name", pageName)
	})
}
