package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raveportal/pageshare/internal/bind"
	"github.com/raveportal/pageshare/internal/rpc"
	"github.com/raveportal/pageshare/internal/rpc/rpctest"
)

func newTestPage(t *testing.T) (*Page, *rpctest.Client, *int) {
	t.Helper()
	fake := rpctest.New()
	p := New(fake, 42, 1)
	changes := 0
	p.On(bind.EventChange, func() { changes++ })
	return p, fake, &changes
}

func TestNewEmptyDefaults(t *testing.T) {
	p := NewEmpty(rpctest.New())
	assert.Equal(t, NoID, p.ID())
	assert.Equal(t, NoID, p.OwnerID())
	assert.Empty(t, p.Members())
}

func TestOwnershipAndEditorAreIndependent(t *testing.T) {
	p, _, _ := newTestPage(t)

	assert.True(t, p.IsUserOwner(1))
	assert.False(t, p.IsUserOwner(2))
	assert.False(t, p.IsUserMember(1))
	assert.False(t, p.IsUserEditor(1))
	assert.False(t, p.IsUserEditor(99))
}

func TestAddInitDataIsSilent(t *testing.T) {
	p, _, changes := newTestPage(t)

	p.AddInitData(5, false)
	p.AddInitData(6, true)

	assert.Equal(t, 0, *changes)
	assert.True(t, p.IsUserMember(5))
	assert.False(t, p.IsUserEditor(5))
	assert.True(t, p.IsUserEditor(6))
	assert.Equal(t, []Member{{UserID: 5}, {UserID: 6, Editor: true}}, p.Members())
}

func TestAddMemberWaitsForConfirmation(t *testing.T) {
	p, fake, changes := newTestPage(t)

	p.AddMember(7)
	require.Equal(t, rpc.OpAddMemberToPage, fake.Last().Op)
	assert.Equal(t, rpc.MemberParams{PageID: 42, UserID: 7}, fake.Last().Params)
	assert.False(t, p.IsUserMember(7))
	assert.Equal(t, 0, *changes)

	fake.ResolveLast(rpctest.OK())

	assert.True(t, p.IsUserMember(7))
	assert.False(t, p.IsUserEditor(7))
	assert.Equal(t, 1, *changes)
}

func TestFailedCallLeavesStateAlone(t *testing.T) {
	p, fake, changes := newTestPage(t)
	p.AddInitData(3, true)

	p.AddMember(7)
	p.RemoveMember(3)
	p.RemoveEditor(3)
	fake.Drop(0)
	fake.Drop(1)
	fake.Drop(2)

	assert.False(t, p.IsUserMember(7))
	assert.True(t, p.IsUserEditor(3))
	assert.Equal(t, 0, *changes)
}

func TestRemoveMember(t *testing.T) {
	p, fake, changes := newTestPage(t)
	p.AddInitData(3, true)

	p.RemoveMember(3)
	assert.True(t, p.IsUserMember(3))
	fake.ResolveLast(rpctest.OK())

	assert.False(t, p.IsUserMember(3))
	assert.False(t, p.IsUserEditor(3))
	assert.Equal(t, 1, *changes)
}

func TestEditorTransitions(t *testing.T) {
	p, fake, changes := newTestPage(t)
	p.AddInitData(3, false)

	p.AddEditor(3)
	assert.Equal(t, rpc.EditingStatusParams{PageID: 42, UserID: 3, IsEditor: true}, fake.Last().Params)
	assert.False(t, p.IsUserEditor(3))
	fake.ResolveLast(rpctest.OK())
	assert.True(t, p.IsUserEditor(3))

	p.RemoveEditor(3)
	assert.Equal(t, rpc.EditingStatusParams{PageID: 42, UserID: 3, IsEditor: false}, fake.Last().Params)
	fake.ResolveLast(rpctest.OK())
	assert.False(t, p.IsUserEditor(3))
	assert.True(t, p.IsUserMember(3))

	assert.Equal(t, 2, *changes)
}

func TestAddEditorCreatesMissingMember(t *testing.T) {
	p, fake, _ := newTestPage(t)

	p.AddEditor(8)
	fake.ResolveLast(rpctest.OK())

	assert.True(t, p.IsUserMember(8))
	assert.True(t, p.IsUserEditor(8))
}

func TestCloneForUserHasNoLocalEffect(t *testing.T) {
	p, fake, changes := newTestPage(t)

	p.CloneForUser(9, "My copy")
	assert.Equal(t, rpc.OpUpdatePageEditingStatus, fake.Last().Op)
	assert.Equal(t, rpc.EditingStatusParams{PageID: 42, UserID: 9, PageName: "My copy"}, fake.Last().Params)
	fake.ResolveLast(rpctest.OK())

	assert.False(t, p.IsUserMember(9))
	assert.Equal(t, 0, *changes)
}

func TestMembersCannotBeMutatedFromOutside(t *testing.T) {
	p, _, _ := newTestPage(t)
	p.AddInitData(3, false)

	leaked := p.Get(AttrMembers).(Members)
	leaked[3] = Member{UserID: 3, Editor: true}
	leaked[4] = Member{UserID: 4}

	assert.False(t, p.IsUserEditor(3))
	assert.False(t, p.IsUserMember(4))
}
