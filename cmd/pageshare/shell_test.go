package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raveportal/pageshare/internal/config"
	"github.com/raveportal/pageshare/internal/dom"
	"github.com/raveportal/pageshare/internal/eventloop"
	"github.com/raveportal/pageshare/internal/rpc"
	"github.com/raveportal/pageshare/internal/rpc/rpctest"
	"github.com/raveportal/pageshare/internal/session"
	"github.com/raveportal/pageshare/internal/ui"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want dom.Event
	}{
		{"show", dom.Event{Type: "show", Target: "#sharePageDialog"}},
		{"search  ann lee ", dom.Event{Type: "click", Target: "#shareSearchButton", Form: map[string]string{"searchTerm": "ann lee"}}},
		{"clear", dom.Event{Type: "click", Target: "#clearSearchButton"}},
		{"page 3", dom.Event{Type: "click", Target: "#pagingul a", Data: map[string]string{"pagenumber": "3"}}},
		{"addEditor 7", dom.Event{Type: "click", Target: ".searchResultRecord a", Data: map[string]string{"action": "addEditor", "userid": "7"}}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	for _, line := range []string{"page", "addMember", "dance 3"} {
		_, err := parseCommand(line)
		assert.Error(t, err, line)
	}
}

func TestParseClone(t *testing.T) {
	id, name, err := parseClone("7 My copy")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, "My copy", name)

	_, _, err = parseClone("7")
	assert.Error(t, err)
	_, _, err = parseClone("x name")
	assert.Error(t, err)
}

func TestParseMembers(t *testing.T) {
	got, err := parseMembers([]string{"2", "3:editor"})
	require.NoError(t, err)
	assert.Equal(t, []session.MemberInit{{UserID: 2}, {UserID: 3, Editor: true}}, got)

	_, err = parseMembers([]string{"3:owner"})
	assert.Error(t, err)
	_, err = parseMembers([]string{"abc"})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.LogConfig{Level: "warn", Format: "text"})
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "k=v")

	buf.Reset()
	newLogger(&buf, config.LogConfig{Level: "bogus", Format: "json"}).Info("x")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "pageshare v"+version+"\n", buf.String())
}

type singleClient struct{ c *rpctest.Client }

func (f singleClient) Session(eventloop.Poster, string) rpc.Client { return f.c }

func TestRunCommands(t *testing.T) {
	reg, err := ui.NewRegistry()
	require.NoError(t, err)
	client := rpctest.New()
	m := session.NewManager(singleClient{client}, reg.Lookup(ui.ShareViewTemplate), session.Config{})
	defer m.Shutdown()

	s, err := m.Create(context.Background(), session.InitData{PageID: 5, OwnerID: 1})
	require.NoError(t, err)

	in := strings.NewReader("show\n\nsearch ann\ndance\nclone 4 Copy\nquit\npage 2\n")
	var errOut bytes.Buffer
	require.NoError(t, runCommands(context.Background(), in, &errOut, s))

	calls := client.Calls()
	require.Len(t, calls, 3, "commands after quit are not run")
	assert.Equal(t, rpc.OpListUsers, calls[0].Op)
	assert.Equal(t, rpc.OpSearchUsers, calls[1].Op)
	assert.Equal(t, rpc.EditingStatusParams{PageID: 5, UserID: 4, PageName: "Copy"}, calls[2].Params)
	assert.Contains(t, errOut.String(), `unknown command "dance"`)
}
