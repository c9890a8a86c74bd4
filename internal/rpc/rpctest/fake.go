// Package rpctest provides an in-memory rpc.Client for tests. Calls are
// recorded and stay pending until the test resolves or drops them, in any
// order it likes.
package rpctest

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/raveportal/pageshare/internal/rpc"
)

// Call is one recorded remote call.
type Call struct {
	Op     rpc.Operation
	Params any

	onSuccess rpc.SuccessFunc
	settled   bool
}

// Client records calls instead of sending them.
type Client struct {
	mu    sync.Mutex
	calls []*Call
}

// New returns an empty fake client.
func New() *Client { return &Client{} }

var _ rpc.Client = (*Client)(nil)

func (c *Client) record(op rpc.Operation, params any, fn rpc.SuccessFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, &Call{Op: op, Params: params, onSuccess: fn})
}

func (c *Client) ListUsers(p rpc.ListUsersParams, fn rpc.SuccessFunc) {
	c.record(rpc.OpListUsers, p, fn)
}

func (c *Client) SearchUsers(p rpc.SearchUsersParams, fn rpc.SuccessFunc) {
	c.record(rpc.OpSearchUsers, p, fn)
}

func (c *Client) AddMemberToPage(p rpc.MemberParams, fn rpc.SuccessFunc) {
	c.record(rpc.OpAddMemberToPage, p, fn)
}

func (c *Client) RemoveMemberFromPage(p rpc.MemberParams, fn rpc.SuccessFunc) {
	c.record(rpc.OpRemoveMemberFromPage, p, fn)
}

func (c *Client) UpdatePageEditingStatus(p rpc.EditingStatusParams, fn rpc.SuccessFunc) {
	c.record(rpc.OpUpdatePageEditingStatus, p, fn)
}

// Calls returns every recorded call, settled or not.
func (c *Client) Calls() []*Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Pending returns the number of calls not yet resolved or dropped.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, cl := range c.calls {
		if !cl.settled {
			n++
		}
	}
	return n
}

// Last returns the most recent call, or nil.
func (c *Client) Last() *Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.calls) == 0 {
		return nil
	}
	return c.calls[len(c.calls)-1]
}

// Resolve runs the i-th call's success callback with resp on the calling
// goroutine.
func (c *Client) Resolve(i int, resp rpc.Response) {
	c.mu.Lock()
	if i < 0 || i >= len(c.calls) {
		c.mu.Unlock()
		panic(fmt.Sprintf("rpctest: no call %d (have %d)", i, len(c.calls)))
	}
	cl := c.calls[i]
	if cl.settled {
		c.mu.Unlock()
		panic(fmt.Sprintf("rpctest: call %d already settled", i))
	}
	cl.settled = true
	c.mu.Unlock()

	cl.onSuccess(resp)
}

// ResolveLast resolves the most recent call.
func (c *Client) ResolveLast(resp rpc.Response) {
	c.mu.Lock()
	n := len(c.calls)
	c.mu.Unlock()
	c.Resolve(n-1, resp)
}

// Drop settles the i-th call without running its callback, as a failed
// call would.
func (c *Client) Drop(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[i].settled = true
}

// OK is an empty successful response.
func OK() rpc.Response {
	return rpc.Response{Result: json.RawMessage(`true`)}
}

// PageResponse builds a listUsers/searchUsers response.
func PageResponse(offset, total, pageSize, currentPage, numberOfPages int, records ...map[string]any) rpc.Response {
	if records == nil {
		records = []map[string]any{}
	}
	body, err := json.Marshal(map[string]any{
		"resultSet":     records,
		"offset":        offset,
		"totalResults":  total,
		"pageSize":      pageSize,
		"currentPage":   currentPage,
		"numberOfPages": numberOfPages,
	})
	if err != nil {
		panic(err)
	}
	return rpc.Response{Result: body}
}

// Users builds n user records with ids starting at first.
func Users(first int64, n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := int64(0); i < int64(n); i++ {
		id := first + i
		out = append(out, map[string]any{
			"id":          id,
			"username":    fmt.Sprintf("user%d", id),
			"displayName": fmt.Sprintf("User %d", id),
		})
	}
	return out
}
