// Package rpc is the client side of the portal's remote call API. Calls are
// asynchronous: each one takes a success callback that runs later, on the
// calling session's event loop. Failures never reach the success callback;
// they go to the transport's FailureHandler.
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Operation names a remote call.
type Operation string

const (
	OpListUsers               Operation = "listUsers"
	OpSearchUsers             Operation = "searchUsers"
	OpAddMemberToPage         Operation = "addMemberToPage"
	OpRemoveMemberFromPage    Operation = "removeMemberFromPage"
	OpUpdatePageEditingStatus Operation = "updatePageEditingStatus"
)

// ErrRateLimited is reported when a call is rejected before being sent.
var ErrRateLimited = errors.New("remote call rate limited")

// RemoteError is a failure reported by the portal itself.
type RemoteError struct {
	Op         Operation
	StatusCode int
	Code       string
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s failed: %s (%s)", e.Op, e.Message, e.Code)
	}
	return fmt.Sprintf("%s failed with status %d", e.Op, e.StatusCode)
}

// Response is the envelope every remote call answers with.
type Response struct {
	Result       json.RawMessage `json:"result"`
	Error        bool            `json:"error"`
	ErrorCode    string          `json:"errorCode,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

// PageResult is the paginated payload of listUsers and searchUsers. Every
// field is optional so callers can default what the server left out.
type PageResult struct {
	ResultSet     []map[string]any `json:"resultSet"`
	Offset        *int             `json:"offset"`
	TotalResults  *int             `json:"totalResults"`
	PageSize      *int             `json:"pageSize"`
	CurrentPage   *int             `json:"currentPage"`
	NumberOfPages *int             `json:"numberOfPages"`
}

// PageResult decodes the result payload as a page of records.
func (r Response) PageResult() (PageResult, error) {
	var pr PageResult
	if len(r.Result) == 0 || string(r.Result) == "null" {
		return pr, nil
	}
	if err := json.Unmarshal(r.Result, &pr); err != nil {
		return PageResult{}, fmt.Errorf("decoding page result: %w", err)
	}
	return pr, nil
}

// SuccessFunc receives a confirmed response.
type SuccessFunc func(Response)

// ListUsersParams are the parameters of listUsers.
type ListUsersParams struct {
	Offset int
}

// SearchUsersParams are the parameters of searchUsers.
type SearchUsersParams struct {
	SearchTerm string
	Offset     int
}

// MemberParams identify a user on a page.
type MemberParams struct {
	PageID int64
	UserID int64
}

// EditingStatusParams are the parameters of updatePageEditingStatus. A
// non-empty PageName asks the portal to clone the page for the user.
type EditingStatusParams struct {
	PageID   int64
	UserID   int64
	IsEditor bool
	PageName string
}

// Client issues remote calls. Implementations return immediately; onSuccess
// runs on a later turn of the caller's event loop.
type Client interface {
	ListUsers(p ListUsersParams, onSuccess SuccessFunc)
	SearchUsers(p SearchUsersParams, onSuccess SuccessFunc)
	AddMemberToPage(p MemberParams, onSuccess SuccessFunc)
	RemoveMemberFromPage(p MemberParams, onSuccess SuccessFunc)
	UpdatePageEditingStatus(p EditingStatusParams, onSuccess SuccessFunc)
}

// FailureHandler is the single place remote failures surface. The default
// only logs, leaving the UI on the last confirmed state.
type FailureHandler func(op Operation, err error)
