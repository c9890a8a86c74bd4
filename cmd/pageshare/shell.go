package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raveportal/pageshare/internal/config"
	"github.com/raveportal/pageshare/internal/dom"
	"github.com/raveportal/pageshare/internal/rpc"
	"github.com/raveportal/pageshare/internal/session"
)

var (
	shellPageID  int64
	shellOwnerID int64
	shellMembers []string
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Drive a share dialog from the terminal",
	Long: `Opens one share session against the portal and prints every render as Markdown.

Commands:
  show                       load the first page of users
  search <term>              search users
  clear                      clear the search
  page <n>                   go to page n
  <action> <userId>          addMember, removeMember, addEditor or removeEditor
  clone <userId> <pageName>  copy the page for a user
  quit                       leave`,
	RunE: runShell,
}

func init() {
	shellCmd.Flags().Int64Var(&shellPageID, "page-id", 0, "page to share (required)")
	shellCmd.Flags().Int64Var(&shellOwnerID, "owner-id", 0, "owner of the page (required)")
	shellCmd.Flags().StringSliceVar(&shellMembers, "member", nil, "existing member as <userId> or <userId>:editor (repeatable)")
	_ = shellCmd.MarkFlagRequired("page-id")
	_ = shellCmd.MarkFlagRequired("owner-id")
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	// Keep logs off stdout, which belongs to the rendered dialog.
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log)

	members, err := parseMembers(shellMembers)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	st, err := buildStack(cfg, logger, rpc.WithFailureHandler(func(op rpc.Operation, err error) {
		fmt.Fprintf(cmd.ErrOrStderr(), "! %s failed: %v\n", op, err)
	}))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	defer st.sessions.Shutdown()

	s, err := st.sessions.Create(ctx, session.InitData{PageID: shellPageID, OwnerID: shellOwnerID, Members: members})
	if err != nil {
		return err
	}

	md := dom.NewMarkdownWriter(out)
	updates, unsubscribe := s.Fragment().Subscribe()
	defer unsubscribe()
	html, _ := s.Fragment().HTML()
	md.SetHTML(html)
	go func() {
		for {
			select {
			case markup := <-updates:
				md.SetHTML(markup)
			case <-ctx.Done():
				return
			}
		}
	}()

	return runCommands(ctx, cmd.InOrStdin(), cmd.ErrOrStderr(), s)
}

// runCommands reads commands until EOF or quit.
func runCommands(ctx context.Context, in io.Reader, errOut io.Writer, s *session.Session) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		if err := runCommand(ctx, s, line); err != nil {
			fmt.Fprintf(errOut, "! %v\n", err)
		}
	}
	return sc.Err()
}

func runCommand(ctx context.Context, s *session.Session, line string) error {
	name, rest, _ := strings.Cut(line, " ")
	if name == "clone" {
		userID, pageName, err := parseClone(rest)
		if err != nil {
			return err
		}
		return s.CloneForUser(ctx, userID, pageName)
	}
	evt, err := parseCommand(line)
	if err != nil {
		return err
	}
	return s.HandleEvent(ctx, evt)
}

// parseCommand turns a shell line into the UI event a browser would send.
func parseCommand(line string) (dom.Event, error) {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "show":
		return dom.Event{Type: "show", Target: "#sharePageDialog"}, nil
	case "search":
		return dom.Event{Type: "click", Target: "#shareSearchButton", Form: map[string]string{"searchTerm": rest}}, nil
	case "clear":
		return dom.Event{Type: "click", Target: "#clearSearchButton"}, nil
	case "page":
		if rest == "" {
			return dom.Event{}, errors.New("usage: page <n>")
		}
		return dom.Event{Type: "click", Target: "#pagingul a", Data: map[string]string{"pagenumber": rest}}, nil
	case "addMember", "removeMember", "addEditor", "removeEditor":
		if rest == "" {
			return dom.Event{}, fmt.Errorf("usage: %s <userId>", name)
		}
		return dom.Event{
			Type:   "click",
			Target: ".searchResultRecord a",
			Data:   map[string]string{"action": name, "userid": rest},
		}, nil
	default:
		return dom.Event{}, fmt.Errorf("unknown command %q", name)
	}
}

func parseClone(rest string) (int64, string, error) {
	rawID, name, ok := strings.Cut(strings.TrimSpace(rest), " ")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return 0, "", errors.New("usage: clone <userId> <pageName>")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid user id %q", rawID)
	}
	return id, name, nil
}

// parseMembers reads --member values of the form <userId>[:editor].
func parseMembers(raw []string) ([]session.MemberInit, error) {
	members := make([]session.MemberInit, 0, len(raw))
	for _, r := range raw {
		idPart, flag, hasFlag := strings.Cut(r, ":")
		id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid member %q: %w", r, err)
		}
		if hasFlag && flag != "editor" {
			return nil, fmt.Errorf("invalid member %q: unknown flag %q", r, flag)
		}
		members = append(members, session.MemberInit{UserID: id, Editor: hasFlag})
	}
	return members, nil
}
