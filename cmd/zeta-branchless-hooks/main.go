// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Command zeta-branchless-hooks is installed as the ambient VCS's hook
// scripts (reference-transaction, post-commit, post-rewrite,
// post-checkout, pre-auto-gc). Each is a thin dispatch into
// modules/zetabl/hooks, opening the event log and repository once per
// invocation, matching the teacher's own per-command Repository lifetime
// (pkg/zeta/repository.go's Open).
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/antgroup/hugescm/modules/plumbing"
	"github.com/antgroup/hugescm/pkg/kong"
	"github.com/antgroup/hugescm/pkg/version"
	"github.com/antgroup/hugescm/pkg/zeta"

	"github.com/antgroup/zeta-branchless/modules/zetabl/dagindex"
	"github.com/antgroup/zeta-branchless/modules/zetabl/eventlog"
	"github.com/antgroup/zeta-branchless/modules/zetabl/gckeeper"
	"github.com/antgroup/zeta-branchless/modules/zetabl/hooks"
	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
	"github.com/antgroup/zeta-branchless/modules/zetabl/replay"
	"github.com/antgroup/zeta-branchless/pkg/zetabl/vcs"
)

const eventLogFileName = "branchless.db"

type Globals struct {
	Worktree string `name:"worktree" help:"repository worktree root" default:""`
	Verbose  bool   `name:"verbose" help:"enable verbose diagnostics" negatable:""`
}

type ReferenceTransactionCmd struct{}

func (c *ReferenceTransactionCmd) Run(g *Globals) error {
	return withHooks(g, func(h *hooks.Hooks) error {
		return h.ReferenceTransaction(context.Background(), os.Stdin)
	})
}

type PostCommitCmd struct {
	OID string `arg:"" help:"oid of the commit just created"`
}

func (c *PostCommitCmd) Run(g *Globals) error {
	o, err := parseOID(c.OID)
	if err != nil {
		return err
	}
	return withHooks(g, func(h *hooks.Hooks) error {
		return h.PostCommit(context.Background(), o)
	})
}

type PostRewriteCmd struct{}

func (c *PostRewriteCmd) Run(g *Globals) error {
	pairs, err := readRewritePairs(os.Stdin)
	if err != nil {
		return err
	}
	return withRepo(g, func(repo *zeta.Repository, h *hooks.Hooks) error {
		events, err := h.Log.GetEvents()
		if err != nil {
			return err
		}
		replayer := replay.New(events)
		adapter := vcs.New(repo.ODB(), repo.RDB())
		ctx := context.Background()
		idx := dagindex.New(ctx, adapter, replayer.GetCursorOIDs(replayer.MakeDefaultCursor()), nil)
		hints, err := h.PostRewrite(ctx, pairs, idx, replayer)
		if err != nil {
			return err
		}
		for _, hint := range hints {
			fmt.Fprintf(os.Stderr, "branchless: %s abandoned %d commit(s), consider restacking\n", hint.Rewritten, len(hint.Abandoned))
		}
		return nil
	})
}

type PostCheckoutCmd struct{}

func (c *PostCheckoutCmd) Run(g *Globals) error {
	return withHooks(g, func(h *hooks.Hooks) error {
		return h.PostCheckout(context.Background())
	})
}

type PreAutoGCCmd struct{}

func (c *PreAutoGCCmd) Run(g *Globals) error {
	return withHooks(g, func(h *hooks.Hooks) error {
		return h.PreAutoGC(context.Background())
	})
}

type App struct {
	Globals
	ReferenceTransaction ReferenceTransactionCmd `cmd:"reference-transaction" help:"record ref update events"`
	PostCommit           PostCommitCmd           `cmd:"post-commit" help:"record a new commit event and keep it alive"`
	PostRewrite          PostRewriteCmd          `cmd:"post-rewrite" help:"record rewrite events and warn on abandonment"`
	PostCheckout         PostCheckoutCmd         `cmd:"post-checkout" help:"no-op beyond ref-transaction bookkeeping"`
	PreAutoGC            PreAutoGCCmd            `cmd:"pre-auto-gc" help:"refuse the VCS's own gc pass"`
}

func main() {
	var app App
	ctx := kong.Parse(&app,
		kong.Name("zeta-branchless-hooks"),
		kong.Description("rewrite-hook dispatcher for the zeta-branchless commit-graph rewrite core"),
		kong.UsageOnError(),
		kong.Vars{"version": version.GetVersionString()},
	)
	if err := ctx.Run(&app.Globals); err != nil {
		fmt.Fprintf(os.Stderr, "zeta-branchless-hooks: %v\n", err)
		os.Exit(1)
	}
}

func withHooks(g *Globals, fn func(*hooks.Hooks) error) error {
	return withRepo(g, func(_ *zeta.Repository, h *hooks.Hooks) error { return fn(h) })
}

func withRepo(g *Globals, fn func(*zeta.Repository, *hooks.Hooks) error) error {
	repo, err := zeta.Open(context.Background(), &zeta.OpenOptions{Worktree: g.Worktree, Quiet: !g.Verbose})
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	log, err := eventlog.Open(filepath.Join(repo.ZetaDir(), eventLogFileName))
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer log.Close()
	h := &hooks.Hooks{
		Log:    log,
		Keeper: gckeeper.New(repo.RDB()),
		Now:    time.Now,
	}
	return fn(repo, h)
}

func parseOID(s string) (oid.OID, error) {
	return oid.New(plumbing.NewHash(s))
}

func readRewritePairs(r io.Reader) ([]hooks.RewritePair, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read post-rewrite input: %w", err)
	}
	var pairs []hooks.RewritePair
	for _, line := range strings.Split(string(buf), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pairs = append(pairs, hooks.RewritePair{
			Old: oid.FromHash(plumbing.NewHash(fields[0])),
			New: oid.FromHash(plumbing.NewHash(fields[1])),
		})
	}
	return pairs, nil
}
