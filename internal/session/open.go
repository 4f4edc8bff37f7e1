package session

import (
	"github.com/Iron-Ham/inkgate/internal/config"
	"github.com/Iron-Ham/inkgate/internal/lock"
	"github.com/Iron-Ham/inkgate/internal/payload"
	"github.com/Iron-Ham/inkgate/internal/reconcile"
	"github.com/Iron-Ham/inkgate/internal/state"
)

// Open starts a writing session on the repository at repoPath.
//
// The sequence is: sync main with the remote, honour a pending kill request,
// commit human edits, fast-forward, tag a snapshot, take the shared lock and
// move to the draft branch. A killed or already-running session returns a
// payload with the corresponding flag set and no material loaded; only
// environment failures and protocol refusals are errors.
func (c *Coordinator) Open(repoPath string) (*payload.Payload, error) {
	cl := c.begin("open", repoPath)
	cl.log.Info("opening session")

	mainRef := c.remoteRef(c.git.MainBranch)

	if err := cl.repo.EnsureRepository(); err != nil {
		return nil, cl.fail("verify repository", err)
	}
	if err := cl.repo.Fetch(c.git.Remote); err != nil {
		return nil, cl.fail("fetch", err)
	}
	if err := cl.repo.Checkout(c.git.MainBranch); err != nil {
		return nil, cl.fail("checkout main", err)
	}

	gate := &lock.Gate{
		RepoPath: repoPath,
		Repo:     cl.repo,
		Remote:   c.git.Remote,
		Branch:   c.git.MainBranch,
		Now:      c.now,
		Logger:   cl.log,
	}

	killed, err := gate.DetectKill()
	if err != nil {
		return nil, cl.fail("detect kill", err)
	}
	if killed {
		if err := gate.AcknowledgeKill(); err != nil {
			return nil, cl.fail("acknowledge kill", err)
		}
		p := emptyPayload(cl.id)
		p.KillRequested = true
		return p, nil
	}

	cfg, err := config.LoadBook(repoPath)
	if err != nil {
		return nil, cl.fail("load config", err)
	}
	st, err := state.Load(repoPath)
	if err != nil {
		return nil, cl.fail("load state", err)
	}

	rec, err := reconcile.Sync(cl.repo, mainRef, cl.log)
	if err != nil {
		return nil, cl.fail("reconcile", err)
	}

	var warnings []string
	tag := SnapshotTagPrefix + c.now().Local().Format(snapshotTagFormat)
	created, err := cl.repo.CreateTag(tag)
	if err != nil {
		return nil, cl.fail("snapshot tag", err)
	}
	if !created {
		warnings = append(warnings, "snapshot tag "+tag+" already existed; reused")
	}
	if err := cl.repo.Push(c.git.Remote, c.git.MainBranch, true); err != nil {
		return nil, cl.fail("push snapshot", err)
	}

	adm, err := gate.Admit(cfg.SessionTimeout())
	if err != nil {
		return nil, cl.fail("admit", err)
	}
	if adm.Outcome == lock.Active {
		p := emptyPayload(cl.id)
		p.SessionAlreadyRun = true
		p.SnapshotTag = tag
		p.HumanEdits = nonNil(rec.HumanEdits)
		p.Config = payload.Snapshot(cfg, st.CurrentChapter)
		p.CurrentChapterWordCount = st.CurrentChapterWordCount
		p.Warnings = warnings
		return p, nil
	}

	if err := cl.repo.CheckoutOrCreate(c.git.DraftBranch); err != nil {
		return nil, cl.fail("checkout draft", err)
	}
	if err := cl.repo.Rebase(c.git.MainBranch); err != nil {
		return nil, cl.fail("rebase draft", err)
	}

	builder := &payload.Builder{RepoPath: repoPath, Config: cfg, State: st, Logger: cl.log}
	p, err := builder.Build(rec.HumanEdits)
	if err != nil {
		return nil, cl.fail("build payload", err)
	}
	p.SessionID = cl.id
	p.SnapshotTag = tag
	p.StaleLockRecovered = adm.Outcome == lock.StaleRecovered
	p.Warnings = warnings

	cl.log.Info("session opened",
		"outcome", adm.Outcome.String(),
		"snapshot_tag", tag,
		"human_edits", len(p.HumanEdits),
		"instructions", len(p.CurrentReview.Instructions),
	)
	return p, nil
}

// emptyPayload is the payload of a session that did not start.
func emptyPayload(sessionID string) *payload.Payload {
	return &payload.Payload{
		SessionID:      sessionID,
		HumanEdits:     []string{},
		GlobalMaterial: []payload.File{},
		CurrentReview:  payload.Review{Instructions: []payload.Instruction{}},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
