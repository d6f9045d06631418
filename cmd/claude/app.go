package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"

	claude "github.com/AshwinPathi/claude-api-go"
	"github.com/AshwinPathi/claude-api-go/internal/cache"
	"github.com/AshwinPathi/claude-api-go/internal/config"
	"github.com/AshwinPathi/claude-api-go/internal/db"
	"github.com/AshwinPathi/claude-api-go/internal/transcript"
	"github.com/AshwinPathi/claude-api-go/transport"
)

// app holds what every command needs. Everything but the config is built
// lazily, so commands that fail early never touch the network or the disk.
type app struct {
	cfg    config.Config
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	tty    bool
	errTTY bool
	piped  bool
	logger *log.Logger
	cancel context.CancelFunc

	transportOpts []transport.Option

	client      *claude.Client
	session     *claude.Session
	index       *db.DB
	transcripts *cache.Transcripts
	orgs        *cache.Organizations
}

func newApp(cfg config.Config) *app {
	return &app{
		cfg:    cfg,
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		tty:    isOutputTTY(),
		errTTY: isErrTTY(),
		piped:  !isInputTTY(),
		logger: log.New(io.Discard),
	}
}

// setup applies the settings flags can change: the log level and the
// timeout of the whole command.
func (a *app) setup(ctx context.Context) context.Context {
	if a.cfg.Verbose {
		a.logger = log.NewWithOptions(a.errOut, log.Options{
			Level:           log.DebugLevel,
			ReportTimestamp: true,
			Prefix:          "claude",
		})
	}
	if a.cfg.Timeout > 0 {
		ctx, a.cancel = context.WithTimeout(ctx, a.cfg.Timeout)
	}
	return ctx
}

// status spins next to text on stderr until the returned func is first
// called.
func (a *app) status(text string) func() {
	if a.cfg.Quiet || !a.errTTY {
		return func() {}
	}
	p := tea.NewProgram(
		newStatusModel(text, stderrStyles().Status),
		tea.WithOutput(a.errOut),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		if _, err := p.Run(); err != nil {
			a.logger.Debug("status line failed", "err", err)
		}
	}()
	return sync.OnceFunc(func() {
		p.Send(statusDoneMsg{})
		<-finished
	})
}

// interactive is true when both ends are a terminal.
func (a *app) interactive() bool {
	return a.tty && !a.piped
}

// close releases what the command opened. err is the outcome of the
// command: when the server rejected the session key or the organization,
// the cached organizations are dropped so the next command asks again.
func (a *app) close(err error) {
	var terr *transport.Error
	if errors.As(err, &terr) && rejected(terr.StatusCode) {
		if orgCache := a.orgCache(); orgCache != nil {
			if err := orgCache.Delete(a.fingerprint()); err != nil {
				a.logger.Warn("could not drop cached organizations", "err", err)
			}
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			a.logger.Warn("could not close conversation index", "err", err)
		}
	}
}

func rejected(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

func (a *app) getClient() (*claude.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	cfg, err := a.cfg.Client()
	if err != nil {
		return nil, err
	}
	opts := append([]transport.Option{transport.WithLogger(a.logger)}, a.transportOpts...)
	client, err := claude.New(cfg, claude.WithTransport(transport.New(opts...)))
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

// fingerprint identifies the session key in cache file names without
// writing the key itself to disk.
func (a *app) fingerprint() string {
	sum := sha256.Sum256([]byte(a.cfg.SessionKey))
	return hex.EncodeToString(sum[:8])
}

// organizations lists the organizations of the session, from the cache when
// it is fresh enough.
func (a *app) organizations(ctx context.Context, fresh bool) ([]claude.Organization, error) {
	client, err := a.getClient()
	if err != nil {
		return nil, err
	}
	orgCache := a.orgCache()
	if orgCache != nil && !fresh {
		if orgs, err := orgCache.Read(a.fingerprint()); err == nil && len(orgs) > 0 {
			a.logger.Debug("using cached organizations", "count", len(orgs))
			return orgs, nil
		}
	}
	orgs, err := client.Organizations(ctx)
	if err != nil {
		return nil, err
	}
	if orgCache != nil {
		if err := orgCache.Write(a.fingerprint(), orgs); err != nil {
			a.logger.Warn("could not cache organizations", "err", err)
		}
	}
	return orgs, nil
}

func (a *app) getSession(ctx context.Context) (*claude.Session, error) {
	if a.session != nil {
		return a.session, nil
	}
	client, err := a.getClient()
	if err != nil {
		return nil, err
	}
	org := a.cfg.Organization
	if org == "" {
		orgs, err := a.organizations(ctx, false)
		if err != nil {
			return nil, err
		}
		if len(orgs) == 0 {
			return nil, claude.ErrNoOrganization
		}
		org = orgs[0].UUID
	}
	session, err := claude.NewSession(ctx, client, org, claude.WithSessionLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.session = session
	return session, nil
}

func (a *app) orgCache() *cache.Organizations {
	if a.cfg.NoCache {
		return nil
	}
	if a.orgs == nil {
		orgs, err := cache.NewOrganizations(a.cfg.CachePath, a.cfg.OrgCacheTTL)
		if err != nil {
			a.logger.Warn("organization cache disabled", "err", err)
			return nil
		}
		a.orgs = orgs
	}
	return a.orgs
}

func (a *app) transcriptCache() *cache.Transcripts {
	if a.cfg.NoCache {
		return nil
	}
	if a.transcripts == nil {
		transcripts, err := cache.NewTranscripts(a.cfg.CachePath)
		if err != nil {
			a.logger.Warn("transcript cache disabled", "err", err)
			return nil
		}
		a.transcripts = transcripts
	}
	return a.transcripts
}

func (a *app) getIndex() *db.DB {
	if a.cfg.NoCache {
		return nil
	}
	if a.index == nil {
		index, err := db.Open(a.cfg.CachePath)
		if err != nil {
			a.logger.Warn("conversation index disabled", "err", err)
			return nil
		}
		a.index = index
	}
	return a.index
}

// sync indexes conversations listed by the server.
func (a *app) sync(org string, convos []claude.Conversation) {
	index := a.getIndex()
	if index == nil {
		return
	}
	for _, c := range convos {
		if err := index.Save(db.Conversation{
			ID:           c.UUID,
			Organization: org,
			Title:        c.Name,
			Model:        c.Model,
			UpdatedAt:    c.UpdatedAt,
		}); err != nil {
			a.logger.Warn("could not index conversation", "uuid", c.UUID, "err", err)
			return
		}
	}
}

// remember records that a conversation was used.
func (a *app) remember(org, id, title, model string) {
	index := a.getIndex()
	if index == nil {
		return
	}
	if err := index.Save(db.Conversation{ID: id, Organization: org, Title: title, Model: model}); err != nil {
		a.logger.Warn("could not index conversation", "uuid", id, "err", err)
	}
}

func (a *app) forget(id string) {
	if index := a.getIndex(); index != nil {
		if err := index.Delete(id); err != nil {
			a.logger.Warn("could not drop conversation from index", "uuid", id, "err", err)
		}
	}
	if transcripts := a.transcriptCache(); transcripts != nil {
		if err := transcripts.Delete(id); err != nil {
			a.logger.Warn("could not drop cached transcript", "uuid", id, "err", err)
		}
	}
}

// forgetAll forgets every indexed conversation of org but the kept ones.
func (a *app) forgetAll(org string, keep []string) {
	index := a.getIndex()
	if index == nil {
		return
	}
	convos, err := index.List(org)
	if err != nil {
		a.logger.Warn("could not list indexed conversations", "err", err)
		return
	}
	for _, c := range convos {
		if !slices.Contains(keep, c.ID) {
			a.forget(c.ID)
		}
	}
}

// resolve turns a title or uuid prefix into a conversation uuid. Without an
// index, or when the index knows nothing about it, the input is used as is.
func (a *app) resolve(org, in string) (string, error) {
	index := a.getIndex()
	if index == nil {
		return in, nil
	}
	convo, err := index.Find(org, in)
	if errors.Is(err, db.ErrNoMatches) {
		return in, nil
	}
	if err != nil {
		return "", err
	}
	return convo.ID, nil
}

// last returns the most recently used conversation.
func (a *app) last(org string) (string, error) {
	index := a.getIndex()
	if index == nil {
		return "", newUserErrorf("--continue-last needs the conversation index, which --no-cache disables")
	}
	convo, err := index.FindHEAD(org)
	if err != nil {
		return "", cliError{err, "No conversation was used yet."}
	}
	return convo.ID, nil
}

func (a *app) cacheTranscript(cc transcript.Conversation) {
	if transcripts := a.transcriptCache(); transcripts != nil {
		if err := transcripts.Write(cc); err != nil {
			a.logger.Warn("could not cache transcript", "uuid", cc.ID, "err", err)
		}
	}
}

// render formats markdown for the terminal, unless raw output was asked for
// or stdout is not a terminal.
func (a *app) render(md string) string {
	if a.cfg.Raw || !a.tty {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(a.cfg.WordWrap),
	)
	if err != nil {
		a.logger.Debug("could not build markdown renderer", "err", err)
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		a.logger.Debug("could not render markdown", "err", err)
		return md
	}
	return out
}
