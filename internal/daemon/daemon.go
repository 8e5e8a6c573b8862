package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"loom/internal/config"
	"loom/internal/engine"
	"loom/internal/logging"
	"loom/internal/prd"
	"loom/internal/services"
	"loom/internal/session"
	"loom/internal/workflow"
)

// Daemon owns the document store and the workflow engine and enforces
// single-instance execution through a lock file. All IPC handlers delegate
// here.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *prd.Store
	engine *engine.Engine

	logPath  string
	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	DocumentDBPath string
	LockFilePath   string
	Documents      prd.CountSummary
	ActiveSessions int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *prd.Store, eng *engine.Engine, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || eng == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, engine, and logger")
	}

	lockPath := filepath.Join(cfg.LogDir(), "loomd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		engine:   eng,
		logPath:  filepath.Join(cfg.LogDir(), "loom.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and begins serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another loom daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.running.Store(true)
	d.logger.Info("loom daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop ends every active session and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if cleared := d.engine.Reset(context.Background()); cleared > 0 {
		d.logger.Info("cleared sessions on shutdown", logging.Int("count", cleared))
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("loom daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// CreateDocument validates and inserts a new draft document.
func (d *Daemon) CreateDocument(ctx context.Context, title, content string) (*prd.Document, error) {
	doc, err := d.store.Create(ctx, strings.TrimSpace(title), content)
	if err != nil {
		return nil, err
	}
	d.logger.Info("document created",
		logging.Int64(logging.FieldDocID, doc.ID),
		logging.String("title", doc.Title))
	return doc, nil
}

// ListDocuments returns documents filtered by optional statuses.
func (d *Daemon) ListDocuments(ctx context.Context, statuses []prd.Status) ([]*prd.Document, error) {
	return d.store.List(ctx, statuses...)
}

// GetDocument returns a single document or nil when absent.
func (d *Daemon) GetDocument(ctx context.Context, id int64) (*prd.Document, error) {
	return d.store.GetByID(ctx, id)
}

// UpdateDocumentContent replaces a document's body and, when title is
// non-blank, its title. A blank title keeps the stored one.
func (d *Daemon) UpdateDocumentContent(ctx context.Context, id int64, title, content string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		doc, err := d.store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return services.Wrap(services.ErrNotFound, "", "update document", fmt.Sprintf("document %d", id), nil)
		}
		title = doc.Title
	}
	return d.store.UpdateContent(ctx, id, title, content)
}

// ArchiveDocument archives a document through the engine so active sessions
// are refused.
func (d *Daemon) ArchiveDocument(ctx context.Context, id int64) error {
	return d.engine.Archive(ctx, id)
}

// SetDocumentStatus applies an administrative status override.
func (d *Daemon) SetDocumentStatus(ctx context.Context, id int64, status prd.Status) error {
	return d.engine.OverrideStatus(ctx, id, status)
}

// StageStates resolves the stage catalog for a document.
func (d *Daemon) StageStates(ctx context.Context, id int64) ([]engine.StageInfo, error) {
	return d.engine.StageStates(ctx, id)
}

// RunStage starts a stage execution session for a document.
func (d *Daemon) RunStage(ctx context.Context, id int64, stageID string) (*session.Session, error) {
	return d.engine.Execute(ctx, id, stageID)
}

// MarkStageDone completes the document's active session.
func (d *Daemon) MarkStageDone(ctx context.Context, id int64) (prd.Status, error) {
	return d.engine.MarkDone(ctx, id)
}

// CancelSession ends the document's active session without a status change.
func (d *Daemon) CancelSession(ctx context.Context, id int64) {
	d.engine.Cancel(ctx, id)
}

// Sessions lists the active execution sessions.
func (d *Daemon) Sessions() []*session.Session {
	return d.engine.Sessions()
}

// ResetSessions force-clears all sessions and returns how many were cleared.
func (d *Daemon) ResetSessions(ctx context.Context) int {
	return d.engine.Reset(ctx)
}

// Stages returns the stage catalog definitions.
func (d *Daemon) Stages() []workflow.StageDef {
	return workflow.Stages()
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	counts, err := d.store.Counts(ctx)
	if err != nil {
		d.logger.Warn("failed to count documents", logging.Error(err))
	}
	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		DocumentDBPath: filepath.Join(d.cfg.DataDir(), "documents.db"),
		LockFilePath:   d.lockPath,
		Documents:      counts,
		ActiveSessions: len(d.engine.Sessions()),
	}
}
