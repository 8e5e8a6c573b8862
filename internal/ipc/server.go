package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"loom/internal/daemon"
	"loom/internal/logging"
	"loom/internal/logs"
	"loom/internal/prd"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Loom", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun loom stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.DocumentDBPath = status.DocumentDBPath
	resp.LockPath = status.LockFilePath
	resp.TotalDocuments = status.Documents.Total
	resp.ActiveSessions = status.ActiveSessions
	resp.DocumentCounts = map[string]int{
		string(prd.StatusDraft):      status.Documents.Draft,
		string(prd.StatusInReview):   status.Documents.InReview,
		string(prd.StatusApproved):   status.Documents.Approved,
		string(prd.StatusInProgress): status.Documents.InProgress,
		string(prd.StatusComplete):   status.Documents.Complete,
		string(prd.StatusArchived):   status.Documents.Archived,
	}
	return nil
}

func (s *service) DocCreate(req DocCreateRequest, resp *DocCreateResponse) error {
	doc, err := s.daemon.CreateDocument(s.ctx, req.Title, req.Content)
	if err != nil {
		return err
	}
	resp.Document = FromDocument(doc)
	return nil
}

func (s *service) DocList(req DocListRequest, resp *DocListResponse) error {
	statuses := make([]prd.Status, 0, len(req.Statuses))
	for _, raw := range req.Statuses {
		parsed, ok := prd.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unknown status %q", raw)
		}
		statuses = append(statuses, parsed)
	}
	docs, err := s.daemon.ListDocuments(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Documents = make([]Document, 0, len(docs))
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, FromDocument(doc))
	}
	return nil
}

func (s *service) DocShow(req DocShowRequest, resp *DocShowResponse) error {
	doc, err := s.daemon.GetDocument(s.ctx, req.ID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document %d not found", req.ID)
	}
	resp.Document = FromDocument(doc)

	infos, err := s.daemon.StageStates(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Stages = make([]StageState, 0, len(infos))
	for _, info := range infos {
		resp.Stages = append(resp.Stages, StageState{ID: info.ID, Label: info.Label, State: string(info.State)})
	}
	return nil
}

func (s *service) DocUpdate(req DocUpdateRequest, resp *DocUpdateResponse) error {
	return s.daemon.UpdateDocumentContent(s.ctx, req.ID, req.Title, req.Content)
}

func (s *service) DocArchive(req DocArchiveRequest, resp *DocArchiveResponse) error {
	s.log().Debug("document archive requested", logging.Int64(logging.FieldDocID, req.ID))
	return s.daemon.ArchiveDocument(s.ctx, req.ID)
}

func (s *service) DocSetStatus(req DocSetStatusRequest, resp *DocSetStatusResponse) error {
	status, ok := prd.ParseStatus(req.Status)
	if !ok {
		return fmt.Errorf("unknown status %q", req.Status)
	}
	s.log().Debug("status override requested",
		logging.Int64(logging.FieldDocID, req.ID),
		logging.String("status", req.Status))
	return s.daemon.SetDocumentStatus(s.ctx, req.ID, status)
}

func (s *service) StageList(req StageListRequest, resp *StageListResponse) error {
	infos, err := s.daemon.StageStates(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Stages = make([]StageState, 0, len(infos))
	for _, info := range infos {
		resp.Stages = append(resp.Stages, StageState{ID: info.ID, Label: info.Label, State: string(info.State)})
	}
	return nil
}

func (s *service) StageRun(req StageRunRequest, resp *StageRunResponse) error {
	s.log().Debug("stage run requested",
		logging.Int64(logging.FieldDocID, req.ID),
		logging.String(logging.FieldStage, req.StageID))
	sess, err := s.daemon.RunStage(s.ctx, req.ID, req.StageID)
	if err != nil {
		return err
	}
	resp.Session = FromSession(sess)
	return nil
}

func (s *service) StageDone(req StageDoneRequest, resp *StageDoneResponse) error {
	s.log().Debug("stage done requested", logging.Int64(logging.FieldDocID, req.ID))
	next, err := s.daemon.MarkStageDone(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Status = string(next)
	return nil
}

func (s *service) StageCancel(req StageCancelRequest, resp *StageCancelResponse) error {
	s.log().Debug("stage cancel requested", logging.Int64(logging.FieldDocID, req.ID))
	s.daemon.CancelSession(s.ctx, req.ID)
	return nil
}

func (s *service) SessionList(_ SessionListRequest, resp *SessionListResponse) error {
	sessions := s.daemon.Sessions()
	resp.Sessions = make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		resp.Sessions = append(resp.Sessions, FromSession(sess))
	}
	return nil
}

func (s *service) SessionReset(_ SessionResetRequest, resp *SessionResetResponse) error {
	s.log().Debug("session reset requested")
	resp.Cleared = s.daemon.ResetSessions(s.ctx)
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}
