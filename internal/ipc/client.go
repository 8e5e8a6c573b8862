package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to start serving.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Loom.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop serving.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Loom.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Loom.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DocCreate inserts a new draft document.
func (c *Client) DocCreate(title, content string) (*DocCreateResponse, error) {
	var resp DocCreateResponse
	req := DocCreateRequest{Title: title, Content: content}
	if err := c.client.Call("Loom.DocCreate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DocList returns documents optionally filtered by statuses.
func (c *Client) DocList(statuses []string) (*DocListResponse, error) {
	var resp DocListResponse
	req := DocListRequest{Statuses: statuses}
	if err := c.client.Call("Loom.DocList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DocShow returns one document with its resolved stage states.
func (c *Client) DocShow(id int64) (*DocShowResponse, error) {
	var resp DocShowResponse
	req := DocShowRequest{ID: id}
	if err := c.client.Call("Loom.DocShow", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DocUpdate replaces a document's content and, when title is non-blank, its
// title.
func (c *Client) DocUpdate(id int64, title, content string) (*DocUpdateResponse, error) {
	var resp DocUpdateResponse
	req := DocUpdateRequest{ID: id, Title: title, Content: content}
	if err := c.client.Call("Loom.DocUpdate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DocArchive archives a document.
func (c *Client) DocArchive(id int64) (*DocArchiveResponse, error) {
	var resp DocArchiveResponse
	req := DocArchiveRequest{ID: id}
	if err := c.client.Call("Loom.DocArchive", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DocSetStatus applies an administrative status override.
func (c *Client) DocSetStatus(id int64, status string) (*DocSetStatusResponse, error) {
	var resp DocSetStatusResponse
	req := DocSetStatusRequest{ID: id, Status: status}
	if err := c.client.Call("Loom.DocSetStatus", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StageList resolves the stage catalog for a document.
func (c *Client) StageList(id int64) (*StageListResponse, error) {
	var resp StageListResponse
	req := StageListRequest{ID: id}
	if err := c.client.Call("Loom.StageList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StageRun starts a stage execution session.
func (c *Client) StageRun(id int64, stageID string) (*StageRunResponse, error) {
	var resp StageRunResponse
	req := StageRunRequest{ID: id, StageID: stageID}
	if err := c.client.Call("Loom.StageRun", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StageDone completes a document's active session.
func (c *Client) StageDone(id int64) (*StageDoneResponse, error) {
	var resp StageDoneResponse
	req := StageDoneRequest{ID: id}
	if err := c.client.Call("Loom.StageDone", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StageCancel ends a document's active session.
func (c *Client) StageCancel(id int64) (*StageCancelResponse, error) {
	var resp StageCancelResponse
	req := StageCancelRequest{ID: id}
	if err := c.client.Call("Loom.StageCancel", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionList lists active execution sessions.
func (c *Client) SessionList() (*SessionListResponse, error) {
	var resp SessionListResponse
	if err := c.client.Call("Loom.SessionList", SessionListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionReset force-clears all sessions.
func (c *Client) SessionReset() (*SessionResetResponse, error) {
	var resp SessionResetResponse
	if err := c.client.Call("Loom.SessionReset", SessionResetRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Loom.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
