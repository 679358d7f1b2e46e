package server

import (
	"context"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client calls a VaultSync server
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a VaultSync server at target
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out)
}

// StartWatching starts watching the directory of the vault at path
func (c *Client) StartWatching(ctx context.Context, path string) error {
	return c.invoke(ctx, "StartWatching", &PathRequest{Path: path}, &Empty{})
}

// StopWatching stops the active watch
func (c *Client) StopWatching(ctx context.Context) error {
	return c.invoke(ctx, "StopWatching", &Empty{}, &Empty{})
}

// GetSyncStatus returns the sync status
func (c *Client) GetSyncStatus(ctx context.Context) (string, error) {
	var resp SyncStatusResponse
	if err := c.invoke(ctx, "GetSyncStatus", &Empty{}, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// HasConflict reports whether a conflict backup of the vault exists
func (c *Client) HasConflict(ctx context.Context, path string) (bool, error) {
	var resp ConflictResponse
	if err := c.invoke(ctx, "HasConflict", &PathRequest{Path: path}, &resp); err != nil {
		return false, err
	}
	return resp.Conflict, nil
}

// CreateConflictBackup creates a conflict backup and returns its path
func (c *Client) CreateConflictBackup(ctx context.Context, path string) (string, error) {
	var resp PathResponse
	if err := c.invoke(ctx, "CreateConflictBackup", &PathRequest{Path: path}, &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}

// ListConflictBackups lists conflict backups, newest first
func (c *Client) ListConflictBackups(ctx context.Context, path string) ([]BackupInfo, error) {
	var resp BackupsResponse
	if err := c.invoke(ctx, "ListConflictBackups", &PathRequest{Path: path}, &resp); err != nil {
		return nil, err
	}
	return resp.Backups, nil
}

// SetSettingsEnabled locks or unlocks the settings screen
func (c *Client) SetSettingsEnabled(ctx context.Context, enabled bool) error {
	return c.invoke(ctx, "SetSettingsEnabled", &SettingsRequest{Enabled: enabled}, &Empty{})
}

// OpenSettings asks the front-end to open its settings screen
func (c *Client) OpenSettings(ctx context.Context) (bool, error) {
	var resp OpenSettingsResponse
	if err := c.invoke(ctx, "OpenSettings", &Empty{}, &resp); err != nil {
		return false, err
	}
	return resp.Opened, nil
}

// StreamEvents calls fn for every pushed change event until ctx is done,
// the server ends the stream or fn returns an error
func (c *Client) StreamEvents(ctx context.Context, fn func(FileEvent) error) error {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/StreamEvents")
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		var ev FileEvent
		if err := stream.RecvMsg(&ev); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
