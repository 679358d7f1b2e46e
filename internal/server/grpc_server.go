package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/hedge/vaultsync/internal/conflict"
	"github.com/hedge/vaultsync/internal/service"
	"github.com/hedge/vaultsync/internal/watcher"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "vaultsync.VaultSync"

// VaultSyncServer is the server API of the VaultSync service
type VaultSyncServer interface {
	StartWatching(context.Context, *PathRequest) (*Empty, error)
	StopWatching(context.Context, *Empty) (*Empty, error)
	GetSyncStatus(context.Context, *Empty) (*SyncStatusResponse, error)
	HasConflict(context.Context, *PathRequest) (*ConflictResponse, error)
	CreateConflictBackup(context.Context, *PathRequest) (*PathResponse, error)
	ListConflictBackups(context.Context, *PathRequest) (*BackupsResponse, error)
	SetSettingsEnabled(context.Context, *SettingsRequest) (*Empty, error)
	OpenSettings(context.Context, *Empty) (*OpenSettingsResponse, error)
	StreamEvents(*Empty, grpc.ServerStream) error
}

// unaryHandler adapts a typed method to a grpc.MethodDesc handler
func unaryHandler[Req any, Resp any](method string, call func(VaultSyncServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(VaultSyncServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(VaultSyncServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func streamEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(VaultSyncServer).StreamEvents(in, stream)
}

// ServiceDesc describes the VaultSync service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaultSyncServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartWatching", Handler: unaryHandler("StartWatching", VaultSyncServer.StartWatching)},
		{MethodName: "StopWatching", Handler: unaryHandler("StopWatching", VaultSyncServer.StopWatching)},
		{MethodName: "GetSyncStatus", Handler: unaryHandler("GetSyncStatus", VaultSyncServer.GetSyncStatus)},
		{MethodName: "HasConflict", Handler: unaryHandler("HasConflict", VaultSyncServer.HasConflict)},
		{MethodName: "CreateConflictBackup", Handler: unaryHandler("CreateConflictBackup", VaultSyncServer.CreateConflictBackup)},
		{MethodName: "ListConflictBackups", Handler: unaryHandler("ListConflictBackups", VaultSyncServer.ListConflictBackups)},
		{MethodName: "SetSettingsEnabled", Handler: unaryHandler("SetSettingsEnabled", VaultSyncServer.SetSettingsEnabled)},
		{MethodName: "OpenSettings", Handler: unaryHandler("OpenSettings", VaultSyncServer.OpenSettings)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamEvents", Handler: streamEventsHandler, ServerStreams: true},
	},
	Metadata: "vaultsync",
}

// VaultSyncService implements VaultSyncServer on top of service.Service
type VaultSyncService struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewVaultSyncService creates the gRPC implementation
func NewVaultSyncService(svc *service.Service, logger *zap.Logger) *VaultSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VaultSyncService{svc: svc, logger: logger}
}

// NewGRPCServer creates a grpc.Server with the VaultSync service registered
func NewGRPCServer(svc *service.Service, logger *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	s.RegisterService(&ServiceDesc, NewVaultSyncService(svc, logger))
	return s
}

// ServeGRPC listens on port and serves until the server is stopped
func ServeGRPC(s *grpc.Server, port int, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}

	logger.Info("gRPC server listening", zap.Int("port", port))
	return s.Serve(lis)
}

// StartWatching implements the StartWatching RPC
func (s *VaultSyncService) StartWatching(ctx context.Context, req *PathRequest) (*Empty, error) {
	if err := s.svc.StartWatching(req.Path); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

// StopWatching implements the StopWatching RPC
func (s *VaultSyncService) StopWatching(ctx context.Context, req *Empty) (*Empty, error) {
	if err := s.svc.StopWatching(); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

// GetSyncStatus implements the GetSyncStatus RPC
func (s *VaultSyncService) GetSyncStatus(ctx context.Context, req *Empty) (*SyncStatusResponse, error) {
	return &SyncStatusResponse{Status: s.svc.SyncStatus()}, nil
}

// HasConflict implements the HasConflict RPC
func (s *VaultSyncService) HasConflict(ctx context.Context, req *PathRequest) (*ConflictResponse, error) {
	if req.Path == "" {
		return nil, status.Error(codes.InvalidArgument, "missing path")
	}
	return &ConflictResponse{Conflict: s.svc.HasConflict(req.Path)}, nil
}

// CreateConflictBackup implements the CreateConflictBackup RPC
func (s *VaultSyncService) CreateConflictBackup(ctx context.Context, req *PathRequest) (*PathResponse, error) {
	backupPath, err := s.svc.CreateConflictBackup(req.Path)
	if err != nil {
		return nil, toStatus(err)
	}
	return &PathResponse{Path: backupPath}, nil
}

// ListConflictBackups implements the ListConflictBackups RPC
func (s *VaultSyncService) ListConflictBackups(ctx context.Context, req *PathRequest) (*BackupsResponse, error) {
	backups, err := s.svc.ListConflictBackups(req.Path)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &BackupsResponse{Backups: make([]BackupInfo, 0, len(backups))}
	for _, b := range backups {
		resp.Backups = append(resp.Backups, BackupInfo{
			Name:    b.Name,
			Path:    b.Path,
			Size:    b.Size,
			ModTime: b.ModTime.UnixMilli(),
		})
	}
	return resp, nil
}

// SetSettingsEnabled implements the SetSettingsEnabled RPC
func (s *VaultSyncService) SetSettingsEnabled(ctx context.Context, req *SettingsRequest) (*Empty, error) {
	s.svc.SetSettingsEnabled(req.Enabled)
	return &Empty{}, nil
}

// OpenSettings implements the OpenSettings RPC
func (s *VaultSyncService) OpenSettings(ctx context.Context, req *Empty) (*OpenSettingsResponse, error) {
	return &OpenSettingsResponse{Opened: s.svc.OpenSettings()}, nil
}

// StreamEvents implements the StreamEvents RPC
func (s *VaultSyncService) StreamEvents(req *Empty, stream grpc.ServerStream) error {
	events, cancel := s.svc.Subscribe()
	defer cancel()

	s.logger.Debug("event stream opened")
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return status.Error(codes.Unavailable, "service shutting down")
			}
			payload := service.NewEventPayload(ev)
			if err := stream.SendMsg(&payload); err != nil {
				return err
			}
		case <-stream.Context().Done():
			s.logger.Debug("event stream closed")
			return stream.Context().Err()
		}
	}
}

// toStatus maps service errors onto gRPC status codes
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, watcher.ErrInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, conflict.ErrFileNotFound), errors.Is(err, os.ErrNotExist):
		code = codes.NotFound
	case errors.Is(err, watcher.ErrClosed):
		code = codes.Unavailable
	case errors.Is(err, watcher.ErrWatchFailed),
		errors.Is(err, watcher.ErrStopFailed),
		errors.Is(err, conflict.ErrBackupFailed):
		code = codes.Internal
	default:
		code = codes.Unknown
	}
	return status.Error(code, err.Error())
}
