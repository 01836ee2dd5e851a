// Package introspect is a read-only gRPC surface: it reports
// per-process handle-table occupancy without granting any capability
// over the handles themselves, so it can be exposed to monitoring
// tooling that must never be able to forge a handle.
//
// The server wraps its shared state (*state.Registry, which does its own
// locking) and bootstraps with the usual net.Listen + grpc.NewServer +
// Register*Server + reflection.Register sequence. The generated-code
// shape in introspect.pb.go / introspect_grpc.pb.go follows the older
// github.com/golang/protobuf-style plain-struct generator rather than
// the newer reflection-backed one.
package introspect

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/neveragainde/cloudabi-utils/state"
)

// Server implements IntrospectionServer over a *state.Registry.
type Server struct {
	UnimplementedIntrospectionServer

	registry *state.Registry
	grpc     *grpc.Server
}

// NewServer returns a Server reporting on registry.
func NewServer(registry *state.Registry) *Server {
	return &Server{registry: registry}
}

// ListProcesses reports one ProcessStats per registered process, taken as
// a point-in-time snapshot under the registry's read lock.
func (s *Server) ListProcesses(ctx context.Context, in *ListProcessesRequest) (*ListProcessesResponse, error) {
	out := &ListProcessesResponse{}
	s.registry.Each(func(p *state.Process) {
		out.Processes = append(out.Processes, &ProcessStats{
			Pid:             p.ID,
			TableSize:       p.Table.Size(),
			TableUsed:       p.Table.Used(),
			CreatedUnixNano: p.CreatedAt.UnixNano(),
		})
	})
	return out, nil
}

// Serve builds a gRPC server around s, registers it and the reflection
// service the way initGrpcServer does, and blocks serving lis until Stop
// is called or lis errors.
func (s *Server) Serve(lis net.Listener) error {
	g := grpc.NewServer()
	RegisterIntrospectionServer(g, s)
	reflection.Register(g)
	s.grpc = g

	logrus.Infof("introspect: serving on %s", lis.Addr())
	return g.Serve(lis)
}

// Stop gracefully stops the server started by Serve, if any.
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
}
