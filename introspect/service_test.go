package introspect

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/neveragainde/cloudabi-utils/rand"
	"github.com/neveragainde/cloudabi-utils/state"
)

func dialServer(t *testing.T, srv *Server) (IntrospectionClient, func()) {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	go func() {
		_ = srv.Serve(lis)
	}()

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	return NewIntrospectionClient(conn), func() {
		srv.Stop()
		_ = conn.Close()
	}
}

func TestListProcessesReportsRegisteredProcesses(t *testing.T) {
	registry := state.NewRegistry()
	_, err := registry.Create(42, rand.New())
	require.NoError(t, err)

	client, closeFn := dialServer(t, NewServer(registry))
	defer closeFn()

	resp, err := client.ListProcesses(context.Background(), &ListProcessesRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Processes, 1)

	got := resp.Processes[0]
	assert.Equal(t, uint32(42), got.Pid)
	assert.Equal(t, uint32(0), got.TableSize)
	assert.Equal(t, uint32(0), got.TableUsed)
	assert.NotZero(t, got.CreatedUnixNano)
}

func TestListProcessesEmptyRegistry(t *testing.T) {
	registry := state.NewRegistry()
	client, closeFn := dialServer(t, NewServer(registry))
	defer closeFn()

	resp, err := client.ListProcesses(context.Background(), &ListProcessesRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Processes)
}
