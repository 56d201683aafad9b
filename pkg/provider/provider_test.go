package provider

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/prysmsh/tpsdk/pkg/definition"
)

func demo(t *testing.T) *definition.Description {
	t.Helper()
	d, err := definition.NewDescription("com.example.demo").
		Name("Demo").
		Version(2).
		StartCmd("demo").
		Category(definition.NewCategory("main", "Main").
			State(definition.NewState("status").Description("Status").Text().Default("idle"))).
		Build()
	if err != nil {
		t.Fatalf("Build err = %v", err)
	}
	return d
}

// connect serves impl the way go-plugin registers gRPC plugins, over an
// in-memory listener, and returns a client for it.
func connect(t *testing.T, impl Provider) Provider {
	t.Helper()
	srv := grpc.NewServer()
	if err := (&DefinitionPlugin{Impl: impl}).GRPCServer(nil, srv); err != nil {
		t.Fatalf("GRPCServer err = %v", err)
	}
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///provider",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient err = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	p, err := (&DefinitionPlugin{}).GRPCClient(context.Background(), nil, conn)
	if err != nil {
		t.Fatalf("GRPCClient err = %v", err)
	}
	return p.(Provider)
}

func TestDescriptionOverGRPC(t *testing.T) {
	want := demo(t)
	got, err := connect(t, Static(want)).Description()
	if err != nil {
		t.Fatalf("Description err = %v", err)
	}
	if got.ID != want.ID || got.Name != want.Name || got.Version != 2 {
		t.Errorf("got %s/%s v%d, want %s/%s v2", got.ID, got.Name, got.Version, want.ID, want.Name)
	}
	if len(got.Categories) != 1 || len(got.Categories[0].States) != 1 {
		t.Fatalf("categories = %+v", got.Categories)
	}
	if s := got.Categories[0].States[0]; s.ID != "status" || s.Default != "idle" {
		t.Errorf("state = %+v", s)
	}
}

func TestDescriptionErrorCrossesGRPC(t *testing.T) {
	p := connect(t, Func(func() (*definition.Description, error) {
		return nil, errors.New("no config found")
	}))
	_, err := p.Description()
	if err == nil || !strings.Contains(err.Error(), "no config found") {
		t.Fatalf("Description err = %v, want provider error", err)
	}
}

func TestPluginsKey(t *testing.T) {
	set := Plugins(Static(nil))
	if _, ok := set[PluginKey].(*DefinitionPlugin); !ok {
		t.Fatalf("plugin set = %v", set)
	}
}

func TestDescribeHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	p := connect(t, Func(func() (*definition.Description, error) {
		<-block
		return nil, errors.New("unreachable")
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := Describe(ctx, p); err == nil {
		t.Fatal("Describe err = nil")
	}
	if d := time.Since(start); d > 2*time.Second {
		t.Errorf("Describe took %s after the deadline", d)
	}
}

func TestDescribeWithoutContextSupport(t *testing.T) {
	want := demo(t)
	got, err := Describe(context.Background(), Static(want))
	if err != nil || got != want {
		t.Errorf("Describe = %v, %v", got, err)
	}
}
