package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goplugin "github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/prysmsh/tpsdk/pkg/definition"
)

// The definition travels as its JSON document inside a BytesValue, so the
// service needs only well-known protobuf types.
const (
	serviceName    = "tpsdk.provider.v1.DefinitionService"
	describeMethod = "/" + serviceName + "/Describe"
)

// DefinitionServer is the provider side of the gRPC service.
type DefinitionServer interface {
	Describe(ctx context.Context, req *emptypb.Empty) (*wrapperspb.BytesValue, error)
}

var definitionServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DefinitionServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Describe",
		Handler:    describeHandler,
	}},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tpsdk/provider/v1/definition.proto",
}

func describeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	s := srv.(DefinitionServer)
	if interceptor == nil {
		return s.Describe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: describeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.Describe(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// DefinitionPlugin implements goplugin.GRPCPlugin for the definition service.
type DefinitionPlugin struct {
	goplugin.NetRPCUnsupportedPlugin
	// Impl is only set on the provider side.
	Impl Provider
}

// GRPCServer registers the definition service (provider side).
func (p *DefinitionPlugin) GRPCServer(_ *goplugin.GRPCBroker, s *grpc.Server) error {
	s.RegisterService(&definitionServiceDesc, &GRPCServer{Impl: p.Impl})
	return nil
}

// GRPCClient returns a Provider backed by the connection (host side).
func (p *DefinitionPlugin) GRPCClient(_ context.Context, _ *goplugin.GRPCBroker, c *grpc.ClientConn) (interface{}, error) {
	return NewGRPCClient(c), nil
}

// GRPCServer exposes a Provider over gRPC.
type GRPCServer struct {
	Impl Provider
}

// Describe encodes the provider's definition.
func (s *GRPCServer) Describe(_ context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	if s.Impl == nil {
		return nil, errors.New("no provider registered")
	}
	d, err := s.Impl.Description()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode description: %w", err)
	}
	return wrapperspb.Bytes(b), nil
}

// GRPCClient is the host-side Provider.
type GRPCClient struct {
	conn grpc.ClientConnInterface
}

// NewGRPCClient wraps an established connection.
func NewGRPCClient(c grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{conn: c}
}

// Description fetches and decodes the provider's definition.
func (c *GRPCClient) Description() (*definition.Description, error) {
	return c.DescriptionContext(context.Background())
}

// DescriptionContext is Description bounded by ctx.
func (c *GRPCClient) DescriptionContext(ctx context.Context) (*definition.Description, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, describeMethod, &emptypb.Empty{}, out); err != nil {
		return nil, fmt.Errorf("provider description: %s", status.Convert(err).Message())
	}
	return definition.Parse(out.GetValue())
}
