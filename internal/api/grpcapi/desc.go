package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "configurator.v1.ConfiguratorService"

const (
	validateMethod = "/" + ServiceName + "/Validate"
	priceMethod    = "/" + ServiceName + "/Price"
)

// ConfiguratorServer is the server API of ConfiguratorService. Requests and
// responses are google.protobuf.Struct documents.
type ConfiguratorServer interface {
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Price(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterConfiguratorServer(s grpc.ServiceRegistrar, srv ConfiguratorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func validateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConfiguratorServer).Validate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: validateMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConfiguratorServer).Validate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func priceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConfiguratorServer).Price(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: priceMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConfiguratorServer).Price(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the grpc.ServiceDesc for ConfiguratorService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConfiguratorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Validate",
			Handler:    validateHandler,
		},
		{
			MethodName: "Price",
			Handler:    priceHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "configurator/v1/configurator.proto",
}

// Client calls ConfiguratorService over conn.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Validate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, validateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Price(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, priceMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
