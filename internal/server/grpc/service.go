package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "mailproof.v1.ProofService"

// Full method names.
const (
	MethodVerify        = "/" + ServiceName + "/Verify"
	MethodVerifyWithKey = "/" + ServiceName + "/VerifyWithKey"
	MethodGetPublicKey  = "/" + ServiceName + "/GetPublicKey"
	MethodIssueProof    = "/" + ServiceName + "/IssueProof"
)

// ProofServiceServer is implemented by GRPCServer. Requests and responses
// are structpb.Struct so template pipelines can call the service without
// generated stubs.
type ProofServiceServer interface {
	Verify(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyWithKey(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPublicKey(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IssueProof(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(ProofServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ProofServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ProofServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ProofServiceDesc describes the service for grpc.Server.RegisterService.
var ProofServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProofServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Verify", Handler: unaryHandler(MethodVerify, ProofServiceServer.Verify)},
		{MethodName: "VerifyWithKey", Handler: unaryHandler(MethodVerifyWithKey, ProofServiceServer.VerifyWithKey)},
		{MethodName: "GetPublicKey", Handler: unaryHandler(MethodGetPublicKey, ProofServiceServer.GetPublicKey)},
		{MethodName: "IssueProof", Handler: unaryHandler(MethodIssueProof, ProofServiceServer.IssueProof)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mailproof/v1/proof.proto",
}

// ProofServiceClient calls ProofService over an existing connection.
type ProofServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewProofServiceClient(cc grpc.ClientConnInterface) *ProofServiceClient {
	return &ProofServiceClient{cc: cc}
}

func (c *ProofServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ProofServiceClient) Verify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodVerify, in, opts...)
}

func (c *ProofServiceClient) VerifyWithKey(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodVerifyWithKey, in, opts...)
}

func (c *ProofServiceClient) GetPublicKey(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetPublicKey, in, opts...)
}

func (c *ProofServiceClient) IssueProof(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodIssueProof, in, opts...)
}
