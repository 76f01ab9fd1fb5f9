package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "vaultdrop.v1.VaultDrop"

const (
	MethodRegister        = "Register"
	MethodLogin           = "Login"
	MethodRefreshToken    = "RefreshToken"
	MethodAuthorizeUpload = "AuthorizeUpload"
	MethodCreateTransfer  = "CreateTransfer"
	MethodListTransfers   = "ListTransfers"
	MethodGetTransfer     = "GetTransfer"
	MethodResolveDownload = "ResolveDownload"
	MethodDeleteTransfer  = "DeleteTransfer"
)

// FullMethod returns the gRPC path of a method, e.g. "/vaultdrop.v1.VaultDrop/Login".
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// VaultDropServer is implemented by the gRPC transport.
type VaultDropServer interface {
	Register(context.Context, *RegisterRequest) (*User, error)
	Login(context.Context, *LoginRequest) (*TokenPair, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*TokenPair, error)
	AuthorizeUpload(context.Context, *AuthorizeUploadRequest) (*AuthorizeUploadResponse, error)
	CreateTransfer(context.Context, *CreateTransferRequest) (*CreateTransferResponse, error)
	ListTransfers(context.Context, *ListTransfersRequest) (*ListTransfersResponse, error)
	GetTransfer(context.Context, *GetTransferRequest) (*Envelope, error)
	ResolveDownload(context.Context, *ResolveDownloadRequest) (*ResolvedFile, error)
	DeleteTransfer(context.Context, *DeleteTransferRequest) (*Empty, error)
}

func unary[Req, Resp any](name string, call func(VaultDropServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(VaultDropServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(VaultDropServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the VaultDrop service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaultDropServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodRegister, VaultDropServer.Register),
		unary(MethodLogin, VaultDropServer.Login),
		unary(MethodRefreshToken, VaultDropServer.RefreshToken),
		unary(MethodAuthorizeUpload, VaultDropServer.AuthorizeUpload),
		unary(MethodCreateTransfer, VaultDropServer.CreateTransfer),
		unary(MethodListTransfers, VaultDropServer.ListTransfers),
		unary(MethodGetTransfer, VaultDropServer.GetTransfer),
		unary(MethodResolveDownload, VaultDropServer.ResolveDownload),
		unary(MethodDeleteTransfer, VaultDropServer.DeleteTransfer),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vaultdrop/v1/vaultdrop.json",
}

func RegisterVaultDropServer(s grpc.ServiceRegistrar, srv VaultDropServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// VaultDropClient calls the service over any connection, always with the
// JSON codec.
type VaultDropClient struct {
	cc grpc.ClientConnInterface
}

func NewVaultDropClient(cc grpc.ClientConnInterface) *VaultDropClient {
	return &VaultDropClient{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *VaultDropClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*User, error) {
	return invoke[RegisterRequest, User](ctx, c.cc, MethodRegister, in, opts)
}

func (c *VaultDropClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*TokenPair, error) {
	return invoke[LoginRequest, TokenPair](ctx, c.cc, MethodLogin, in, opts)
}

func (c *VaultDropClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*TokenPair, error) {
	return invoke[RefreshTokenRequest, TokenPair](ctx, c.cc, MethodRefreshToken, in, opts)
}

func (c *VaultDropClient) AuthorizeUpload(ctx context.Context, in *AuthorizeUploadRequest, opts ...grpc.CallOption) (*AuthorizeUploadResponse, error) {
	return invoke[AuthorizeUploadRequest, AuthorizeUploadResponse](ctx, c.cc, MethodAuthorizeUpload, in, opts)
}

func (c *VaultDropClient) CreateTransfer(ctx context.Context, in *CreateTransferRequest, opts ...grpc.CallOption) (*CreateTransferResponse, error) {
	return invoke[CreateTransferRequest, CreateTransferResponse](ctx, c.cc, MethodCreateTransfer, in, opts)
}

func (c *VaultDropClient) ListTransfers(ctx context.Context, in *ListTransfersRequest, opts ...grpc.CallOption) (*ListTransfersResponse, error) {
	return invoke[ListTransfersRequest, ListTransfersResponse](ctx, c.cc, MethodListTransfers, in, opts)
}

func (c *VaultDropClient) GetTransfer(ctx context.Context, in *GetTransferRequest, opts ...grpc.CallOption) (*Envelope, error) {
	return invoke[GetTransferRequest, Envelope](ctx, c.cc, MethodGetTransfer, in, opts)
}

func (c *VaultDropClient) ResolveDownload(ctx context.Context, in *ResolveDownloadRequest, opts ...grpc.CallOption) (*ResolvedFile, error) {
	return invoke[ResolveDownloadRequest, ResolvedFile](ctx, c.cc, MethodResolveDownload, in, opts)
}

func (c *VaultDropClient) DeleteTransfer(ctx context.Context, in *DeleteTransferRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[DeleteTransferRequest, Empty](ctx, c.cc, MethodDeleteTransfer, in, opts)
}
