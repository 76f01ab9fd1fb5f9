package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/vaultdrop/internal/api"
	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/cryptox"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// rpc is the subset of the generated-style client used here.
type rpc interface {
	Register(ctx context.Context, in *api.RegisterRequest, opts ...grpc.CallOption) (*api.User, error)
	Login(ctx context.Context, in *api.LoginRequest, opts ...grpc.CallOption) (*api.TokenPair, error)
	RefreshToken(ctx context.Context, in *api.RefreshTokenRequest, opts ...grpc.CallOption) (*api.TokenPair, error)
	AuthorizeUpload(ctx context.Context, in *api.AuthorizeUploadRequest, opts ...grpc.CallOption) (*api.AuthorizeUploadResponse, error)
	CreateTransfer(ctx context.Context, in *api.CreateTransferRequest, opts ...grpc.CallOption) (*api.CreateTransferResponse, error)
	ListTransfers(ctx context.Context, in *api.ListTransfersRequest, opts ...grpc.CallOption) (*api.ListTransfersResponse, error)
	GetTransfer(ctx context.Context, in *api.GetTransferRequest, opts ...grpc.CallOption) (*api.Envelope, error)
	ResolveDownload(ctx context.Context, in *api.ResolveDownloadRequest, opts ...grpc.CallOption) (*api.ResolvedFile, error)
	DeleteTransfer(ctx context.Context, in *api.DeleteTransferRequest, opts ...grpc.CallOption) (*api.Empty, error)
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      rpc

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	onTokens     func(access, refresh string)
}

// NewGRPCClient prepares a connection to endpointURL. The connection is
// established lazily on the first call. Extra dial options are appended
// after the defaults.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = api.NewVaultDropClient(conn)
	return c, nil
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := c.Tokens()

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" || method == api.FullMethod(api.MethodRefreshToken) {
		return err
	}

	pair, rerr := c.client.RefreshToken(ctx, &api.RefreshTokenRequest{RefreshToken: refresh})
	if rerr != nil {
		return rerr
	}
	c.SetTokens(pair.AccessToken, pair.RefreshToken)

	return invoker(withAccessToken(ctx, pair.AccessToken), method, req, reply, cc, opts...)
}

// SetTokens installs a session and reports it to the OnTokens hook.
func (c *GRPCClient) SetTokens(access, refresh string) {
	c.mu.Lock()
	c.accessToken, c.refreshToken = access, refresh
	hook := c.onTokens
	c.mu.Unlock()

	if hook != nil {
		hook(access, refresh)
	}
}

// Tokens returns the current access and refresh tokens.
func (c *GRPCClient) Tokens() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

// OnTokens registers fn to be called whenever the session tokens change.
func (c *GRPCClient) OnTokens(fn func(access, refresh string)) {
	c.mu.Lock()
	c.onTokens = fn
	c.mu.Unlock()
}

func (c *GRPCClient) Register(ctx context.Context, name, email, password string) (*api.User, error) {
	u, err := c.client.Register(ctx, &api.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// Login opens a session; the tokens are kept on the client.
func (c *GRPCClient) Login(ctx context.Context, email, password string) error {
	pair, err := c.client.Login(ctx, &api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return mapError(err)
	}
	c.SetTokens(pair.AccessToken, pair.RefreshToken)
	return nil
}

func (c *GRPCClient) AuthorizeUpload(ctx context.Context, files []api.UploadFile) ([]api.UploadSlot, error) {
	resp, err := c.client.AuthorizeUpload(ctx, &api.AuthorizeUploadRequest{Files: files})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Slots, nil
}

func (c *GRPCClient) CreateTransfer(ctx context.Context, req *api.CreateTransferRequest) (*api.CreateTransferResponse, error) {
	resp, err := c.client.CreateTransfer(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	return resp, nil
}

func (c *GRPCClient) ListTransfers(ctx context.Context) ([]api.TransferSummary, error) {
	resp, err := c.client.ListTransfers(ctx, &api.ListTransfersRequest{})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Transfers, nil
}

func (c *GRPCClient) GetTransfer(ctx context.Context, transferID, password string) (*api.Envelope, error) {
	env, err := c.client.GetTransfer(ctx, &api.GetTransferRequest{TransferID: transferID, Password: password})
	if err != nil {
		return nil, mapError(err)
	}
	return env, nil
}

func (c *GRPCClient) ResolveDownload(ctx context.Context, req *api.ResolveDownloadRequest) (*api.ResolvedFile, error) {
	f, err := c.client.ResolveDownload(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	return f, nil
}

func (c *GRPCClient) DeleteTransfer(ctx context.Context, transferID string) error {
	if _, err := c.client.DeleteTransfer(ctx, &api.DeleteTransferRequest{TransferID: transferID}); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *GRPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// mapError turns a gRPC status back into the shared sentinel errors. The
// server's message is kept for display.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}

	msg := st.Message()
	wrap := func(sentinel error) error {
		if msg == "" || msg == sentinel.Error() {
			return sentinel
		}
		return fmt.Errorf("%w: %s", sentinel, msg)
	}

	switch st.Code() {
	case codes.NotFound:
		return wrap(common.ErrorNotFound)
	case codes.FailedPrecondition:
		if strings.HasPrefix(msg, "download limit") {
			return common.ErrDownloadLimit
		}
		return wrap(common.ErrExpired)
	case codes.PermissionDenied:
		switch msg {
		case common.ErrPasswordRequired.Error():
			return common.ErrPasswordRequired
		case common.ErrUserBlocked.Error():
			return common.ErrUserBlocked
		}
		return wrap(common.ErrorForbidden)
	case codes.ResourceExhausted:
		if msg == common.ErrQuotaExceeded.Error() {
			return common.ErrQuotaExceeded
		}
		return wrap(common.ErrTooManyAttempts)
	case codes.Unauthenticated:
		if msg == common.ErrTokenExpired.Error() || msg == common.ErrRefreshTokenExpired.Error() {
			return common.ErrTokenExpired
		}
		return wrap(common.ErrorUnauthorized)
	case codes.InvalidArgument:
		if msg == cryptox.ErrKeyFormat.Error() {
			return cryptox.ErrKeyFormat
		}
		return wrap(common.ErrValidation)
	case codes.AlreadyExists:
		return wrap(common.ErrAlreadyExists)
	case codes.Unavailable, codes.DeadlineExceeded:
		return wrap(ErrUnavailable)
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
