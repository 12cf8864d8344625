package calculator

import (
	"context"

	"github.com/charithe/calcengine/pkg/convert"
	"github.com/charithe/calcengine/pkg/session"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client implements the RPC client for the Calculator service
type Client struct {
	conn *grpc.ClientConn
}

func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Dial connects to the calculator at addr. Without transport credentials in opts the
// connection is unencrypted.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, fullMethod(method), in, out, grpc.CallContentSubtype(CodecName))
}

func (c *Client) CreateSession(ctx context.Context, profile, mode string) (*SessionResponse, error) {
	out := new(SessionResponse)
	if err := c.invoke(ctx, "CreateSession", &CreateSessionRequest{Profile: profile, Mode: mode}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CloseSession(ctx context.Context, id string) error {
	return c.invoke(ctx, "CloseSession", &SessionRequest{SessionID: id}, new(Empty))
}

func (c *Client) Press(ctx context.Context, id string, keys ...Key) (session.Snapshot, error) {
	out := new(SessionResponse)
	if err := c.invoke(ctx, "Press", &PressRequest{SessionID: id, Keys: keys}, out); err != nil {
		return session.Snapshot{}, err
	}
	return out.Snapshot, nil
}

// PressStream sends every key received from keys and returns the final state once the
// channel is closed.
func (c *Client) PressStream(ctx context.Context, id string, keys <-chan Key) (session.Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	desc := &Calculator_ServiceDesc.Streams[0]
	cs, err := c.conn.NewStream(ctx, desc, fullMethod(desc.StreamName), grpc.CallContentSubtype(CodecName))
	if err != nil {
		return session.Snapshot{}, err
	}
	stream := &grpc.GenericClientStream[PressStreamRequest, SessionResponse]{ClientStream: cs}

	for k := range keys {
		if err := stream.Send(&PressStreamRequest{SessionID: id, Key: k}); err != nil {
			return session.Snapshot{}, err
		}
	}

	resp, err := stream.CloseAndRecv()
	if err != nil {
		return session.Snapshot{}, err
	}
	return resp.Snapshot, nil
}

func (c *Client) SetMode(ctx context.Context, id, mode string) (session.Snapshot, error) {
	out := new(SessionResponse)
	if err := c.invoke(ctx, "SetMode", &SetModeRequest{SessionID: id, Mode: mode}, out); err != nil {
		return session.Snapshot{}, err
	}
	return out.Snapshot, nil
}

func (c *Client) SetRadix(ctx context.Context, id, radix string) (session.Snapshot, error) {
	out := new(SessionResponse)
	if err := c.invoke(ctx, "SetRadix", &SetRadixRequest{SessionID: id, Radix: radix}, out); err != nil {
		return session.Snapshot{}, err
	}
	return out.Snapshot, nil
}

func (c *Client) History(ctx context.Context, id string) ([]session.Entry, error) {
	out := new(HistoryResponse)
	if err := c.invoke(ctx, "History", &SessionRequest{SessionID: id}, out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

func (c *Client) ClearHistory(ctx context.Context, id string) error {
	return c.invoke(ctx, "ClearHistory", &SessionRequest{SessionID: id}, new(HistoryResponse))
}

func (c *Client) SelectHistory(ctx context.Context, id string, index int) (session.Snapshot, error) {
	out := new(SessionResponse)
	if err := c.invoke(ctx, "SelectHistory", &SelectHistoryRequest{SessionID: id, Index: index}, out); err != nil {
		return session.Snapshot{}, err
	}
	return out.Snapshot, nil
}

func (c *Client) Evaluate(ctx context.Context, expression, mode, radix string) (*EvaluateResponse, error) {
	out := new(EvaluateResponse)
	if err := c.invoke(ctx, "Evaluate", &EvaluateRequest{Expression: expression, Mode: mode, Radix: radix}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Convert(ctx context.Context, category, from, to, value string) (*ConvertResponse, error) {
	out := new(ConvertResponse)
	req := &ConvertRequest{Category: category, From: from, To: to, Value: value}
	if err := c.invoke(ctx, "Convert", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Preferences(ctx context.Context, req *PreferencesRequest) (*PreferencesResponse, error) {
	out := new(PreferencesResponse)
	if err := c.invoke(ctx, "Preferences", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetSelection is a shorthand for saving the units of one category.
func (c *Client) SetSelection(ctx context.Context, id string, cat convert.Category, sel convert.Selection) (*PreferencesResponse, error) {
	return c.Preferences(ctx, &PreferencesRequest{SessionID: id, Category: string(cat), Selection: &sel})
}

func (c *Client) Close() error {
	return c.conn.Close()
}
