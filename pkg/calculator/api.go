package calculator

import (
	"context"

	"github.com/charithe/calcengine/pkg/convert"
	"github.com/charithe/calcengine/pkg/session"
	"google.golang.org/grpc"
)

const serviceName = "calcengine.v1.Calculator"

// Key is a single input event. Either Key holds a keyboard key name, or Kind and Value
// describe a button press (digit, operator, function, scientific, text or radix).
type Key struct {
	Key   string `json:"key,omitempty"`
	Kind  string `json:"kind,omitempty"`
	Value string `json:"value,omitempty"`
}

type Empty struct{}

type CreateSessionRequest struct {
	Profile string `json:"profile,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type SessionResponse struct {
	SessionID string           `json:"session_id"`
	Snapshot  session.Snapshot `json:"snapshot"`
}

type PressRequest struct {
	SessionID string `json:"session_id"`
	Keys      []Key  `json:"keys"`
}

type PressStreamRequest struct {
	SessionID string `json:"session_id"`
	Key       Key    `json:"key"`
}

type SetModeRequest struct {
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
}

type SetRadixRequest struct {
	SessionID string `json:"session_id"`
	Radix     string `json:"radix"`
}

type SelectHistoryRequest struct {
	SessionID string `json:"session_id"`
	Index     int    `json:"index"`
}

type HistoryResponse struct {
	Entries []session.Entry `json:"entries"`
}

type EvaluateRequest struct {
	Expression string `json:"expression"`
	Mode       string `json:"mode,omitempty"`
	Radix      string `json:"radix,omitempty"`
}

type EvaluateResponse struct {
	Result    string `json:"result"`
	Formatted string `json:"formatted"`
}

type ConvertRequest struct {
	Category string `json:"category"`
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`
}

type ConvertResponse struct {
	Result      string  `json:"result"`
	Value       float64 `json:"value"`
	RatesSource string  `json:"rates_source,omitempty"`
}

// PreferencesRequest reads the converter preferences of a session's profile. When Selection
// is set it is saved for Category first; Swap exchanges the saved units; Theme, when set,
// replaces the saved theme.
type PreferencesRequest struct {
	SessionID string             `json:"session_id"`
	Category  string             `json:"category,omitempty"`
	Selection *convert.Selection `json:"selection,omitempty"`
	Swap      bool               `json:"swap,omitempty"`
	Theme     string             `json:"theme,omitempty"`
}

type PreferencesResponse struct {
	Selections map[string]convert.Selection `json:"selections"`
	Theme      string                       `json:"theme"`
}

// CalculatorServer is the server API of the calculator service.
type CalculatorServer interface {
	CreateSession(context.Context, *CreateSessionRequest) (*SessionResponse, error)
	CloseSession(context.Context, *SessionRequest) (*Empty, error)
	Press(context.Context, *PressRequest) (*SessionResponse, error)
	PressStream(grpc.ClientStreamingServer[PressStreamRequest, SessionResponse]) error
	SetMode(context.Context, *SetModeRequest) (*SessionResponse, error)
	SetRadix(context.Context, *SetRadixRequest) (*SessionResponse, error)
	History(context.Context, *SessionRequest) (*HistoryResponse, error)
	ClearHistory(context.Context, *SessionRequest) (*HistoryResponse, error)
	SelectHistory(context.Context, *SelectHistoryRequest) (*SessionResponse, error)
	Evaluate(context.Context, *EvaluateRequest) (*EvaluateResponse, error)
	Convert(context.Context, *ConvertRequest) (*ConvertResponse, error)
	Preferences(context.Context, *PreferencesRequest) (*PreferencesResponse, error)
}

func RegisterCalculatorServer(s grpc.ServiceRegistrar, srv CalculatorServer) {
	s.RegisterService(&Calculator_ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + serviceName + "/" + method
}

func unary[Req, Resp any](method string, call func(CalculatorServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CalculatorServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CalculatorServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var Calculator_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CalculatorServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateSession", CalculatorServer.CreateSession),
		unary("CloseSession", CalculatorServer.CloseSession),
		unary("Press", CalculatorServer.Press),
		unary("SetMode", CalculatorServer.SetMode),
		unary("SetRadix", CalculatorServer.SetRadix),
		unary("History", CalculatorServer.History),
		unary("ClearHistory", CalculatorServer.ClearHistory),
		unary("SelectHistory", CalculatorServer.SelectHistory),
		unary("Evaluate", CalculatorServer.Evaluate),
		unary("Convert", CalculatorServer.Convert),
		unary("Preferences", CalculatorServer.Preferences),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "PressStream",
			Handler: func(srv any, stream grpc.ServerStream) error {
				return srv.(CalculatorServer).PressStream(&grpc.GenericServerStream[PressStreamRequest, SessionResponse]{ServerStream: stream})
			},
			ClientStreams: true,
		},
	},
	Metadata: "calcengine/v1/calculator",
}
