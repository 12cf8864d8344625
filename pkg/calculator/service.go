package calculator

import (
	"context"
	"io"
	"sync"

	"github.com/charithe/calcengine/pkg/convert"
	"github.com/charithe/calcengine/pkg/expr"
	"github.com/charithe/calcengine/pkg/radix"
	"github.com/charithe/calcengine/pkg/session"
	"github.com/charithe/calcengine/pkg/storage"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/status"
)

const DefaultProfile = "default"

var tracer = otel.Tracer("calculator")

type sessionEntry struct {
	mu      sync.Mutex
	profile string
	store   storage.Store
	session *session.Session
}

// Service implements the RPC interface of the calculator
type Service struct {
	*health.Server
	backend   storage.Backend
	converter *convert.Converter

	mu        sync.RWMutex
	sessions  map[string]*sessionEntry
	histories map[string]*session.History
}

// NewService creates a service persisting profiles in backend. A nil converter uses the
// built-in exchange rates.
func NewService(backend storage.Backend, converter *convert.Converter) *Service {
	if backend == nil {
		backend = storage.NewMemory()
	}
	if converter == nil {
		converter = convert.NewConverter()
	}
	return &Service{
		Server:    health.NewServer(),
		backend:   backend,
		converter: converter,
		sessions:  make(map[string]*sessionEntry),
		histories: make(map[string]*session.History),
	}
}

func (s *Service) Converter() *convert.Converter {
	return s.converter
}

// withSession runs fn while holding the session's lock.
func (s *Service) withSession(ctx context.Context, id string, fn func(*sessionEntry) error) error {
	if err := ctx.Err(); err != nil {
		return status.FromContextError(err).Err()
	}

	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return status.Errorf(codes.NotFound, "unknown session %q", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e)
}

func startSpan(ctx context.Context, method, id string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "calculator."+method, trace.WithAttributes(attribute.String("session.id", id)))
}

func respond(id string, e *sessionEntry) *SessionResponse {
	return &SessionResponse{SessionID: id, Snapshot: e.session.Snapshot()}
}

func (s *Service) CreateSession(ctx context.Context, req *CreateSessionRequest) (*SessionResponse, error) {
	id := uuid.New().String()
	ctx, span := startSpan(ctx, "CreateSession", id)
	defer span.End()

	mode, err := expr.ParseMode(req.Mode)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	profile := req.Profile
	if profile == "" {
		profile = DefaultProfile
	}
	store := s.backend.Profile(profile)

	sess := session.New(s.history(ctx, profile, store), newSessionObserver(id))
	sess.SetMode(mode)

	e := &sessionEntry{profile: profile, store: store, session: sess}
	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()

	record(ctx, keyMode, mode.String(), mSessions)
	zap.S().Debugw("Session created", "session_id", id, "profile", profile)
	return respond(id, e), nil
}

// history returns the ledger shared by every session of profile, loading it on first use.
func (s *Service) history(ctx context.Context, profile string, store storage.Store) *session.History {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.histories[profile]
	if !ok {
		h = session.LoadHistory(ctx, store)
		s.histories[profile] = h
	}
	return h
}

func (s *Service) CloseSession(ctx context.Context, req *SessionRequest) (*Empty, error) {
	s.mu.Lock()
	_, ok := s.sessions[req.SessionID]
	delete(s.sessions, req.SessionID)
	s.mu.Unlock()

	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown session %q", req.SessionID)
	}
	return &Empty{}, nil
}

func decodeKey(k Key) (session.Command, error) {
	if k.Kind != "" {
		return session.ParseCommand(k.Kind, k.Value)
	}
	return session.DecodeKey(k.Key)
}

func (s *Service) press(ctx context.Context, e *sessionEntry, k Key) error {
	cmd, err := decodeKey(k)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	record(ctx, keyKind, kindOf(cmd), mKeystrokes)
	e.session.Handle(cmd)
	return nil
}

func (s *Service) Press(ctx context.Context, req *PressRequest) (*SessionResponse, error) {
	ctx, span := startSpan(ctx, "Press", req.SessionID)
	defer span.End()
	span.SetAttributes(attribute.Int("keys", len(req.Keys)))

	var resp *SessionResponse
	err := s.withSession(ctx, req.SessionID, func(e *sessionEntry) error {
		for _, k := range req.Keys {
			if err := s.press(ctx, e, k); err != nil {
				return err
			}
		}
		resp = respond(req.SessionID, e)
		return nil
	})
	return resp, err
}

func (s *Service) PressStream(stream grpc.ClientStreamingServer[PressStreamRequest, SessionResponse]) error {
	ctx := stream.Context()
	var id string
	var count int

	for {
		req, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				// end of the client-side stream so report the final state
				if id == "" {
					return status.Error(codes.InvalidArgument, "no keys received")
				}

				var resp *SessionResponse
				if err := s.withSession(ctx, id, func(e *sessionEntry) error {
					resp = respond(id, e)
					return nil
				}); err != nil {
					return err
				}

				if err := stream.SendAndClose(resp); err != nil {
					zap.S().Errorw("Failed to send response", "error", err)
					return err
				}
				zap.S().Debugw("Key stream finished", "session_id", id, "keys", count)
				return nil
			}

			zap.S().Warnw("Failed to receive request from stream", "error", err)
			return err
		}

		if id == "" {
			id = req.SessionID
		} else if req.SessionID != "" && req.SessionID != id {
			return status.Errorf(codes.InvalidArgument, "stream bound to session %q", id)
		}

		if err := s.withSession(ctx, id, func(e *sessionEntry) error {
			return s.press(ctx, e, req.Key)
		}); err != nil {
			return err
		}
		count++
	}
}

func (s *Service) SetMode(ctx context.Context, req *SetModeRequest) (*SessionResponse, error) {
	ctx, span := startSpan(ctx, "SetMode", req.SessionID)
	defer span.End()

	mode, err := expr.ParseMode(req.Mode)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var resp *SessionResponse
	err = s.withSession(ctx, req.SessionID, func(e *sessionEntry) error {
		e.session.SetMode(mode)
		resp = respond(req.SessionID, e)
		return nil
	})
	return resp, err
}

func (s *Service) SetRadix(ctx context.Context, req *SetRadixRequest) (*SessionResponse, error) {
	ctx, span := startSpan(ctx, "SetRadix", req.SessionID)
	defer span.End()

	r, err := radix.Parse(req.Radix)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var resp *SessionResponse
	err = s.withSession(ctx, req.SessionID, func(e *sessionEntry) error {
		if err := e.session.SetRadix(r); err != nil {
			return status.Error(codes.FailedPrecondition, err.Error())
		}
		resp = respond(req.SessionID, e)
		return nil
	})
	return resp, err
}

func (s *Service) History(ctx context.Context, req *SessionRequest) (*HistoryResponse, error) {
	var resp *HistoryResponse
	err := s.withSession(ctx, req.SessionID, func(e *sessionEntry) error {
		resp = &HistoryResponse{Entries: e.session.History().Entries()}
		return nil
	})
	return resp, err
}

func (s *Service) ClearHistory(ctx context.Context, req *SessionRequest) (*HistoryResponse, error) {
	ctx, span := startSpan(ctx, "ClearHistory", req.SessionID)
	defer span.End()

	var resp *HistoryResponse
	err := s.withSession(ctx, req.SessionID, func(e *sessionEntry) error {
		e.session.ClearHistory()
		resp = &HistoryResponse{Entries: e.session.History().Entries()}
		return nil
	})
	return resp, err
}

func (s *Service) SelectHistory(ctx context.Context, req *SelectHistoryRequest) (*SessionResponse, error) {
	ctx, span := startSpan(ctx, "SelectHistory", req.SessionID)
	defer span.End()

	var resp *SessionResponse
	err := s.withSession(ctx, req.SessionID, func(e *sessionEntry) error {
		if err := e.session.SelectHistory(req.Index); err != nil {
			return status.Error(codes.OutOfRange, err.Error())
		}
		resp = respond(req.SessionID, e)
		return nil
	})
	return resp, err
}

// Evaluate evaluates an expression without touching any session.
func (s *Service) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	_, span := tracer.Start(ctx, "calculator.Evaluate", trace.WithAttributes(attribute.String("mode", req.Mode)))
	defer span.End()

	resp, err := evaluate(req)
	if err != nil {
		span.RecordError(err)
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return resp, nil
}

func evaluate(req *EvaluateRequest) (*EvaluateResponse, error) {
	mode, err := expr.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	if !mode.Evaluates() {
		return nil, errors.Errorf("mode %s does not evaluate expressions", mode)
	}
	r, err := radix.Parse(req.Radix)
	if err != nil {
		return nil, err
	}

	result, err := expr.Evaluate(req.Expression, mode, r)
	if err != nil {
		return nil, err
	}

	formatted := result
	if mode != expr.ModeProgrammer {
		formatted = expr.FormatResult(result)
	}
	return &EvaluateResponse{Result: result, Formatted: formatted}, nil
}

func (s *Service) Convert(ctx context.Context, req *ConvertRequest) (*ConvertResponse, error) {
	ctx, span := tracer.Start(ctx, "calculator.Convert", trace.WithAttributes(attribute.String("category", req.Category)))
	defer span.End()

	resp, err := s.convert(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return resp, nil
}

func (s *Service) convert(ctx context.Context, req *ConvertRequest) (*ConvertResponse, error) {
	cat, err := convert.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	v, err := s.converter.Convert(cat, req.From, req.To, convert.ParseInput(req.Value))
	if err != nil {
		return nil, err
	}
	record(ctx, keyCategory, string(cat), mConversions)

	resp := &ConvertResponse{Result: convert.FormatValue(v, cat.Decimals()), Value: v}
	if cat == convert.Currency {
		resp.RatesSource = s.converter.Rates().Source
	}
	return resp, nil
}

func (s *Service) Preferences(ctx context.Context, req *PreferencesRequest) (*PreferencesResponse, error) {
	ctx, span := startSpan(ctx, "Preferences", req.SessionID)
	defer span.End()

	var resp *PreferencesResponse
	err := s.withSession(ctx, req.SessionID, func(e *sessionEntry) error {
		var err error
		resp, err = updatePreferences(ctx, convert.NewPreferences(e.store), req)
		return err
	})
	return resp, err
}

func updatePreferences(ctx context.Context, prefs *convert.Preferences, req *PreferencesRequest) (*PreferencesResponse, error) {
	if req.Selection != nil || req.Swap {
		cat, err := convert.ParseCategory(req.Category)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		if req.Selection != nil {
			if err := prefs.SetSelection(ctx, cat, *req.Selection); err != nil {
				return nil, status.Error(codes.Internal, err.Error())
			}
		}
		if req.Swap {
			if _, err := prefs.Swap(ctx, cat); err != nil {
				return nil, status.Error(codes.Internal, err.Error())
			}
		}
	}

	if req.Theme != "" {
		if err := prefs.SetTheme(ctx, req.Theme); err != nil {
			if errors.Is(err, convert.ErrUnknownTheme) {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			return nil, status.Error(codes.Internal, err.Error())
		}
	}

	resp := &PreferencesResponse{Selections: make(map[string]convert.Selection, len(convert.Categories))}
	for _, cat := range convert.Categories {
		sel, err := prefs.Selection(ctx, cat)
		if err != nil {
			zap.S().Warnw("Failed to read selection", "category", cat, "error", err)
		}
		resp.Selections[string(cat)] = sel
	}

	theme, err := prefs.Theme(ctx)
	if err != nil {
		zap.S().Warnw("Failed to read theme", "error", err)
	}
	resp.Theme = theme
	return resp, nil
}
