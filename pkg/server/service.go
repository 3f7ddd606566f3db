package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vctt94/pokertourney/pkg/poker"
	"github.com/vctt94/pokertourney/pkg/tournament"
)

// ServiceName is the full gRPC name of the tournament service. Every
// message on the wire is a google.protobuf.Struct carrying the JSON form
// of the request and reply types below.
const ServiceName = "mtt.TournamentService"

// SessionRequest names a session.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// ResetRequest starts or restarts a session. Config keys that are left
// out keep their tournament.DefaultConfig values.
type ResetRequest struct {
	SessionID string             `json:"session_id,omitempty"`
	Config    *tournament.Config `json:"config,omitempty"`
}

// ResetReply is the first observation of a session.
type ResetReply struct {
	SessionID   string                 `json:"session_id"`
	Observation tournament.Observation `json:"observation"`
	Info        tournament.Info        `json:"info"`
}

// StepRequest carries one action by name: fold, call or raise.
type StepRequest struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
}

// LegalActionsReply describes the decision point of a session.
type LegalActionsReply struct {
	PlayerID int              `json:"player_id"`
	Mask     poker.ActionMask `json:"mask"`
	Legal    []string         `json:"legal"`
}

// StandingsReply lists the results table.
type StandingsReply struct {
	Standings []tournament.Standing `json:"standings"`
}

// ResultsRequest selects stored tournaments. A non-empty ID returns only
// that tournament, with eliminations.
type ResultsRequest struct {
	ID    string `json:"id,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// ResultsReply lists stored tournaments.
type ResultsReply struct {
	Results []Result `json:"results"`
}

// TournamentServiceServer is the server API for the tournament service.
type TournamentServiceServer interface {
	Reset(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Step(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LegalActions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Standings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Close(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Results(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Watch(*structpb.Struct, grpc.ServerStream) error
}

type unaryFn func(TournamentServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, fn unaryFn) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(TournamentServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return fn(srv.(TournamentServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(TournamentServiceServer).Watch(in, stream)
}

// ServiceDesc describes the tournament service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TournamentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Reset", Handler: unaryHandler("Reset", TournamentServiceServer.Reset)},
		{MethodName: "Step", Handler: unaryHandler("Step", TournamentServiceServer.Step)},
		{MethodName: "LegalActions", Handler: unaryHandler("LegalActions", TournamentServiceServer.LegalActions)},
		{MethodName: "Stats", Handler: unaryHandler("Stats", TournamentServiceServer.Stats)},
		{MethodName: "Standings", Handler: unaryHandler("Standings", TournamentServiceServer.Standings)},
		{MethodName: "Close", Handler: unaryHandler("Close", TournamentServiceServer.Close)},
		{MethodName: "Results", Handler: unaryHandler("Results", TournamentServiceServer.Results)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "mtt/tournament",
}

// RegisterTournamentService exposes s on gs.
func RegisterTournamentService(gs *grpc.Server, s *Server) {
	gs.RegisterService(&ServiceDesc, &service{s: s})
}

// service adapts Server to the wire format.
type service struct {
	s *Server
}

func (svc *service) Reset(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	cfg := tournament.DefaultConfig()
	req := ResetRequest{Config: &cfg}
	if err := decode(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad reset request: %v", err)
	}
	id, obs, info, err := svc.s.Reset(req.SessionID, cfg)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(ResetReply{SessionID: id, Observation: obs, Info: info})
}

func (svc *service) Step(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req StepRequest
	if err := decode(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad step request: %v", err)
	}
	a, err := poker.ParseAction(req.Action)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := svc.s.Step(req.SessionID, a)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(res)
}

func (svc *service) LegalActions(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SessionRequest
	if err := decode(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad request: %v", err)
	}
	pid, mask, err := svc.s.LegalActions(req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	out := LegalActionsReply{PlayerID: pid, Mask: mask, Legal: []string{}}
	for _, a := range mask.Legal() {
		out.Legal = append(out.Legal, a.String())
	}
	return reply(out)
}

func (svc *service) Stats(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SessionRequest
	if err := decode(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad request: %v", err)
	}
	st, err := svc.s.Stats(req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(st)
}

func (svc *service) Standings(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SessionRequest
	if err := decode(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad request: %v", err)
	}
	st, err := svc.s.Standings(req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(StandingsReply{Standings: st})
}

func (svc *service) Close(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SessionRequest
	if err := decode(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad request: %v", err)
	}
	if err := svc.s.CloseSession(req.SessionID); err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{}, nil
}

func (svc *service) Results(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ResultsRequest
	if err := decode(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad request: %v", err)
	}
	if req.ID != "" {
		res, err := svc.s.Result(req.ID)
		if err != nil {
			return nil, toStatus(err)
		}
		return reply(ResultsReply{Results: []Result{res}})
	}
	list, err := svc.s.Results(req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(ResultsReply{Results: list})
}

func (svc *service) Watch(in *structpb.Struct, stream grpc.ServerStream) error {
	var req SessionRequest
	if err := decode(in, &req); err != nil {
		return status.Errorf(codes.InvalidArgument, "bad request: %v", err)
	}
	events, cancel, err := svc.s.Watch(req.SessionID)
	if err != nil {
		return toStatus(err)
	}
	defer cancel()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			msg, err := encode(ev)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

func reply(v interface{}) (*structpb.Struct, error) {
	s, err := encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}
