package server

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vctt94/pokertourney/pkg/poker"
	"github.com/vctt94/pokertourney/pkg/tournament"
)

// Client talks to a remote tournament service.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, req, resp interface{}) error {
	in, err := encode(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return decode(out, resp)
}

// Reset starts a tournament. An empty sessionID creates a new session.
func (c *Client) Reset(ctx context.Context, sessionID string, cfg tournament.Config) (ResetReply, error) {
	var out ResetReply
	err := c.invoke(ctx, "Reset", ResetRequest{SessionID: sessionID, Config: &cfg}, &out)
	return out, err
}

// Step plays one action for the awaited player.
func (c *Client) Step(ctx context.Context, sessionID string, a poker.Action) (tournament.StepResult, error) {
	var out tournament.StepResult
	err := c.invoke(ctx, "Step", StepRequest{SessionID: sessionID, Action: a.String()}, &out)
	return out, err
}

// LegalActions returns the awaited player and its mask.
func (c *Client) LegalActions(ctx context.Context, sessionID string) (LegalActionsReply, error) {
	var out LegalActionsReply
	err := c.invoke(ctx, "LegalActions", SessionRequest{SessionID: sessionID}, &out)
	return out, err
}

// Stats returns a snapshot of the session.
func (c *Client) Stats(ctx context.Context, sessionID string) (tournament.Stats, error) {
	var out tournament.Stats
	err := c.invoke(ctx, "Stats", SessionRequest{SessionID: sessionID}, &out)
	return out, err
}

// Standings returns the results table of the session.
func (c *Client) Standings(ctx context.Context, sessionID string) ([]tournament.Standing, error) {
	var out StandingsReply
	err := c.invoke(ctx, "Standings", SessionRequest{SessionID: sessionID}, &out)
	return out.Standings, err
}

// Close ends the session on the server.
func (c *Client) Close(ctx context.Context, sessionID string) error {
	return c.invoke(ctx, "Close", SessionRequest{SessionID: sessionID}, nil)
}

// Results lists stored tournaments, newest first.
func (c *Client) Results(ctx context.Context, limit int) ([]Result, error) {
	var out ResultsReply
	err := c.invoke(ctx, "Results", ResultsRequest{Limit: limit}, &out)
	return out.Results, err
}

// Result fetches one stored tournament.
func (c *Client) Result(ctx context.Context, id string) (Result, error) {
	var out ResultsReply
	if err := c.invoke(ctx, "Results", ResultsRequest{ID: id}, &out); err != nil {
		return Result{}, err
	}
	if len(out.Results) == 0 {
		return Result{}, fmt.Errorf("tournament %s not found", id)
	}
	return out.Results[0], nil
}

// EventStream receives the events of a watched session.
type EventStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next event. It returns io.EOF once the server ends
// the stream.
func (s *EventStream) Recv() (*Event, error) {
	out := new(structpb.Struct)
	if err := s.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	ev := new(Event)
	if err := decode(out, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Watch subscribes to a session. Cancel ctx to stop watching.
func (c *Client) Watch(ctx context.Context, sessionID string) (*EventStream, error) {
	in, err := encode(SessionRequest{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/Watch")
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: stream}, nil
}
