package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vctt94/pokertourney/pkg/tournament"
)

// encode converts a JSON-tagged value to a protobuf Struct.
func encode(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("message is not an object: %w", err)
	}
	return structpb.NewStruct(m)
}

// decode fills v from a protobuf Struct. Keys absent from s leave the
// corresponding fields of v untouched.
func decode(s *structpb.Struct, v interface{}) error {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// toStatus maps domain errors onto gRPC status codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var (
		cfgErr     *tournament.ConfigurationError
		illegal    *tournament.IllegalActionError
		terminated *tournament.EpisodeTerminatedError
	)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &cfgErr):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &illegal), errors.As(err, &terminated), errors.Is(err, tournament.ErrNotStarted):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
