// Package control implements the attention.v1.ControlService gRPC API.
//
// The service is described by a hand-written grpc.ServiceDesc whose
// messages are protobuf well-known types: requests and responses are
// structpb.Struct values with snake_case keys, and calls without a payload
// use emptypb.Empty. The package holds both the server handler and a typed
// client.
package control
