package streamapi

import (
	"context"
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/xiaonanln/streamgraph/layout"
	"github.com/xiaonanln/streamgraph/timeline"
	"github.com/xiaonanln/streamgraph/util/protohelper"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Entry is one decoded timeline observation.
type Entry struct {
	Timestamp int64
	Value     jsoniter.RawMessage
}

// UnmarshalJSON decodes the [timestamp, value] pair form.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var pair []jsoniter.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("timeline entry has %d elements, want 2", len(pair))
	}
	var ts float64
	if err := json.Unmarshal(pair[0], &ts); err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}
	e.Timestamp = int64(ts)
	e.Value = pair[1]
	return nil
}

// MarshalJSON encodes the entry back into its [timestamp, value] form.
func (e Entry) MarshalJSON() ([]byte, error) {
	value := e.Value
	if len(value) == 0 {
		value = jsoniter.RawMessage("null")
	}
	return json.Marshal([]any{e.Timestamp, value})
}

// State is the client-side view of a render state.
type State struct {
	Version            uint64                `json:"version"`
	PublishedAt        int64                 `json:"publishedAt"`
	Graph              layout.Graph          `json:"graph"`
	DisconnectDisabled bool                  `json:"disconnectDisabled"`
	Timelines          map[string][]Entry    `json:"timelines"`
	Range              timeline.Range        `json:"range"`
	Current            timeline.CurrentRange `json:"current"`
}

// StreamNames returns the timeline names in graph order, followed by any
// timeline without a node, sorted.
func (s *State) StreamNames() []string {
	seen := make(map[string]bool, len(s.Timelines))
	var names []string
	for _, n := range s.Graph.Nodes {
		if _, ok := s.Timelines[n.TimelineName]; ok && !seen[n.TimelineName] {
			seen[n.TimelineName] = true
			names = append(names, n.TimelineName)
		}
	}
	var rest []string
	for name := range s.Timelines {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// DecodeState converts a GetState or WatchState reply.
func DecodeState(s *structpb.Struct) (*State, error) {
	var st State
	if err := protohelper.StructToValue(s, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Client calls a StreamGraph server.
type Client struct {
	conn *grpc.ClientConn
	addr string
}

// Dial creates a client for addr. The connection is established lazily.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", addr, err)
	}
	return &Client{conn: conn, addr: addr}, nil
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invokeVersion(ctx context.Context, method string, in any) (uint64, error) {
	out := new(wrapperspb.UInt64Value)
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

// Connect emits a connection and returns the resulting state version.
func (c *Client) Connect(ctx context.Context) (uint64, error) {
	return c.invokeVersion(ctx, ConnectMethod, &emptypb.Empty{})
}

// Disconnect emits a close and returns the resulting state version.
func (c *Client) Disconnect(ctx context.Context) (uint64, error) {
	return c.invokeVersion(ctx, DisconnectMethod, &emptypb.Empty{})
}

// SetRange moves the cursor to percent, in [0, 100].
func (c *Client) SetRange(ctx context.Context, percent float64) (uint64, error) {
	return c.invokeVersion(ctx, SetRangeMethod, wrapperspb.Double(percent))
}

// GetState fetches the latest render state.
func (c *Client) GetState(ctx context.Context) (*State, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, GetStateMethod, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return DecodeState(out)
}

// WatchState calls fn with the current state and every newer one until ctx
// is done, the stream fails, or fn returns an error.
func (c *Client) WatchState(ctx context.Context, fn func(*State) error) error {
	desc := &ServiceDesc.Streams[0]
	stream, err := c.conn.NewStream(ctx, desc, WatchStateMethod)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			return err
		}
		st, err := DecodeState(msg)
		if err != nil {
			return err
		}
		if err := fn(st); err != nil {
			return err
		}
	}
}
