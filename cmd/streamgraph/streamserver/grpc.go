package streamserver

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/xiaonanln/streamgraph/explorer"
	"github.com/xiaonanln/streamgraph/streamapi"
	"github.com/xiaonanln/streamgraph/util/callcontext"
	"github.com/xiaonanln/streamgraph/util/metrics"
	"github.com/xiaonanln/streamgraph/util/protohelper"
)

// grpcService implements streamapi.StreamGraphServer on an Explorer.
type grpcService struct {
	ex       *explorer.Explorer
	shutdown <-chan struct{}
}

var _ streamapi.StreamGraphServer = (*grpcService)(nil)

// grpcError converts explorer errors to gRPC status errors.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, explorer.ErrInvalidPercent):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, explorer.ErrRejected):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, explorer.ErrStopped):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, err.Error())
}

// callerContext tags ctx with the gRPC peer address.
func callerContext(ctx context.Context) context.Context {
	addr := "unknown"
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr = p.Addr.String()
	}
	return callcontext.WithClientID(ctx, TransportGRPC+"/"+addr)
}

func (g *grpcService) version(v uint64, err error) (*wrapperspb.UInt64Value, error) {
	if err != nil {
		return nil, grpcError(err)
	}
	return wrapperspb.UInt64(v), nil
}

func (g *grpcService) Connect(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.UInt64Value, error) {
	return g.version(g.ex.Connect(callerContext(ctx), TransportGRPC))
}

func (g *grpcService) Disconnect(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.UInt64Value, error) {
	return g.version(g.ex.Disconnect(callerContext(ctx), TransportGRPC))
}

func (g *grpcService) SetRange(ctx context.Context, req *wrapperspb.DoubleValue) (*wrapperspb.UInt64Value, error) {
	v := req.GetValue()
	if math.IsNaN(v) || v < 0 || v > 100 {
		return nil, status.Errorf(codes.InvalidArgument, "range value %v is outside [0, 100]", v)
	}
	return g.version(g.ex.SetRange(callerContext(ctx), TransportGRPC, v/100))
}

func (g *grpcService) GetState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s, err := protohelper.ValueToStruct(g.ex.State())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}

func (g *grpcService) WatchState(_ *emptypb.Empty, stream streamapi.StreamGraph_WatchStateServer) error {
	clientID := "grpc-" + uuid.NewString()
	states := make(chan *explorer.RenderState, 1)
	unsubscribe, err := g.ex.Subscribe(clientID, explorer.ObserverFunc(func(st *explorer.RenderState) {
		offerLatest(states, st)
	}))
	if err != nil {
		return grpcError(err)
	}
	defer unsubscribe()

	metrics.RecordSubscriberConnected(TransportGRPC)
	log.Infof("gRPC watcher connected: %s", clientID)
	defer func() {
		metrics.RecordSubscriberDisconnected(TransportGRPC)
		log.Infof("gRPC watcher disconnected: %s", clientID)
	}()

	var sent uint64
	send := func(st *explorer.RenderState) error {
		if st.Version <= sent {
			return nil
		}
		s, err := protohelper.ValueToStruct(st)
		if err != nil {
			return status.Error(codes.Internal, err.Error())
		}
		if err := stream.Send(s); err != nil {
			return err
		}
		sent = st.Version
		return nil
	}

	if err := send(g.ex.State()); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-g.shutdown:
			return status.Error(codes.Unavailable, "server shutting down")
		case st := <-states:
			if err := send(st); err != nil {
				return err
			}
		}
	}
}
