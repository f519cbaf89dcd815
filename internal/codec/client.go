package codec

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/graph"
)

// #region constants
const (
	// ServiceName is the inference service exposed by the Python sidecar.
	ServiceName = "sentiment.v1.ClassifierService"
	// ClassifyMethod is the full gRPC method path.
	ClassifyMethod = "/" + ServiceName + "/Classify"
)

var (
	// ErrEmptyText is returned before any RPC for blank input.
	ErrEmptyText = errors.New("text is empty")
	// ErrUnavailable marks transport-level unavailability of the backend.
	ErrUnavailable = errors.New("classifier backend unavailable")
	// ErrMalformedResponse is returned when the reply lacks a usable score list.
	ErrMalformedResponse = errors.New("malformed classify response")
)

// #endregion constants

// #region client-struct
// ClassifierClient calls the Python inference service. Messages are
// google.protobuf.Struct values:
//
//	request:  {"text": "..."}
//	response: {"scores": [{"label": "LABEL_0", "score": 0.92}, ...]}
type ClassifierClient struct {
	conn    *grpc.ClientConn
	cc      grpc.ClientConnInterface
	timeout time.Duration
}

// #endregion client-struct

// #region constructor
// NewClassifierClient connects to the inference gRPC server. The connection
// is established lazily on the first call.
func NewClassifierClient(addr string, timeout time.Duration, opts ...grpc.DialOption) (*ClassifierClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &ClassifierClient{conn: conn, cc: conn, timeout: timeout}, nil
}

// NewClassifierClientWithConn creates a client over an injected connection.
// Used for testing without a real gRPC server.
func NewClassifierClientWithConn(cc grpc.ClientConnInterface, timeout time.Duration) *ClassifierClient {
	return &ClassifierClient{cc: cc, timeout: timeout}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection, if this client owns one.
func (c *ClassifierClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region classify
// Classify returns the score of every label, in the order the service sent.
func (c *ClassifierClient) Classify(ctx context.Context, text string) ([]graph.Score, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	req, err := structpb.NewStruct(map[string]any{"text": text})
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, ClassifyMethod, req, resp); err != nil {
		if status.Code(err) == codes.Unavailable {
			return nil, fmt.Errorf("classify rpc: %w: %w", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("classify rpc: %w", err)
	}

	return decodeScores(resp)
}

// #endregion classify

// #region decode
func decodeScores(resp *structpb.Struct) ([]graph.Score, error) {
	list := resp.GetFields()["scores"].GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%w: missing scores list", ErrMalformedResponse)
	}

	scores := make([]graph.Score, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		item := v.GetStructValue()
		if item == nil {
			return nil, fmt.Errorf("%w: scores[%d] is not an object", ErrMalformedResponse, i)
		}
		label, ok := item.GetFields()["label"].GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%w: scores[%d].label is not a string", ErrMalformedResponse, i)
		}
		score, ok := item.GetFields()["score"].GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("%w: scores[%d].score is not a number", ErrMalformedResponse, i)
		}
		scores = append(scores, graph.Score{Label: label.StringValue, Score: score.NumberValue})
	}
	return scores, nil
}

// #endregion decode
