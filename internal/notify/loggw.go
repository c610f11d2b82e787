package notify

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// LogGateway is a stand-in transport that writes every delivery to the log.
// Used when the server runs without a platform adapter wired in.
type LogGateway struct {
	log *zap.Logger
	seq atomic.Int64
}

func NewLogGateway(log *zap.Logger) *LogGateway {
	return &LogGateway{log: log}
}

func (g *LogGateway) ref() MessageRef {
	return MessageRef(fmt.Sprintf("log-%d", g.seq.Add(1)))
}

func (g *LogGateway) PostStatus(_ context.Context, channel, content string) (MessageRef, error) {
	ref := g.ref()
	g.log.Info("post", zap.String("channel", channel), zap.String("ref", string(ref)), zap.String("content", content))
	return ref, nil
}

func (g *LogGateway) EditStatus(_ context.Context, ref MessageRef, content string) error {
	g.log.Info("edit", zap.String("ref", string(ref)), zap.String("content", content))
	return nil
}

func (g *LogGateway) Withdraw(_ context.Context, ref MessageRef) error {
	g.log.Info("withdraw", zap.String("ref", string(ref)))
	return nil
}

func (g *LogGateway) SendDirect(_ context.Context, userID, content string) error {
	g.log.Info("direct", zap.String("user", userID), zap.String("content", content))
	return nil
}

func (g *LogGateway) OpenPrompt(_ context.Context, userID, content string) error {
	g.log.Info("prompt", zap.String("user", userID), zap.String("content", content))
	return nil
}

func (g *LogGateway) CreateThread(_ context.Context, parent MessageRef, name string) (MessageRef, error) {
	ref := g.ref()
	g.log.Info("thread", zap.String("parent", string(parent)), zap.String("name", name))
	return ref, nil
}

func (g *LogGateway) PostToThread(_ context.Context, thread MessageRef, content string) error {
	g.log.Info("thread post", zap.String("thread", string(thread)), zap.String("content", content))
	return nil
}
