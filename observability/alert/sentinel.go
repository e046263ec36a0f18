// Package alert reports internal failures, such as a store that stopped
// answering, to the Sentinel error collector.
//
// Alerts are keyed by error code and operation. Sentinel deduplicates and
// forwards them to the on-call channel, so callers can send on every failure.
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/code19m/errx"
	sentinelpb "github.com/code19m/sentinel/pb"
	"github.com/rise-and-shine/repokit/meta"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const defaultSendTimeout = 3 * time.Second

// Provider sends error alerts.
type Provider interface {
	// SendError reports one failure of operation. details carry request
	// metadata such as the trace id.
	SendError(ctx context.Context, errCode, msg, operation string, details map[string]string) error
}

// NewProvider returns a Sentinel provider, or a no-op one when cfg.Disable is set.
// The service name and version come from meta.SetServiceInfo.
func NewProvider(cfg Config) (Provider, error) {
	if cfg.Disable {
		return noOpProvider{}, nil
	}

	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}

	conn, err := grpc.NewClient(
		fmt.Sprintf("%s:%d", cfg.SentinelHost, cfg.SentinelPort),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"host": cfg.SentinelHost}))
	}

	return &SentinelProvider{
		cfg:    cfg,
		client: sentinelpb.NewSentinelServiceClient(conn),
		conn:   conn,
	}, nil
}

// SentinelProvider sends alerts over gRPC.
type SentinelProvider struct {
	cfg    Config
	client sentinelpb.SentinelServiceClient
	conn   *grpc.ClientConn
}

// SendError sends one alert. The call is detached from ctx cancellation and
// bounded by cfg.SendTimeout.
func (sp *SentinelProvider) SendError(
	ctx context.Context,
	errCode, msg, operation string,
	details map[string]string,
) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sp.cfg.SendTimeout)
	defer cancel()

	payload := make(map[string]string, len(details)+1)
	for k, v := range details {
		payload[k] = v
	}
	payload["service_version"] = meta.GetServiceVersion()

	_, err := sp.client.SendError(ctx, &sentinelpb.ErrorInfo{
		Code:      errCode,
		Message:   msg,
		Service:   meta.GetServiceName(),
		Operation: operation,
		Details:   payload,
	})
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(errx.D{"code": errCode, "operation": operation}))
	}
	return nil
}

// Close closes the gRPC connection.
func (sp *SentinelProvider) Close() error {
	return sp.conn.Close()
}

type noOpProvider struct{}

func (noOpProvider) SendError(context.Context, string, string, string, map[string]string) error {
	return nil
}
