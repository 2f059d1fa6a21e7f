package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// OutboundPublisher publishes margin results to NATS for downstream
// consumers (liquidation bots, dashboards). Subjects follow the pattern
// risk.results.margin.{user_id}.
type OutboundPublisher struct {
	js        jetstream.JetStream
	inputChan <-chan PublishableResult
}

// PublishableResult is a completed margin calculation ready for outbound
// publishing. Big integer fields travel as decimal strings.
type PublishableResult struct {
	UserID                 string    `json:"user_id"`
	MarginType             string    `json:"margin_type"`
	TotalCollateral        string    `json:"total_collateral"`
	MarginRequirement      string    `json:"margin_requirement"`
	FreeCollateral         string    `json:"free_collateral"`
	MeetsMarginRequirement bool      `json:"meets_margin_requirement"`
	NumSpotLiabilities     uint8     `json:"num_spot_liabilities"`
	NumPerpLiabilities     uint8     `json:"num_perp_liabilities"`
	AllOraclesValid        bool      `json:"all_oracles_valid"`
	WithSpotIsolatedLiab   bool      `json:"with_spot_isolated_liability"`
	WithPerpIsolatedLiab   bool      `json:"with_perp_isolated_liability"`
	Slot                   uint64    `json:"slot"`
	Timestamp              time.Time `json:"timestamp"`
}

func NewOutboundPublisher(js jetstream.JetStream, inputChan <-chan PublishableResult) *OutboundPublisher {
	return &OutboundPublisher{
		js:        js,
		inputChan: inputChan,
	}
}

// Run starts the outbound publisher loop.
func (op *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case res, ok := <-op.inputChan:
			if !ok {
				return nil
			}

			if err := op.publish(ctx, res); err != nil {
				log.Printf("WARN: outbound publish failed user=%s: %v", res.UserID, err)
				// Non-fatal: consumers can query the snapshot table directly
			}
		}
	}
}

func (op *OutboundPublisher) publish(ctx context.Context, res PublishableResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	subject := fmt.Sprintf("risk.results.margin.%s", res.UserID)
	_, err = op.js.Publish(ctx, subject, data)
	return err
}

// EnsureOutboundStream creates the outbound results stream.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "RISK_RESULTS",
		Subjects:  []string{"risk.results.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	log.Println("INFO: ensured outbound stream RISK_RESULTS")
	return nil
}
