// Package publisher delivers decoded notifications to exactly one
// downstream sink.
//
// A Dispatcher combines three pieces:
//
//  1. Filter: glob patterns over the sender's bundle ID
//  2. Transformer: serializes a Notification (json, msgpack)
//  3. Sink: the destination (stdout, webhook, kafka, nats)
//
// Sinks and transformers register factories from init() in the sink and
// transformer packages, so main only needs blank imports:
//
//	import (
//		_ "github.com/blurt-dev/blurt/publisher/sink"
//		_ "github.com/blurt-dev/blurt/publisher/transformer"
//	)
//
//	d, err := publisher.NewDispatcherFromConfig(cfg.Config.Sink)
//	if err != nil {
//		return err
//	}
//	defer d.Close()
//
//	if err := d.Deliver(ctx, n); err != nil {
//		log.Warn().Err(err).Msg("Delivery failed")
//	}
//
// # Delivery semantics
//
// Each notification gets one publish attempt bounded by the configured
// timeout. Errors are returned to the caller, which logs and drops them.
// There is no retry, queue, or acknowledgement tracking.
package publisher
