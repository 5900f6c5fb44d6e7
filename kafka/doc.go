// Package kafka holds the shared kafka-go plumbing for vidpipe: broker
// configuration, TLS/SASL transports and a component that owns the
// producer and consumer lifecycles.
//
// Subpackages:
//
//   - kafka/producer: JSON publishing with bounded retries
//   - kafka/consumer: group consumption with read backoff
//
// Configuration:
//
//	kafka:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  group_id: vidpipe
//	  callback_topic: vidpipe.callbacks
package kafka
