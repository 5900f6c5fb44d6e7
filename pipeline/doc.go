// Package pipeline defines the persisted model of a video-production DAG:
// pipelines, their typed work nodes, node status transitions, input
// references between nodes, and the execution level plan derived from them.
//
// Node documents (config, inputs, asset, output, metadata) are free-form
// JSON maps. Their shape is enforced by the schema and validation packages,
// not by Go types.
package pipeline
