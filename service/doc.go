// Package service assembles a vidpipe process from config.AppConfig:
// infrastructure components, the engine, executors, the task queue and
// the HTTP API.
package service
