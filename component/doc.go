// Package component defines the lifecycle interface shared by vidpipe's
// infrastructure pieces and a registry that starts them in registration
// order and stops them in reverse.
package component
