// Package middleware holds the gin middleware installed by the server.
package middleware
