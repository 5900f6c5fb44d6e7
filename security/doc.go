// Package security builds client TLS settings for the broker and cache
// connections. Kafka maps its flat tls_* keys onto TLSConfig; Redis
// nests it under redis.tls.
package security
