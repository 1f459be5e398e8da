// Package redis provides connection bootstrap and a health probe for the
// Redis instance backing the low-latency usage counters. It wraps
// github.com/redis/go-redis/v9 with environment-driven configuration and
// retrying connect logic; everything else is the driver's own API.
package redis
