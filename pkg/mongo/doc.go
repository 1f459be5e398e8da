// Package mongo provides connection bootstrap and a health probe for the
// MongoDB deployment option of the subscription record replica. It wraps the
// official go.mongodb.org/mongo-driver/v2 client with environment-driven
// configuration and retrying connect logic.
package mongo
