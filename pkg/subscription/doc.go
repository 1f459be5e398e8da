// Package subscription holds the locally replicated subscription record:
// which tier a user paid for, the subscription status, and the billing
// period bounds reported by the provider.
//
// The billing provider owns this state. The webhook sync process
// (pkg/billing) is the only writer; everything else is a pure reader, and a
// missing record is a normal state meaning the user is on the free tier.
//
// RecordStore backends: PGStore (PostgreSQL), MongoStore (MongoDB) and
// MemStore (in-memory, for tests).
package subscription
