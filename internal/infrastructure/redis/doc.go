// Package redis carries bus traffic over Redis pub/sub.
//
// Subjects map one to one onto Redis channel names. Exact subscriptions use
// SUBSCRIBE; wildcard and remainder subscriptions use PSUBSCRIBE with a glob
// (see Glob) and every delivery is re-checked with topic.Match, so "*"
// still matches exactly one level.
//
// # Delivery
//
// Redis pub/sub is fire and forget: Publish returns once the server has
// accepted the message, whether or not anyone is subscribed. Each
// subscription has a bounded channel; when it is full the go-redis reader
// waits and eventually drops the message.
package redis
