// Package mongo provides a MongoDB-backed implementation of the lineage
// store. Build the low-level client via features/lineage/mongo/clients/mongo
// and pass it to NewStore so deployments can persist run ancestry durably
// across restarts.
package mongo
