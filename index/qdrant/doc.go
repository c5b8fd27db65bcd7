// Package qdrant builds multiquery indexes on top of a Qdrant server.
//
// Store reads and writes points through langchaingo's Qdrant vector store
// (REST), storing content under ContentPayloadKey and metadata as a nested
// object under MetadataPayloadKey. Collections creates, counts and deletes
// the collection through the official gRPC client.
//
// Local on-disk Qdrant is not supported; use package local for an embedded
// index.
package qdrant
