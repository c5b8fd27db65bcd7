// Package reembed recomputes the vectors of a local index, typically after
// switching embedding models.
//
// Documents are visited in ID order in fixed-size batches. Each batch is
// embedded with retry and exponential backoff, normalized to unit length so
// dot products equal cosine similarity, and written back in one
// transaction. With a checkpoint repository an interrupted run resumes after
// the last completed batch.
package reembed
