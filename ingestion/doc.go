// Package ingestion loads documents into an index.
//
// A Pipeline chunks incoming documents, validates every chunk, groups the
// chunks into batches and indexes the batches concurrently on a worker pool.
// Transient index failures are retried with exponential backoff; invalid
// documents and embedding mismatches are not.
//
// Example:
//
//	p, err := ingestion.NewPipeline(store, ingestion.WithChunker(chunker))
//	if err != nil {
//	    return err
//	}
//	defer p.Release()
//
//	n, err := p.Ingest(ctx, docs)
package ingestion
