package storage

// Sub-store (bucket) names. Byte-level key schemas built on top of these
// must not change shape without a schema version bump (see meta.go).
var (
	BucketNodes          = []byte("nodes")
	BucketEdges          = []byte("edges")
	BucketOutAdjacency   = []byte("out_adj")
	BucketInAdjacency    = []byte("in_adj")
	BucketSecondaryIndex = []byte("secondary_index")
	BucketVectorData     = []byte("vector_data")
	BucketVectorLayer    = []byte("vector_layer")
	BucketVectorLinks    = []byte("vector_links")
	BucketBM25Postings   = []byte("bm25_postings")
	BucketBM25Docs       = []byte("bm25_docs")
	BucketBM25Stats      = []byte("bm25_stats")
	BucketMeta           = []byte("meta")
)

// allBuckets is created up-front by Open so every transaction can assume
// every sub-store already exists.
var allBuckets = [][]byte{
	BucketNodes,
	BucketEdges,
	BucketOutAdjacency,
	BucketInAdjacency,
	BucketSecondaryIndex,
	BucketVectorData,
	BucketVectorLayer,
	BucketVectorLinks,
	BucketBM25Postings,
	BucketBM25Docs,
	BucketBM25Stats,
	BucketMeta,
}
