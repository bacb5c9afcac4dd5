// Package kernelerrors provides the structured error taxonomy for the
// storage and indexing kernel.
//
// Error codes follow the pattern KERNEL_XXX_DESCRIPTION where the leading
// digit of XXX identifies the owning subsystem:
//   - 1XX: Storage
//   - 2XX: Graph
//   - 3XX: Vector
//   - 4XX: BM25
//   - 5XX: Traversal
package kernelerrors

// Kind classifies an error by owning subsystem. It names the failing
// layer, not a Go type.
type Kind string

const (
	KindStorage   Kind = "StorageError"
	KindGraph     Kind = "GraphError"
	KindVector    Kind = "VectorError"
	KindBM25      Kind = "BM25Error"
	KindTraversal Kind = "TraversalError"
)

// Code enumerates the specific error codes within each Kind.
const (
	// Storage (100-199)
	CodeInvalidPath        = "KERNEL_101_INVALID_PATH"
	CodeInsufficientSpace  = "KERNEL_102_INSUFFICIENT_SPACE"
	CodeInvalidKey         = "KERNEL_103_INVALID_KEY"
	CodeInvalidEncoding    = "KERNEL_104_INVALID_ENCODING"
	CodeTransactionAborted = "KERNEL_105_TRANSACTION_ABORTED"

	// Graph (200-299)
	CodeNotFound         = "KERNEL_201_NOT_FOUND"
	CodeSchemaViolation  = "KERNEL_202_SCHEMA_VIOLATION"
	CodeUniqueViolation  = "KERNEL_203_UNIQUE_VIOLATION"
	CodeDanglingEdge     = "KERNEL_204_DANGLING_EDGE"

	// Vector (300-399)
	CodeDimensionMismatch = "KERNEL_301_DIMENSION_MISMATCH"
	CodeInvalidVectorData = "KERNEL_302_INVALID_VECTOR_DATA"
	CodeEmptyIndex        = "KERNEL_303_EMPTY_INDEX"
	CodeDeletedVector     = "KERNEL_304_DELETED_VECTOR"

	// BM25 (400-499)
	CodeEmptyQuery       = "KERNEL_401_EMPTY_QUERY"
	CodeCapacityExceeded = "KERNEL_402_CAPACITY_EXCEEDED"

	// Traversal (500-599)
	CodeMaxDepthExceeded = "KERNEL_501_MAX_DEPTH_EXCEEDED"
	CodeInvalidWeight    = "KERNEL_502_INVALID_WEIGHT"
	CodeTypeMismatch     = "KERNEL_503_TYPE_MISMATCH"
	CodeUnsupportedStep  = "KERNEL_504_UNSUPPORTED_STEP"
)

// kindFromCode derives the owning Kind from a code's numeric prefix.
func kindFromCode(code string) Kind {
	if len(code) < 10 {
		return KindStorage
	}
	// "KERNEL_XXX_..." -> XXX starts at index 7
	switch code[7] {
	case '1':
		return KindStorage
	case '2':
		return KindGraph
	case '3':
		return KindVector
	case '4':
		return KindBM25
	case '5':
		return KindTraversal
	default:
		return KindStorage
	}
}

// retryableCodes are errors a caller may reasonably retry (e.g. after
// releasing a held transaction). Schema/data errors are never retryable.
var retryableCodes = map[string]bool{
	CodeTransactionAborted: true,
}
