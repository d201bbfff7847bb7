package domain

import "fmt"

// QueryState tracks a query's progress through the answer pipeline.
type QueryState string

const (
	StateReceived          QueryState = "received"
	StateEmbedding         QueryState = "embedding"
	StateRetrieving        QueryState = "retrieving"
	StateAssemblingContext QueryState = "assembling_context"
	StateGenerating        QueryState = "generating"
	StateLeakChecking      QueryState = "leak_checking"
	StateCiting            QueryState = "citing"
	StateCompleted         QueryState = "completed"
	StateFailed            QueryState = "failed"
)

// stateOrder gives each non-terminal state its position in the pipeline.
var stateOrder = map[QueryState]int{
	StateReceived:          0,
	StateEmbedding:         1,
	StateRetrieving:        2,
	StateAssemblingContext: 3,
	StateGenerating:        4,
	StateLeakChecking:      5,
	StateCiting:            6,
	StateCompleted:         7,
}

// CanTransition reports whether a query may move from one state to the next.
// Forward single steps only, plus failure from anywhere and the single
// leak-check → generating regeneration pass (enforced once by the pipeline).
func CanTransition(from, to QueryState) bool {
	if to == StateFailed {
		return from != StateFailed
	}
	if from == StateLeakChecking && to == StateGenerating {
		return true
	}
	fromPos, ok := stateOrder[from]
	if !ok {
		return false
	}
	toPos, ok := stateOrder[to]
	if !ok {
		return false
	}
	return toPos == fromPos+1
}

// Query is the inbound request from the chat transport layer.
type Query struct {
	ID             string
	ChatbotID      string
	Message        string
	ConversationID string
	Language       string
}

// ValidateQuery validates a Query instance.
func ValidateQuery(q *Query) error {
	if q == nil {
		return fmt.Errorf("query cannot be nil")
	}
	if q.ChatbotID == "" {
		return fmt.Errorf("query ChatbotID is required")
	}
	if q.Message == "" {
		return fmt.Errorf("query Message is required")
	}
	return nil
}

// LatencyBreakdown records per-stage wall time in milliseconds.
type LatencyBreakdown struct {
	EmbeddingMS  int64 `json:"embedding_ms"`
	RetrievalMS  int64 `json:"retrieval_ms"`
	AssemblyMS   int64 `json:"assembly_ms"`
	GenerationMS int64 `json:"generation_ms"`
	LeakCheckMS  int64 `json:"leak_check_ms"`
	TotalMS      int64 `json:"total_ms"`
}

// Response is the outbound answer returned to the chat transport layer.
// Citations reference citable source chunks only.
type Response struct {
	Message        string
	ConversationID string
	MessageID      string
	Citations      []string
	CostEstimate   float64
	Latency        LatencyBreakdown
}
