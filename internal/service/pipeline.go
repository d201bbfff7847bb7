package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/telemetry"
)

// LeakPolicy selects the remediation applied when the leak guard fires.
type LeakPolicy string

const (
	// LeakPolicyRegenerate retries generation once with a stricter
	// directive, then redacts any residual match.
	LeakPolicyRegenerate LeakPolicy = "regenerate"
	// LeakPolicyRedact replaces leaked spans in place without regenerating.
	LeakPolicyRedact LeakPolicy = "redact"
	// LeakPolicyBlock fails the request instead of remediating.
	LeakPolicyBlock LeakPolicy = "block"
)

const basePrivacyDirective = `You are a knowledge-base assistant. Answer using only the provided context.
Blocks tagged [CITABLE-i] may be quoted and must be referenced by their marker when used.
Blocks tagged [PRIVATE] may inform your reasoning but their content must never be quoted, paraphrased identifiably, or referenced by marker in your answer.`

const strictPrivacyDirective = basePrivacyDirective + `
Your previous answer disclosed [PRIVATE] content. Regenerate the answer without using any wording from [PRIVATE] blocks. This is mandatory.`

const noKnowledgePrompt = `You are a knowledge-base assistant. No knowledge is available for this chatbot yet.
Tell the user you cannot answer from its knowledge base and suggest they contact the operator.`

// Embedder turns text into a query vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChatPipeline turns a user query into an answer while enforcing the
// privacy partition end to end. One instance serves arbitrarily many
// concurrent queries; all per-query state lives on the stack.
type ChatPipeline struct {
	embedder  Embedder
	retriever *RetrievalOrchestrator
	assembler *ContextAssembler
	generator *GenerationClient
	guard     *LeakGuard
	citations *CitationExtractor
	observer  Observer

	topK       int
	leakPolicy LeakPolicy
	strategy   func(q *domain.Query) RankingStrategy
}

// PipelineConfig bundles the tunable pipeline knobs.
type PipelineConfig struct {
	TopK       int
	LeakPolicy LeakPolicy
	// Strategy selects the ranking strategy per query. Nil means
	// cosine similarity for every query.
	Strategy func(q *domain.Query) RankingStrategy
}

// NewChatPipeline wires the pipeline stages together.
func NewChatPipeline(
	embedder Embedder,
	retriever *RetrievalOrchestrator,
	assembler *ContextAssembler,
	generator *GenerationClient,
	guard *LeakGuard,
	citations *CitationExtractor,
	observer Observer,
	cfg PipelineConfig,
) *ChatPipeline {
	if observer == nil {
		observer = NopObserver{}
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	switch cfg.LeakPolicy {
	case LeakPolicyRegenerate, LeakPolicyRedact, LeakPolicyBlock:
	default:
		cfg.LeakPolicy = LeakPolicyRegenerate
	}
	if cfg.Strategy == nil {
		cfg.Strategy = func(*domain.Query) RankingStrategy { return NewSimilarity() }
	}
	return &ChatPipeline{
		embedder:   embedder,
		retriever:  retriever,
		assembler:  assembler,
		generator:  generator,
		guard:      guard,
		citations:  citations,
		observer:   observer,
		topK:       cfg.TopK,
		leakPolicy: cfg.LeakPolicy,
		strategy:   cfg.Strategy,
	}
}

// queryRun tracks one query's progress through the stage state machine.
type queryRun struct {
	state domain.QueryState
}

func (r *queryRun) advance(to domain.QueryState) error {
	if !domain.CanTransition(r.state, to) {
		return domain.NewDomainError(domain.ErrCodeInternalError,
			fmt.Sprintf("illegal state transition %s -> %s", r.state, to))
	}
	r.state = to
	return nil
}

// Answer runs the full pipeline for one query.
func (p *ChatPipeline) Answer(ctx context.Context, query *domain.Query) (*domain.Response, error) {
	if err := domain.ValidateQuery(query); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid query", err)
	}
	if query.ID == "" {
		query.ID = uuid.NewString()
	}

	run := &queryRun{state: domain.StateReceived}
	var latency domain.LatencyBreakdown
	started := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "pipeline.answer", telemetry.SpanAttributes{
		ChatbotID: query.ChatbotID,
		QueryID:   query.ID,
		Operation: "answer",
	})
	defer span.End()

	fail := func(err error) (*domain.Response, error) {
		_ = run.advance(domain.StateFailed)
		span.SetError(err)
		return nil, err
	}

	// Embedding
	if err := run.advance(domain.StateEmbedding); err != nil {
		return fail(err)
	}
	stage := time.Now()
	vector, err := p.embedder.GenerateEmbedding(ctx, query.Message)
	latency.EmbeddingMS = time.Since(stage).Milliseconds()
	if err != nil {
		return fail(domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingFailed, "query embedding failed", err))
	}

	// Retrieval
	if err := run.advance(domain.StateRetrieving); err != nil {
		return fail(err)
	}
	stage = time.Now()
	candidates, err := p.retriever.Retrieve(ctx, query.ChatbotID, vector, p.topK, p.strategy(query))
	latency.RetrievalMS = time.Since(stage).Milliseconds()
	if err != nil {
		return fail(err)
	}

	// Context assembly
	if err := run.advance(domain.StateAssemblingContext); err != nil {
		return fail(err)
	}
	stage = time.Now()
	assembled := p.assembler.BuildContext(candidates, true)
	latency.AssemblyMS = time.Since(stage).Milliseconds()

	systemPrompt := basePrivacyDirective
	userPrompt := query.Message
	if assembled.Empty() {
		// No knowledge is not an error: answer from the fallback prompt.
		systemPrompt = noKnowledgePrompt
	} else {
		userPrompt = "Context:\n" + assembled.Text + "\n\nQuestion: " + query.Message
	}

	// Generation
	if err := run.advance(domain.StateGenerating); err != nil {
		return fail(err)
	}
	stage = time.Now()
	result, err := p.generator.Generate(ctx, systemPrompt, userPrompt)
	latency.GenerationMS = time.Since(stage).Milliseconds()
	if err != nil {
		return fail(err)
	}
	totalCost := result.Cost

	// Leak check, with at most one regeneration pass.
	if err := run.advance(domain.StateLeakChecking); err != nil {
		return fail(err)
	}
	stage = time.Now()
	text := result.Text
	detections := p.guard.Check(text, assembled.PrivateBlocks)
	latency.LeakCheckMS = time.Since(stage).Milliseconds()

	if len(detections) > 0 {
		switch p.leakPolicy {
		case LeakPolicyBlock:
			p.recordViolations(ctx, query, detections, domain.ViolationActionBlocked)
			return fail(domain.ErrLeakBlocked)

		case LeakPolicyRedact:
			p.recordViolations(ctx, query, detections, domain.ViolationActionRedacted)
			text = p.guard.Redact(text, detections)

		case LeakPolicyRegenerate:
			p.recordViolations(ctx, query, detections, domain.ViolationActionRegenerated)

			if err := run.advance(domain.StateGenerating); err != nil {
				return fail(err)
			}
			stage = time.Now()
			retry, err := p.generator.Generate(ctx, strictPrivacyDirective, userPrompt)
			latency.GenerationMS += time.Since(stage).Milliseconds()
			if err != nil {
				return fail(err)
			}
			totalCost += retry.Cost
			result = retry
			text = retry.Text

			if err := run.advance(domain.StateLeakChecking); err != nil {
				return fail(err)
			}
			stage = time.Now()
			residual := p.guard.Check(text, assembled.PrivateBlocks)
			latency.LeakCheckMS += time.Since(stage).Milliseconds()
			if len(residual) > 0 {
				p.recordViolations(ctx, query, residual, domain.ViolationActionRedacted)
				text = p.guard.Redact(text, residual)
			}
		}
	}

	// Citation extraction
	if err := run.advance(domain.StateCiting); err != nil {
		return fail(err)
	}
	citations := p.citations.ExtractCitations(text, assembled)

	if err := run.advance(domain.StateCompleted); err != nil {
		return fail(err)
	}
	latency.TotalMS = time.Since(started).Milliseconds()

	conversationID := query.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	response := &domain.Response{
		Message:        StripMarkers(text),
		ConversationID: conversationID,
		MessageID:      uuid.NewString(),
		Citations:      citations,
		CostEstimate:   totalCost,
		Latency:        latency,
	}

	p.observer.RecordUsage(ctx, UsageEvent{
		QueryID:          query.ID,
		ChatbotID:        query.ChatbotID,
		Model:            result.Model,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		Cost:             totalCost,
		Latency:          latency,
		CreatedAt:        time.Now().UTC(),
	})

	return response, nil
}

func (p *ChatPipeline) recordViolations(ctx context.Context, query *domain.Query, detections []LeakDetection, action domain.ViolationAction) {
	for _, d := range detections {
		p.observer.RecordViolation(ctx, domain.PrivacyViolationReport{
			ID:             uuid.NewString(),
			QueryID:        query.ID,
			ChatbotID:      query.ChatbotID,
			SourceChunkID:  d.ChunkID,
			LeakedFragment: d.Fragment,
			Action:         action,
			CreatedAt:      time.Now().UTC(),
		})
	}
}
