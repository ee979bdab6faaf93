package pipeline

import (
	"context"
	"fmt"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/retriever"
)

// DefaultTopK is the number of chunks used as context when the caller
// does not choose.
const DefaultTopK = 3

// SystemInstruction is sent with every generation request.
const SystemInstruction = "You are a helpful assistant that answers questions based on provided context. " +
	"Use only the information in the context. " +
	"If the context does not contain the answer, say that you are not sure instead of guessing."

// Pipeline answers questions from retrieved context.
type Pipeline struct {
	retriever *retriever.Retriever
	embed     domain.EmbeddingClient
	generator domain.AnswerGenerator
}

func New(r *retriever.Retriever, embed domain.EmbeddingClient, generator domain.AnswerGenerator) *Pipeline {
	return &Pipeline{retriever: r, embed: embed, generator: generator}
}

// Answer retrieves the topK chunks closest to question and asks the
// generator to answer from them. An empty retrieval still produces a
// generation call with empty context. Collaborator errors are returned
// as they are.
func (p *Pipeline) Answer(ctx context.Context, question string, topK int) (string, error) {
	answer, _, err := p.AnswerWithSources(ctx, question, topK)
	return answer, err
}

// AnswerWithSources is Answer that also returns the chunks used as context.
func (p *Pipeline) AnswerWithSources(ctx context.Context, question string, topK int) (string, []domain.SearchResult, error) {
	results, err := p.retriever.Retrieve(ctx, question, p.embed, topK)
	if err != nil {
		return "", nil, err
	}
	answer, err := p.generator.Generate(ctx, SystemInstruction, ComposePrompt(question, results))
	if err != nil {
		return "", results, err
	}
	return answer, results, nil
}

// ComposePrompt builds the user prompt from the question and the retrieved
// chunks, in rank order, separated by blank lines.
func ComposePrompt(question string, results []domain.SearchResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}
	return fmt.Sprintf(
		"Answer the following question based on the provided context. "+
			"If the answer is not in the context, state that you don't know.\n\n"+
			"Context:\n%s\n\nQuestion: %s",
		strings.Join(texts, "\n\n"), question,
	)
}
