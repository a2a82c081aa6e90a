package synthesizer

import (
	"strings"

	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
)

const promptTemplate = `You are a knowledgeable AI assistant that answers questions based on the provided context.
Your answers should be comprehensive, accurate, well-structured, and helpful.

If the question can't be answered using the information in the context, acknowledge that and provide general information if possible.
Always maintain a professional and informative tone.

Context information is provided below. Given this information, provide a detailed answer to the question.

Context: {context}

Question: {question}

Answer: `

const noContext = "(no relevant context was found)"

// BuildPrompt fills the answer template with the ranked chunk texts and the
// question as given.
func BuildPrompt(question string, results []commonModels.ScoredChunk) string {
	context := noContext
	if len(results) > 0 {
		parts := make([]string, len(results))
		for i, r := range results {
			parts[i] = r.Chunk.Text
		}
		context = strings.Join(parts, "\n\n")
	}
	return strings.NewReplacer("{context}", context, "{question}", question).Replace(promptTemplate)
}
