package usecase

import (
	"fmt"
	"strings"
)

// RefusalAnswer is the sentence the generator is instructed to emit when the
// context does not contain the answer.
const RefusalAnswer = "I cannot find the answer in the provided documents."

// buildAnswerPrompt assembles the generation prompt from the used chunks.
// The original question goes into the prompt, not the rewritten one.
func buildAnswerPrompt(question string, contextTexts []string) string {
	context := strings.Join(contextTexts, "\n\n")

	return fmt.Sprintf(`You are an assistant that answers questions strictly using the provided context.
If the answer is not present in the context, say:
%q

Context:
%s

Question:
%s

Answer:
`, RefusalAnswer, context, question)
}
