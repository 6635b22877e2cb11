package coach

import (
	"fmt"
	"strings"

	"github.com/abhisek/missionkit/internal/evaluator"
	"github.com/abhisek/missionkit/internal/tracker"
)

const systemPrompt = `You are a warm reading and spelling coach for children aged 6-11. After each short practice game you leave the learner a note they will read on screen.`

func buildUserMessage(d evaluator.StandardizedDetails, maxMistakes int) string {
	var b strings.Builder

	s := d.Summary
	fmt.Fprintf(&b, "Score: %.1f/10 (%s)\n", s.ScoreFinal, s.Performance)
	fmt.Fprintf(&b, "Correct: %d, Wrong: %d, Accuracy: %.0f%%\n", s.CorrectCount, s.WrongCount, s.Accuracy)
	fmt.Fprintf(&b, "Finished the mission: %t\n", s.Completed)

	writeList(&b, "Strengths", d.Review.Strengths)
	writeList(&b, "Needs work", d.Review.Improvements)
	if d.Review.RecommendedPractice != "" {
		fmt.Fprintf(&b, "\nRecommended next: %s\n", d.Review.RecommendedPractice)
	}

	mistakes := wrongAnswers(d.Answers, maxMistakes)
	if len(mistakes) > 0 {
		b.WriteString("\nSome mistakes:\n")
		for _, a := range mistakes {
			if a.Event == tracker.EventMiss {
				fmt.Fprintf(&b, "- missed %q\n", a.CorrectAnswer)
				continue
			}
			fmt.Fprintf(&b, "- answered %q for %q\n", a.StudentAnswer, a.Prompt)
		}
	}

	b.WriteString(`
Instructions:
Write exactly two short sentences to the learner.
1. The first sentence praises something specific they did well.
2. The second sentence gives one concrete thing to practice next, using the recommendation above.
Use simple words a young child can read. No emoji, no lists, no grades or numbers.`)

	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func wrongAnswers(answers []tracker.AnswerRecord, limit int) []tracker.AnswerRecord {
	var out []tracker.AnswerRecord
	for _, a := range answers {
		if len(out) >= limit {
			break
		}
		if !a.IsCorrect {
			out = append(out, a)
		}
	}
	return out
}
