// Package scoring computes deterministic exam scores from a quiz definition
// and a set of raw answers. It has no store or transport dependencies so the
// same code runs in the submit path and the auto-submit worker.
package scoring

import (
	"fmt"
	"math"
	"strconv"

	"github.com/courseloop/examroom-backend/internal/model"
)

// Result is the outcome of scoring one submission.
type Result struct {
	Answers     []model.SubmissionAnswer
	Score       float64
	TotalPoints float64
	Percentage  int
}

// Score pairs answers positionally with the quiz's canonical question order:
// answers[i] is scored against quiz.Questions[i]. A missing or extra answer
// is worth zero points, never an error; a partial or empty submission still
// scores, just lower.
func Score(quiz *model.Quiz, answers []model.AnswerInput) (*Result, error) {
	result := &Result{
		Answers:     make([]model.SubmissionAnswer, 0, len(quiz.Questions)),
		TotalPoints: quiz.TotalPoints(),
	}

	for i, question := range quiz.Questions {
		scored := model.SubmissionAnswer{QuestionID: question.ID}
		if i < len(answers) {
			scored.Answer = answers[i].Answer
			scored.TimeTakenSeconds = answers[i].TimeTakenSeconds
		}

		switch question.Type {
		case model.QuestionTypeMultipleChoice:
			if i < len(answers) && matchesChoice(answers[i].Answer, question.CorrectIndex) {
				scored.IsCorrect = true
				scored.PointsAwarded = question.Points
			}
		case model.QuestionTypeEssay:
			// Essays are always zero at submission time; a teacher grades
			// them later through the explicit manual-grading operation.
		default:
			return nil, fmt.Errorf("unknown question type %q", question.Type)
		}

		result.Score += scored.PointsAwarded
		result.Answers = append(result.Answers, scored)
	}

	result.Percentage = Percentage(result.Score, result.TotalPoints)
	return result, nil
}

// matchesChoice parses the raw answer as a zero-based option index.
// Non-numeric answers simply do not match.
func matchesChoice(raw string, correctIndex int) bool {
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return false
	}
	return idx == correctIndex
}

// Percentage returns round(score/total*100), or 0 for an empty quiz.
func Percentage(score, total float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(score / total * 100))
}

// Regrade recomputes score and percentage from already-stored answers.
// Used after manual essay grading mutates per-answer points.
func Regrade(answers []model.SubmissionAnswer, totalPoints float64) (score float64, percentage int) {
	for _, a := range answers {
		score += a.PointsAwarded
	}
	return score, Percentage(score, totalPoints)
}
