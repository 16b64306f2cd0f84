package scoring

import (
	"testing"

	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mixedQuiz() *model.Quiz {
	return &model.Quiz{
		ID:        uuid.New(),
		TeacherID: 1,
		Title:     "Mixed quiz",
		Status:    model.QuizStatusActive,
		Questions: []model.Question{
			{
				ID:           uuid.New(),
				Type:         model.QuestionTypeMultipleChoice,
				Text:         "Q1",
				Options:      []string{"a", "b", "c"},
				CorrectIndex: 0,
				Points:       2,
			},
			{
				ID:           uuid.New(),
				Type:         model.QuestionTypeMultipleChoice,
				Text:         "Q2",
				Options:      []string{"a", "b", "c"},
				CorrectIndex: 2,
				Points:       3,
			},
			{
				ID:       uuid.New(),
				Type:     model.QuestionTypeEssay,
				Text:     "Q3",
				MaxWords: 100,
				Points:   5,
			},
		},
	}
}

func inputs(answers ...string) []model.AnswerInput {
	out := make([]model.AnswerInput, 0, len(answers))
	for _, a := range answers {
		out = append(out, model.AnswerInput{Answer: a})
	}
	return out
}

func TestScoreMixedQuiz(t *testing.T) {
	quiz := mixedQuiz()

	// Q1 correct, Q2 wrong, essay left blank.
	result, err := Score(quiz, inputs("0", "1", ""))
	require.NoError(t, err)

	assert.Equal(t, 2.0, result.Score)
	assert.Equal(t, 10.0, result.TotalPoints)
	assert.Equal(t, 20, result.Percentage)

	require.Len(t, result.Answers, 3)
	assert.True(t, result.Answers[0].IsCorrect)
	assert.Equal(t, 2.0, result.Answers[0].PointsAwarded)
	assert.False(t, result.Answers[1].IsCorrect)
	assert.Zero(t, result.Answers[1].PointsAwarded)
	// Essays score zero until a teacher grades them.
	assert.False(t, result.Answers[2].IsCorrect)
	assert.Zero(t, result.Answers[2].PointsAwarded)
	assert.Equal(t, quiz.Questions[2].ID, result.Answers[2].QuestionID)
}

func TestScoreAllCorrect(t *testing.T) {
	quiz := mixedQuiz()

	result, err := Score(quiz, inputs("0", "2", "a thoughtful essay"))
	require.NoError(t, err)
	assert.Equal(t, 5.0, result.Score)
	assert.Equal(t, 50, result.Percentage)
}

func TestScorePartialAndEmptySubmissions(t *testing.T) {
	quiz := mixedQuiz()

	t.Run("empty answer list", func(t *testing.T) {
		result, err := Score(quiz, nil)
		require.NoError(t, err)
		assert.Zero(t, result.Score)
		assert.Zero(t, result.Percentage)
		// Every question still gets an answer row for later grading.
		require.Len(t, result.Answers, 3)
	})

	t.Run("fewer answers than questions", func(t *testing.T) {
		result, err := Score(quiz, inputs("0"))
		require.NoError(t, err)
		assert.Equal(t, 2.0, result.Score)
		require.Len(t, result.Answers, 3)
		assert.Empty(t, result.Answers[1].Answer)
	})

	t.Run("more answers than questions", func(t *testing.T) {
		result, err := Score(quiz, inputs("0", "2", "essay", "extra", "extra"))
		require.NoError(t, err)
		assert.Equal(t, 5.0, result.Score)
		require.Len(t, result.Answers, 3)
	})
}

func TestScoreNonNumericChoice(t *testing.T) {
	quiz := mixedQuiz()

	result, err := Score(quiz, inputs("a", "banana", ""))
	require.NoError(t, err)
	assert.Zero(t, result.Score)
	assert.Equal(t, "a", result.Answers[0].Answer)
}

func TestScoreUnknownQuestionType(t *testing.T) {
	quiz := mixedQuiz()
	quiz.Questions[1].Type = "TRUE_FALSE"

	_, err := Score(quiz, inputs("0", "1", ""))
	assert.Error(t, err)
}

func TestScoreCarriesTiming(t *testing.T) {
	quiz := mixedQuiz()
	answers := []model.AnswerInput{
		{Answer: "0", TimeTakenSeconds: 12},
		{Answer: "2", TimeTakenSeconds: 30},
		{Answer: "essay", TimeTakenSeconds: 300},
	}

	result, err := Score(quiz, answers)
	require.NoError(t, err)
	assert.Equal(t, 12, result.Answers[0].TimeTakenSeconds)
	assert.Equal(t, 300, result.Answers[2].TimeTakenSeconds)
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		total float64
		want  int
	}{
		{"zero total", 0, 0, 0},
		{"negative total", 5, -1, 0},
		{"exact", 5, 10, 50},
		{"rounds up", 2, 3, 67},
		{"rounds down", 1, 3, 33},
		{"rounds half up", 1, 8, 13},
		{"full marks", 10, 10, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Percentage(tt.score, tt.total))
		})
	}
}

func TestRegrade(t *testing.T) {
	answers := []model.SubmissionAnswer{
		{PointsAwarded: 2},
		{PointsAwarded: 0},
		{PointsAwarded: 4.5},
	}

	score, percentage := Regrade(answers, 10)
	assert.Equal(t, 6.5, score)
	assert.Equal(t, 65, percentage)

	score, percentage = Regrade(nil, 10)
	assert.Zero(t, score)
	assert.Zero(t, percentage)
}

func TestLetterGrade(t *testing.T) {
	tests := []struct {
		percentage int
		want       string
	}{
		{100, "A"}, {90, "A"},
		{89, "B"}, {80, "B"},
		{79, "C"}, {70, "C"},
		{69, "D"}, {60, "D"},
		{59, "F"}, {0, "F"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LetterGrade(tt.percentage), "percentage %d", tt.percentage)
	}
}
