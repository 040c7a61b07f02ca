package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/aidyn-m/qazexam/internal/dto"
	"github.com/aidyn-m/qazexam/internal/model"
)

// questionsBySectionType indexes the attempt's questions by their section.
func questionsBySectionType(t *testing.T, env *testEnv, attemptID uint) map[string][]model.QuestionAttempt {
	t.Helper()
	qas, err := env.qaRepo.FindByAttempt(attemptID)
	if err != nil {
		t.Fatalf("FindByAttempt failed: %v", err)
	}
	byType := make(map[string][]model.QuestionAttempt)
	for _, qa := range qas {
		sectionType := qa.SectionAttempt.Section.SectionType
		byType[sectionType] = append(byType[sectionType], qa)
	}
	return byType
}

func TestSubmitAndFinishGradesEverything(t *testing.T) {
	env := newTestEnv(t)
	env.transcriber.transcript = "желі дегеніміз компьютер желісі"
	exam := seedExam(t, env.db)
	attempt := startAttempt(t, env, 1, exam.ID)

	byType := questionsBySectionType(t, env, attempt.ID)

	// Reading: single choice right, multi choice right.
	single := byType[model.SectionReading][0]
	if _, err := env.answerService.RecordMCQAnswer(1, attempt.ID, single.QuestionID, dto.MCQAnswerRequest{
		OptionIDs: correctOptionIDs(&single.Question),
	}); err != nil {
		t.Fatalf("failed to answer reading single: %v", err)
	}
	multi := byType[model.SectionReading][1]
	if _, err := env.answerService.RecordMCQAnswer(1, attempt.ID, multi.QuestionID, dto.MCQAnswerRequest{
		OptionIDs: correctOptionIDs(&multi.Question),
	}); err != nil {
		t.Fatalf("failed to answer reading multi: %v", err)
	}

	// Listening: deliberately wrong.
	listening := byType[model.SectionListening][0]
	var wrong uint
	for _, opt := range listening.Question.Options {
		if !opt.IsCorrect {
			wrong = opt.ID
			break
		}
	}
	if _, err := env.answerService.RecordMCQAnswer(1, attempt.ID, listening.QuestionID, dto.MCQAnswerRequest{
		OptionIDs: []uint{wrong},
	}); err != nil {
		t.Fatalf("failed to answer listening: %v", err)
	}

	// Speaking: both rubric keywords in the transcript, 6 raw capped at 5.
	speaking := byType[model.SectionSpeaking][0]
	audio, size := answerAudio("recorded-audio")
	if _, err := env.answerService.RecordSpeakingAnswer(
		context.Background(), 1, attempt.ID, speaking.QuestionID, audio, size, "audio/ogg", "answer.ogg"); err != nil {
		t.Fatalf("failed to answer speaking: %v", err)
	}

	// Writing: tier 5 correct, tier 6 wrong, the rest unanswered.
	writing := byType[model.SectionWriting]
	if _, err := env.answerService.RecordWritingAnswer(1, attempt.ID, writing[0].QuestionID, dto.WritingAnswerRequest{
		OutputText: "Hello\r\nWorld",
	}); err != nil {
		t.Fatalf("failed to answer writing tier 5: %v", err)
	}
	if _, err := env.answerService.RecordWritingAnswer(1, attempt.ID, writing[1].QuestionID, dto.WritingAnswerRequest{
		OutputText: "Goodbye",
	}); err != nil {
		t.Fatalf("failed to answer writing tier 6: %v", err)
	}

	result, err := env.gradingService.SubmitAndFinish(context.Background(), 1, attempt.ID)
	if err != nil {
		t.Fatalf("SubmitAndFinish failed: %v", err)
	}

	// 2 + 2 reading, 0 listening, 5 speaking, 5 writing
	if want := decimal.NewFromInt(14); !result.TotalScore.Equal(want) {
		t.Errorf("total score = %s, want %s", result.TotalScore, want)
	}
	if result.Status != model.StatusFinished {
		t.Errorf("attempt status = %s, want finished", result.Status)
	}
	if result.FinishedAt == nil {
		t.Error("attempt has no finish timestamp")
	}

	wantSections := map[string]int64{
		model.SectionReading:   4,
		model.SectionListening: 0,
		model.SectionSpeaking:  5,
		model.SectionWriting:   5,
	}
	for _, sec := range result.Sections {
		if sec.Status != model.StatusFinished {
			t.Errorf("section %s status = %s, want finished", sec.SectionType, sec.Status)
		}
		if want := decimal.NewFromInt(wantSections[sec.SectionType]); !sec.Score.Equal(want) {
			t.Errorf("section %s score = %s, want %s", sec.SectionType, sec.Score, want)
		}
	}

	qas, err := env.qaRepo.FindByAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("FindByAttempt failed: %v", err)
	}
	for _, qa := range qas {
		if !qa.IsGraded {
			t.Errorf("question attempt %d left ungraded after finish", qa.ID)
		}
	}

	ans, err := env.answerRepo.FindSpeakingByQuestionAttempt(speaking.ID)
	if err != nil || ans == nil {
		t.Fatalf("speaking answer missing: %v", err)
	}
	if ans.MatchedCount != 2 {
		t.Errorf("matched count = %d, want 2", ans.MatchedCount)
	}
	if ans.Transcript == "" {
		t.Error("transcript not stored")
	}
}

func TestSubmitFinishedAttemptIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	env.transcriber.transcript = "желі"
	exam := seedExam(t, env.db)
	attempt := startAttempt(t, env, 1, exam.ID)

	first, err := env.gradingService.SubmitAndFinish(context.Background(), 1, attempt.ID)
	if err != nil {
		t.Fatalf("first SubmitAndFinish failed: %v", err)
	}
	second, err := env.gradingService.SubmitAndFinish(context.Background(), 1, attempt.ID)
	if err != nil {
		t.Fatalf("second SubmitAndFinish failed: %v", err)
	}

	if !first.TotalScore.Equal(second.TotalScore) {
		t.Errorf("total score changed from %s to %s", first.TotalScore, second.TotalScore)
	}
	if first.FinishedAt == nil || second.FinishedAt == nil || !first.FinishedAt.Equal(*second.FinishedAt) {
		t.Errorf("finish timestamp changed from %v to %v", first.FinishedAt, second.FinishedAt)
	}
}

func TestSubmitSkipsUntranscribableSpeaking(t *testing.T) {
	env := newTestEnv(t)
	env.transcriber.err = context.DeadlineExceeded
	exam := seedExam(t, env.db)
	attempt := startAttempt(t, env, 1, exam.ID)

	byType := questionsBySectionType(t, env, attempt.ID)
	speaking := byType[model.SectionSpeaking][0]
	audio, size := answerAudio("recorded-audio")
	if _, err := env.answerService.RecordSpeakingAnswer(
		context.Background(), 1, attempt.ID, speaking.QuestionID, audio, size, "audio/ogg", "answer.ogg"); err != nil {
		t.Fatalf("failed to answer speaking: %v", err)
	}

	result, err := env.gradingService.SubmitAndFinish(context.Background(), 1, attempt.ID)
	if err != nil {
		t.Fatalf("SubmitAndFinish failed: %v", err)
	}
	if want := decimal.Zero; !result.TotalScore.Equal(want) {
		t.Errorf("total score = %s, want 0", result.TotalScore)
	}
	if result.Status != model.StatusFinished {
		t.Errorf("attempt status = %s, want finished", result.Status)
	}

	// The answered speaking question stays pending for a later grading pass;
	// everything unanswered is closed out.
	qas, err := env.qaRepo.FindByAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("FindByAttempt failed: %v", err)
	}
	for _, qa := range qas {
		if qa.ID == speaking.ID {
			if qa.IsGraded {
				t.Error("untranscribable speaking answer was written off as graded")
			}
			if !qa.IsAnswered {
				t.Error("speaking answer lost its answered flag")
			}
			continue
		}
		if !qa.IsGraded {
			t.Errorf("question attempt %d left ungraded after finish", qa.ID)
		}
	}
}
