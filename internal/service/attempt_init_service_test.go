package service

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aidyn-m/qazexam/internal/model"
)

func TestEnsureInitializedPopulatesAttempt(t *testing.T) {
	env := newTestEnv(t)
	exam := seedExam(t, env.db)

	attempt := model.ExamAttempt{UserID: 1, ExamID: exam.ID, Status: model.StatusInProgress, StartedAt: time.Now()}
	if err := env.db.Create(&attempt).Error; err != nil {
		t.Fatalf("failed to create attempt: %v", err)
	}
	if err := env.initService.EnsureInitialized(&attempt); err != nil {
		t.Fatalf("EnsureInitialized failed: %v", err)
	}

	qas, err := env.qaRepo.FindByAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("FindByAttempt failed: %v", err)
	}
	// 2 reading + 1 listening + 1 speaking + 5 writing
	if len(qas) != 9 {
		t.Fatalf("got %d question attempts, want 9", len(qas))
	}

	wantTypes := []string{
		model.SectionReading, model.SectionReading,
		model.SectionListening,
		model.SectionSpeaking,
		model.SectionWriting, model.SectionWriting, model.SectionWriting, model.SectionWriting, model.SectionWriting,
	}
	for i, qa := range qas {
		if qa.OrderInAttempt != uint(i+1) {
			t.Errorf("question %d has order %d, want %d", i, qa.OrderInAttempt, i+1)
		}
		if got := qa.SectionAttempt.Section.SectionType; got != wantTypes[i] {
			t.Errorf("question %d is in section %s, want %s", i, got, wantTypes[i])
		}
		if qa.Question.IsMCQ() && len(qa.OptionOrderIDs()) != len(qa.Question.Options) {
			t.Errorf("question %d has %d frozen options, want %d", i, len(qa.OptionOrderIDs()), len(qa.Question.Options))
		}
	}

	sas, err := env.attemptRepo.SectionAttemptsByAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("SectionAttemptsByAttempt failed: %v", err)
	}
	if len(sas) != 4 {
		t.Fatalf("got %d section attempts, want 4", len(sas))
	}

	reloaded, err := env.attemptRepo.FindByID(attempt.ID)
	if err != nil {
		t.Fatalf("failed to reload attempt: %v", err)
	}
	// 2+2 reading, 2 listening, 5 speaking, 5+6+7+8+9 writing
	if want := decimal.NewFromInt(46); !reloaded.MaxTotalScore.Equal(want) {
		t.Errorf("max total score = %s, want %s", reloaded.MaxTotalScore, want)
	}
}

func TestEnsureInitializedIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	exam := seedExam(t, env.db)

	attempt := model.ExamAttempt{UserID: 1, ExamID: exam.ID, Status: model.StatusInProgress, StartedAt: time.Now()}
	if err := env.db.Create(&attempt).Error; err != nil {
		t.Fatalf("failed to create attempt: %v", err)
	}
	if err := env.initService.EnsureInitialized(&attempt); err != nil {
		t.Fatalf("first EnsureInitialized failed: %v", err)
	}
	first, err := env.qaRepo.FindByAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("FindByAttempt failed: %v", err)
	}

	if err := env.initService.EnsureInitialized(&attempt); err != nil {
		t.Fatalf("second EnsureInitialized failed: %v", err)
	}
	second, err := env.qaRepo.FindByAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("FindByAttempt failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("question count changed from %d to %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].QuestionID != second[i].QuestionID {
			t.Errorf("question %d changed identity across calls", i)
		}
		if !reflect.DeepEqual(first[i].OptionOrderIDs(), second[i].OptionOrderIDs()) {
			t.Errorf("question %d option order changed across calls", i)
		}
	}
}

// assertUnpopulated checks the attempt has no section or question rows.
func assertUnpopulated(t *testing.T, env *testEnv, attemptID uint) {
	t.Helper()
	qas, err := env.qaRepo.FindByAttempt(attemptID)
	if err != nil {
		t.Fatalf("FindByAttempt failed: %v", err)
	}
	if len(qas) != 0 {
		t.Fatalf("got %d question attempts, want none", len(qas))
	}
	sas, err := env.attemptRepo.SectionAttemptsByAttempt(attemptID)
	if err != nil {
		t.Fatalf("SectionAttemptsByAttempt failed: %v", err)
	}
	if len(sas) != 0 {
		t.Fatalf("got %d section attempts, want none", len(sas))
	}
}

func TestMissingWritingTierLeavesAttemptUnpopulated(t *testing.T) {
	env := newTestEnv(t)
	exam := seedExam(t, env.db)

	// Knock out one tier; nothing at all may populate, so the attempt can
	// retry once the tier is restored.
	if err := env.db.Where("points = ?", 7).Delete(&model.Question{}).Error; err != nil {
		t.Fatalf("failed to delete tier question: %v", err)
	}

	attempt := model.ExamAttempt{UserID: 1, ExamID: exam.ID, Status: model.StatusInProgress, StartedAt: time.Now()}
	if err := env.db.Create(&attempt).Error; err != nil {
		t.Fatalf("failed to create attempt: %v", err)
	}
	if err := env.initService.EnsureInitialized(&attempt); err != nil {
		t.Fatalf("EnsureInitialized failed: %v", err)
	}
	assertUnpopulated(t, env, attempt.ID)

	var writingSec model.Section
	if err := env.db.Where("exam_id = ? AND section_type = ?", exam.ID, model.SectionWriting).First(&writingSec).Error; err != nil {
		t.Fatalf("failed to load writing section: %v", err)
	}
	restored := model.Question{SectionID: writingSec.ID, QuestionType: model.QuestionWriting, Prompt: "Write a program, tier 7.", Points: 7, OrderInSection: 3}
	if err := env.db.Create(&restored).Error; err != nil {
		t.Fatalf("failed to restore tier question: %v", err)
	}
	if err := env.db.Create(&model.Writing{QuestionID: restored.ID, ExpectedOutput: "Hello\nWorld"}).Error; err != nil {
		t.Fatalf("failed to restore writing key: %v", err)
	}

	if err := env.initService.EnsureInitialized(&attempt); err != nil {
		t.Fatalf("EnsureInitialized after restore failed: %v", err)
	}
	qas, err := env.qaRepo.FindByAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("FindByAttempt failed: %v", err)
	}
	if len(qas) != 9 {
		t.Errorf("got %d question attempts after restore, want 9", len(qas))
	}
}

func TestInactiveMaterialsLeaveAttemptUnpopulated(t *testing.T) {
	env := newTestEnv(t)
	exam := seedExam(t, env.db)

	if err := env.db.Model(&model.SectionMaterial{}).Where("1 = 1").Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate materials: %v", err)
	}

	attempt := model.ExamAttempt{UserID: 1, ExamID: exam.ID, Status: model.StatusInProgress, StartedAt: time.Now()}
	if err := env.db.Create(&attempt).Error; err != nil {
		t.Fatalf("failed to create attempt: %v", err)
	}
	if err := env.initService.EnsureInitialized(&attempt); err != nil {
		t.Fatalf("EnsureInitialized failed: %v", err)
	}
	assertUnpopulated(t, env, attempt.ID)

	if err := env.db.Model(&model.SectionMaterial{}).Where("1 = 1").Update("is_active", true).Error; err != nil {
		t.Fatalf("failed to reactivate materials: %v", err)
	}
	if err := env.initService.EnsureInitialized(&attempt); err != nil {
		t.Fatalf("EnsureInitialized after reactivation failed: %v", err)
	}
	qas, err := env.qaRepo.FindByAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("FindByAttempt failed: %v", err)
	}
	if len(qas) != 9 {
		t.Errorf("got %d question attempts after reactivation, want 9", len(qas))
	}
}

func TestEnsureInitializedRepairsPopulatedAttempt(t *testing.T) {
	env := newTestEnv(t)
	exam := seedExam(t, env.db)

	attempt := model.ExamAttempt{UserID: 1, ExamID: exam.ID, Status: model.StatusInProgress, StartedAt: time.Now()}
	if err := env.db.Create(&attempt).Error; err != nil {
		t.Fatalf("failed to create attempt: %v", err)
	}
	if err := env.initService.EnsureInitialized(&attempt); err != nil {
		t.Fatalf("EnsureInitialized failed: %v", err)
	}

	// Corrupt the stored maximum and add a section the population never saw.
	if err := env.db.Model(&model.ExamAttempt{}).Where("id = ?", attempt.ID).
		Update("max_total_score", decimal.Zero).Error; err != nil {
		t.Fatalf("failed to corrupt max total score: %v", err)
	}
	attempt.MaxTotalScore = decimal.Zero
	added := model.Section{ExamID: exam.ID, SectionType: model.SectionSpeaking, OrderInExam: 5}
	if err := env.db.Create(&added).Error; err != nil {
		t.Fatalf("failed to add section: %v", err)
	}

	if err := env.initService.EnsureInitialized(&attempt); err != nil {
		t.Fatalf("repair EnsureInitialized failed: %v", err)
	}

	reloaded, err := env.attemptRepo.FindByID(attempt.ID)
	if err != nil {
		t.Fatalf("failed to reload attempt: %v", err)
	}
	if want := decimal.NewFromInt(46); !reloaded.MaxTotalScore.Equal(want) {
		t.Errorf("max total score = %s, want %s", reloaded.MaxTotalScore, want)
	}
	sas, err := env.attemptRepo.SectionAttemptsByAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("SectionAttemptsByAttempt failed: %v", err)
	}
	if len(sas) != 5 {
		t.Fatalf("got %d section attempts after repair, want 5", len(sas))
	}
	found := false
	for _, sa := range sas {
		if sa.SectionID == added.ID {
			found = true
			if sa.Status != model.StatusNotStarted {
				t.Errorf("backfilled section attempt status = %s, want not_started", sa.Status)
			}
		}
	}
	if !found {
		t.Error("added section got no section attempt")
	}
}
