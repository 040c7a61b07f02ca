package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aidyn-m/qazexam/internal/model"
	"github.com/aidyn-m/qazexam/internal/repository"
)

// testEnv wires the full service stack over an in-memory database with fake
// storage and transcription.
type testEnv struct {
	db          *gorm.DB
	examRepo    repository.ExamRepository
	contentRepo repository.ContentRepository
	attemptRepo repository.AttemptRepository
	qaRepo      repository.QuestionAttemptRepository
	answerRepo  repository.AnswerRepository
	storage     *fakeStorage
	transcriber *fakeTranscriber

	initService      AttemptInitService
	examService      ExamService
	answerService    AnswerService
	gradingService   GradingService
	navigatorService NavigatorService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&model.Exam{}, &model.Section{}, &model.SectionMaterial{},
		&model.Question{}, &model.Option{}, &model.SpeakingRubric{}, &model.Writing{},
		&model.ExamAttempt{}, &model.SectionAttempt{}, &model.QuestionAttempt{},
		&model.MCQSelection{}, &model.SpeakingAnswer{}, &model.WritingSubmission{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	env := &testEnv{
		db:          db,
		examRepo:    repository.NewExamRepository(db),
		contentRepo: repository.NewContentRepository(db),
		attemptRepo: repository.NewAttemptRepository(db),
		qaRepo:      repository.NewQuestionAttemptRepository(db),
		answerRepo:  repository.NewAnswerRepository(db),
		storage:     newFakeStorage(),
		transcriber: &fakeTranscriber{},
	}
	rng := rand.New(rand.NewSource(1))
	env.initService = NewAttemptInitService(env.examRepo, env.contentRepo, env.attemptRepo, env.qaRepo, rng, db)
	env.examService = NewExamService(env.examRepo, env.attemptRepo, env.qaRepo, env.initService)
	env.answerService = NewAnswerService(env.attemptRepo, env.qaRepo, env.answerRepo, env.storage)
	env.gradingService = NewGradingService(env.attemptRepo, env.qaRepo, env.answerRepo, env.contentRepo, env.storage, env.transcriber, db)
	env.navigatorService = NewNavigatorService(env.attemptRepo, env.qaRepo, env.answerRepo, env.contentRepo)
	return env
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *fakeStorage) Upload(_ context.Context, objectKey string, reader io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectKey] = data
	s.types[objectKey] = contentType
	return nil
}

func (s *fakeStorage) Fetch(_ context.Context, objectKey string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[objectKey]
	if !ok {
		return nil, "", fmt.Errorf("object %s not found", objectKey)
	}
	return data, s.types[objectKey], nil
}

type fakeTranscriber struct {
	transcript string
	err        error
}

func (t *fakeTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	return t.transcript, nil
}

// seedExam creates a published four-section exam:
// reading 2 questions (2 pts each), listening 1 question (2 pts), speaking 1
// question (5 pts, rubric 3 per keyword capped at 5), writing 5 questions at
// point tiers 5..9 keyed to "Hello\nWorld".
func seedExam(t *testing.T, db *gorm.DB) *model.Exam {
	t.Helper()

	exam := model.Exam{Title: "Qazaq Language Exam", IsPublished: true}
	if err := db.Create(&exam).Error; err != nil {
		t.Fatalf("failed to seed exam: %v", err)
	}

	reading := model.Section{ExamID: exam.ID, SectionType: model.SectionReading, OrderInExam: 1}
	listening := model.Section{ExamID: exam.ID, SectionType: model.SectionListening, OrderInExam: 2}
	speaking := model.Section{ExamID: exam.ID, SectionType: model.SectionSpeaking, OrderInExam: 3}
	writing := model.Section{ExamID: exam.ID, SectionType: model.SectionWriting, OrderInExam: 4}
	for _, sec := range []*model.Section{&reading, &listening, &speaking, &writing} {
		if err := db.Create(sec).Error; err != nil {
			t.Fatalf("failed to seed section: %v", err)
		}
	}

	readingMat := model.SectionMaterial{SectionID: reading.ID, Text: "A passage about networks.", OrderInSection: 1}
	listeningMat := model.SectionMaterial{SectionID: listening.ID, AudioObjectKey: "materials/listening-1.mp3", OrderInSection: 1}
	for _, mat := range []*model.SectionMaterial{&readingMat, &listeningMat} {
		if err := db.Create(mat).Error; err != nil {
			t.Fatalf("failed to seed material: %v", err)
		}
	}

	seedMCQ(t, db, reading.ID, &readingMat.ID, model.QuestionMCQSingle, "What is a network?", 1, []bool{true, false, false})
	seedMCQ(t, db, reading.ID, &readingMat.ID, model.QuestionMCQMulti, "Pick the protocols.", 2, []bool{true, true, false})
	seedMCQ(t, db, listening.ID, &listeningMat.ID, model.QuestionMCQSingle, "What did the speaker describe?", 1, []bool{false, true, false})

	speakingQ := model.Question{
		SectionID:      speaking.ID,
		QuestionType:   model.QuestionSpeakingKeywords,
		Prompt:         "Describe a computer network.",
		Points:         5,
		OrderInSection: 1,
	}
	if err := db.Create(&speakingQ).Error; err != nil {
		t.Fatalf("failed to seed speaking question: %v", err)
	}
	keywords, _ := json.Marshal([]string{"желі", "компьютер желісі"})
	rubric := model.SpeakingRubric{QuestionID: speakingQ.ID, Keywords: keywords, PointPerKeyword: 3, MaxPoints: 5}
	if err := db.Create(&rubric).Error; err != nil {
		t.Fatalf("failed to seed rubric: %v", err)
	}

	for i, points := range []uint{5, 6, 7, 8, 9} {
		q := model.Question{
			SectionID:      writing.ID,
			QuestionType:   model.QuestionWriting,
			Prompt:         fmt.Sprintf("Write a program, tier %d.", points),
			Points:         points,
			OrderInSection: uint(i + 1),
		}
		if err := db.Create(&q).Error; err != nil {
			t.Fatalf("failed to seed writing question: %v", err)
		}
		key := model.Writing{QuestionID: q.ID, ExpectedOutput: "Hello\nWorld"}
		if err := db.Create(&key).Error; err != nil {
			t.Fatalf("failed to seed writing key: %v", err)
		}
	}

	return &exam
}

func seedMCQ(t *testing.T, db *gorm.DB, sectionID uint, materialID *uint, questionType, prompt string, order uint, correct []bool) *model.Question {
	t.Helper()

	q := model.Question{
		SectionID:         sectionID,
		SectionMaterialID: materialID,
		QuestionType:      questionType,
		Prompt:            prompt,
		Points:            2,
		OrderInSection:    order,
	}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("failed to seed question: %v", err)
	}
	for i, isCorrect := range correct {
		opt := model.Option{QuestionID: q.ID, Text: fmt.Sprintf("Option %d", i+1), IsCorrect: isCorrect}
		if err := db.Create(&opt).Error; err != nil {
			t.Fatalf("failed to seed option: %v", err)
		}
	}
	return &q
}

// startAttempt seeds an exam if needed and starts an attempt for the user.
func startAttempt(t *testing.T, env *testEnv, userID, examID uint) *model.ExamAttempt {
	t.Helper()

	if _, err := env.examService.StartAttempt(userID, examID); err != nil {
		t.Fatalf("StartAttempt failed: %v", err)
	}
	attempt, err := env.attemptRepo.FindByUserAndExam(userID, examID)
	if err != nil || attempt == nil {
		t.Fatalf("failed to reload attempt: %v", err)
	}
	return attempt
}

// answerAudio wraps audio bytes for a speaking upload.
func answerAudio(data string) (io.Reader, int64) {
	return bytes.NewReader([]byte(data)), int64(len(data))
}
