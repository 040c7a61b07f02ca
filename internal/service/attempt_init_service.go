package service

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aidyn-m/qazexam/internal/model"
	"github.com/aidyn-m/qazexam/internal/repository"
)

// Question count and point-tier constants of the population policy.
const (
	maxMCQQuestionsPerSection = 10
)

// writingPointTiers are the point values a populated writing section draws
// from, one question per tier. If any tier has no authored question nothing
// is populated rather than a lopsided ladder.
var writingPointTiers = []uint{5, 6, 7, 8, 9}

// sectionPopulationOrder fixes the sequence question numbers are assigned in,
// independent of how sections are ordered for display.
var sectionPopulationOrder = []string{
	model.SectionReading,
	model.SectionListening,
	model.SectionSpeaking,
	model.SectionWriting,
}

// AttemptInitService populates an attempt with its frozen question set. The
// draw is random per attempt; once rows exist the attempt is never
// re-randomized.
type AttemptInitService interface {
	EnsureInitialized(attempt *model.ExamAttempt) error
}

type attemptInitService struct {
	examRepo    repository.ExamRepository
	contentRepo repository.ContentRepository
	attemptRepo repository.AttemptRepository
	qaRepo      repository.QuestionAttemptRepository
	rng         *rand.Rand
	db          *gorm.DB
}

func NewAttemptInitService(
	examRepo repository.ExamRepository,
	contentRepo repository.ContentRepository,
	attemptRepo repository.AttemptRepository,
	qaRepo repository.QuestionAttemptRepository,
	rng *rand.Rand,
	db *gorm.DB,
) AttemptInitService {
	return &attemptInitService{
		examRepo:    examRepo,
		contentRepo: contentRepo,
		attemptRepo: attemptRepo,
		qaRepo:      qaRepo,
		rng:         rng,
		db:          db,
	}
}

// plannedQuestion is one drawn question before persistence.
type plannedQuestion struct {
	question   model.Question
	materialID *uint
}

// EnsureInitialized creates the attempt's section and question rows if they
// do not exist yet. Idempotent: a populated attempt is only reconciled, never
// reshuffled. Population is all-or-nothing: a missing section or an empty
// draw leaves the attempt entirely unpopulated, so it can populate on a later
// call once the content is fixed.
func (s *attemptInitService) EnsureInitialized(attempt *model.ExamAttempt) error {
	exists, err := s.qaRepo.ExistsForAttempt(attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to check attempt %d population: %w", attempt.ID, err)
	}
	if exists {
		return s.reconcilePopulated(attempt)
	}

	exam, err := s.examRepo.FindByIDWithContent(attempt.ExamID)
	if err != nil {
		return fmt.Errorf("exam not found with ID %d: %w", attempt.ExamID, err)
	}

	sectionsByType := make(map[string]model.Section, len(exam.Sections))
	for _, sec := range exam.Sections {
		sectionsByType[sec.SectionType] = sec
	}

	// Draw the full question plan up front. Any shortfall aborts before a
	// single row is written.
	plans := make(map[uint][]plannedQuestion, len(exam.Sections))
	for _, sectionType := range sectionPopulationOrder {
		sec, ok := sectionsByType[sectionType]
		if !ok {
			log.Warn().Uint("examID", exam.ID).Str("sectionType", sectionType).
				Msg("Exam is missing a section, leaving attempt unpopulated")
			return nil
		}
		planned, err := s.planSection(sec)
		if err != nil {
			return err
		}
		if len(planned) == 0 {
			return nil
		}
		plans[sec.ID] = planned
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		sectionAttemptIDs := make(map[uint]uint, len(exam.Sections))
		sectionMax := make(map[uint]decimal.Decimal, len(exam.Sections))

		for _, sec := range exam.Sections {
			maxScore := decimal.Zero
			for _, pq := range plans[sec.ID] {
				maxScore = maxScore.Add(decimal.NewFromInt(int64(pq.question.Points)))
			}
			sa := model.SectionAttempt{
				AttemptID: attempt.ID,
				SectionID: sec.ID,
				Status:    model.StatusNotStarted,
				MaxScore:  maxScore,
			}
			if err := tx.Create(&sa).Error; err != nil {
				return fmt.Errorf("failed to create section attempt for section %d: %w", sec.ID, err)
			}
			sectionAttemptIDs[sec.ID] = sa.ID
			sectionMax[sec.ID] = maxScore
		}

		order := uint(1)
		total := decimal.Zero
		for _, sectionType := range sectionPopulationOrder {
			sec, ok := sectionsByType[sectionType]
			if !ok {
				continue
			}
			for _, pq := range plans[sec.ID] {
				qa := model.QuestionAttempt{
					SectionAttemptID:  sectionAttemptIDs[sec.ID],
					QuestionID:        pq.question.ID,
					SectionMaterialID: pq.materialID,
					OrderInAttempt:    order,
					MaxScore:          decimal.NewFromInt(int64(pq.question.Points)),
				}
				if pq.question.IsMCQ() {
					frozen, err := s.frozenOptionOrder(pq.question.Options)
					if err != nil {
						return err
					}
					qa.OptionOrder = frozen
				}
				if err := tx.Create(&qa).Error; err != nil {
					return fmt.Errorf("failed to create question attempt for question %d: %w", pq.question.ID, err)
				}
				order++
				total = total.Add(qa.MaxScore)
			}
		}

		attempt.MaxTotalScore = total
		if err := tx.Model(&model.ExamAttempt{}).
			Where("id = ?", attempt.ID).
			Update("max_total_score", total).Error; err != nil {
			return fmt.Errorf("failed to set max total score on attempt %d: %w", attempt.ID, err)
		}

		log.Info().
			Uint("attemptID", attempt.ID).
			Int("questions", int(order-1)).
			Str("maxTotalScore", total.String()).
			Msg("Populated attempt")
		return nil
	})
}

// reconcilePopulated repairs a populated attempt without reshuffling it: the
// frozen question set is the source of truth for max_total_score, and a
// section added to the exam after population gets its section attempt row.
func (s *attemptInitService) reconcilePopulated(attempt *model.ExamAttempt) error {
	qas, err := s.qaRepo.FindByAttempt(attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to load questions of attempt %d: %w", attempt.ID, err)
	}
	sas, err := s.attemptRepo.SectionAttemptsByAttempt(attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to load sections of attempt %d: %w", attempt.ID, err)
	}
	exam, err := s.examRepo.FindByIDWithContent(attempt.ExamID)
	if err != nil {
		return fmt.Errorf("exam not found with ID %d: %w", attempt.ExamID, err)
	}

	covered := make(map[uint]bool, len(sas))
	for _, sa := range sas {
		covered[sa.SectionID] = true
	}
	var missing []model.SectionAttempt
	for _, sec := range exam.Sections {
		if !covered[sec.ID] {
			missing = append(missing, model.SectionAttempt{
				AttemptID: attempt.ID,
				SectionID: sec.ID,
				Status:    model.StatusNotStarted,
			})
		}
	}
	if err := s.attemptRepo.CreateSectionAttempts(missing); err != nil {
		return fmt.Errorf("failed to backfill section attempts for attempt %d: %w", attempt.ID, err)
	}

	total := decimal.Zero
	for _, qa := range qas {
		total = total.Add(qa.MaxScore)
	}
	if !attempt.MaxTotalScore.Equal(total) {
		attempt.MaxTotalScore = total
		if err := s.db.Model(&model.ExamAttempt{}).
			Where("id = ?", attempt.ID).
			Update("max_total_score", total).Error; err != nil {
			return fmt.Errorf("failed to set max total score on attempt %d: %w", attempt.ID, err)
		}
	}
	return nil
}

// planSection draws the question set for one section according to its type.
func (s *attemptInitService) planSection(sec model.Section) ([]plannedQuestion, error) {
	switch sec.SectionType {
	case model.SectionReading, model.SectionListening:
		return s.planMCQSection(sec)
	case model.SectionSpeaking:
		return s.planSpeakingSection(sec)
	case model.SectionWriting:
		return s.planWritingSection(sec)
	default:
		return nil, fmt.Errorf("%w: unknown section type %q", ErrValidation, sec.SectionType)
	}
}

// planMCQSection picks one active material at random and takes its questions
// in authored order, capped at the per-section limit.
func (s *attemptInitService) planMCQSection(sec model.Section) ([]plannedQuestion, error) {
	materials, err := s.contentRepo.ActiveMaterials(sec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load materials for section %d: %w", sec.ID, err)
	}
	if len(materials) == 0 {
		log.Warn().Uint("sectionID", sec.ID).Str("sectionType", sec.SectionType).
			Msg("Section has no active materials, leaving attempt unpopulated")
		return nil, nil
	}

	mat := materials[s.rng.Intn(len(materials))]
	questions, err := s.contentRepo.QuestionsByMaterial(mat.ID, maxMCQQuestionsPerSection)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions for material %d: %w", mat.ID, err)
	}

	planned := make([]plannedQuestion, 0, len(questions))
	for _, q := range questions {
		if !model.QuestionTypeAllowed(sec.SectionType, q.QuestionType) {
			continue
		}
		matID := mat.ID
		planned = append(planned, plannedQuestion{question: q, materialID: &matID})
	}
	return planned, nil
}

// planSpeakingSection picks one speaking question at random.
func (s *attemptInitService) planSpeakingSection(sec model.Section) ([]plannedQuestion, error) {
	questions, err := s.contentRepo.QuestionsBySection(sec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions for section %d: %w", sec.ID, err)
	}
	var speaking []model.Question
	for _, q := range questions {
		if model.QuestionTypeAllowed(sec.SectionType, q.QuestionType) {
			speaking = append(speaking, q)
		}
	}
	if len(speaking) == 0 {
		log.Warn().Uint("sectionID", sec.ID).Msg("Speaking section has no questions, leaving attempt unpopulated")
		return nil, nil
	}
	return []plannedQuestion{{question: speaking[s.rng.Intn(len(speaking))]}}, nil
}

// planWritingSection draws one question per point tier. If any tier is empty
// the draw comes back empty, never a partial ladder.
func (s *attemptInitService) planWritingSection(sec model.Section) ([]plannedQuestion, error) {
	planned := make([]plannedQuestion, 0, len(writingPointTiers))
	for _, points := range writingPointTiers {
		candidates, err := s.contentRepo.WritingQuestionsByPoints(sec.ID, points)
		if err != nil {
			return nil, fmt.Errorf("failed to load writing questions for section %d tier %d: %w", sec.ID, points, err)
		}
		if len(candidates) == 0 {
			log.Warn().Uint("sectionID", sec.ID).Uint("points", points).
				Msg("Writing tier has no questions, leaving attempt unpopulated")
			return nil, nil
		}
		planned = append(planned, plannedQuestion{question: candidates[s.rng.Intn(len(candidates))]})
	}
	return planned, nil
}

// frozenOptionOrder shuffles the option ids once and serializes the
// permutation. It is stored on the question attempt and reused for every
// later render.
func (s *attemptInitService) frozenOptionOrder(options []model.Option) (json.RawMessage, error) {
	ids := make([]uint, 0, len(options))
	for _, opt := range options {
		ids = append(ids, opt.ID)
	}
	s.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	raw, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize option order: %w", err)
	}
	return raw, nil
}
