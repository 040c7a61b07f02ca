package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/aidyn-m/qazexam/internal/dto"
	"github.com/aidyn-m/qazexam/internal/service"
)

// maxAudioUploadBytes bounds a speaking recording upload.
const maxAudioUploadBytes = 20 << 20

type AttemptController struct {
	answerService    service.AnswerService
	gradingService   service.GradingService
	navigatorService service.NavigatorService
}

func NewAttemptController(
	answerService service.AnswerService,
	gradingService service.GradingService,
	navigatorService service.NavigatorService,
) *AttemptController {
	return &AttemptController{
		answerService:    answerService,
		gradingService:   gradingService,
		navigatorService: navigatorService,
	}
}

// respondServiceError maps service sentinel errors onto HTTP statuses.
func respondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrValidation):
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrAttemptNotActive), errors.Is(err, service.ErrAlreadyAnswered), errors.Is(err, service.ErrAttemptConflict):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: err.Error()})
	default:
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg("Unhandled service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Internal server error", Details: []string{err.Error()}})
	}
}

// GetQuestion godoc
// @Summary Get the current question of an attempt
// @Description Returns attempt progress and the question at the given zero-based index, or the first unanswered question when no index is given. An out-of-range index falls back to the first question. Marks the shown question's section as started.
// @Tags Exams & Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param user_id query int true "Acting user ID"
// @Param q query int false "Zero-based question index"
// @Success 200 {object} dto.QuestionContextDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /attempts/{attempt_id}/question [get]
func (c *AttemptController) GetQuestion(ctx *gin.Context) {
	attemptID, ok := parseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var index *int
	if raw := ctx.Query("q"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid question index format"})
			return
		}
		index = &val
	}

	context, err := c.navigatorService.BuildQuestionContext(userID, attemptID, index)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	if context.Question != nil {
		if err := c.navigatorService.MarkSectionStarted(userID, attemptID, context.Question.SectionID); err != nil {
			log.Warn().Err(err).Uint("attemptID", attemptID).Uint("sectionID", context.Question.SectionID).
				Msg("Failed to mark section started")
		}
	}
	ctx.JSON(http.StatusOK, context)
}

// RecordMCQAnswer godoc
// @Summary Record a multiple-choice answer
// @Description Replaces the selection set for an objective question. Every option id must belong to the question.
// @Tags Exams & Attempts
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param question_id path int true "Question ID"
// @Param user_id query int true "Acting user ID"
// @Param answer body dto.MCQAnswerRequest true "Chosen option ids"
// @Success 200 {object} dto.AnswerResultDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid selection"
// @Failure 404 {object} dto.ErrorResponse "Attempt or question not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt is not in progress"
// @Router /attempts/{attempt_id}/questions/{question_id}/answer [post]
func (c *AttemptController) RecordMCQAnswer(ctx *gin.Context) {
	attemptID, ok := parseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	questionID, ok := parseUintParam(ctx, "question_id")
	if !ok {
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req dto.MCQAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	result, err := c.answerService.RecordMCQAnswer(userID, attemptID, questionID, req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// RecordSpeakingAnswer godoc
// @Summary Upload a speaking answer
// @Description Stores the uploaded recording for a speaking question and marks it answered. One-shot: a second upload is rejected.
// @Tags Exams & Attempts
// @Accept multipart/form-data
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param question_id path int true "Question ID"
// @Param user_id query int true "Acting user ID"
// @Param audio formData file true "Audio recording"
// @Success 200 {object} dto.AnswerResultDTO
// @Failure 400 {object} dto.ErrorResponse "Missing audio or invalid question"
// @Failure 404 {object} dto.ErrorResponse "Attempt or question not found"
// @Failure 409 {object} dto.ErrorResponse "Already answered or attempt not in progress"
// @Router /attempts/{attempt_id}/questions/{question_id}/speaking [post]
func (c *AttemptController) RecordSpeakingAnswer(ctx *gin.Context) {
	attemptID, ok := parseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	questionID, ok := parseUintParam(ctx, "question_id")
	if !ok {
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	header, err := ctx.FormFile("audio")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Missing audio file", Details: []string{err.Error()}})
		return
	}
	if header.Size > maxAudioUploadBytes {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Audio file too large"})
		return
	}

	file, err := header.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Failed to read audio file", Details: []string{err.Error()}})
		return
	}
	defer file.Close()

	result, err := c.answerService.RecordSpeakingAnswer(
		ctx.Request.Context(), userID, attemptID, questionID,
		file, header.Size, header.Header.Get("Content-Type"), header.Filename,
	)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// RecordWritingAnswer godoc
// @Summary Submit a writing answer
// @Description Stores submitted code and program output for a writing question. One-shot: a second submission is rejected.
// @Tags Exams & Attempts
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param question_id path int true "Question ID"
// @Param user_id query int true "Acting user ID"
// @Param submission body dto.WritingAnswerRequest true "Language, code and output"
// @Success 200 {object} dto.AnswerResultDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid submission"
// @Failure 404 {object} dto.ErrorResponse "Attempt or question not found"
// @Failure 409 {object} dto.ErrorResponse "Already answered or attempt not in progress"
// @Router /attempts/{attempt_id}/questions/{question_id}/writing [post]
func (c *AttemptController) RecordWritingAnswer(ctx *gin.Context) {
	attemptID, ok := parseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	questionID, ok := parseUintParam(ctx, "question_id")
	if !ok {
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req dto.WritingAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	result, err := c.answerService.RecordWritingAnswer(userID, attemptID, questionID, req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// SubmitAttempt godoc
// @Summary Submit and finish an attempt
// @Description Grades all answers, recalculates totals and closes the attempt. Submitting a finished attempt returns its current state unchanged.
// @Tags Exams & Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param user_id query int true "Acting user ID"
// @Success 200 {object} dto.AttemptDTO
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt is not in progress"
// @Router /attempts/{attempt_id}/submit [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	attemptID, ok := parseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	attempt, err := c.gradingService.SubmitAndFinish(ctx.Request.Context(), userID, attemptID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempt)
}

// GetReview godoc
// @Summary Review a finished attempt
// @Description Returns every question with its result, answer keys included. Only finished attempts are reviewable.
// @Tags Exams & Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param user_id query int true "Acting user ID"
// @Success 200 {object} dto.ReviewDTO
// @Failure 400 {object} dto.ErrorResponse "Attempt is not finished"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /attempts/{attempt_id}/review [get]
func (c *AttemptController) GetReview(ctx *gin.Context) {
	attemptID, ok := parseUintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	review, err := c.navigatorService.BuildReviewContext(userID, attemptID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, review)
}
