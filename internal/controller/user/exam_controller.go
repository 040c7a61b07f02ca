package user

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/aidyn-m/qazexam/internal/dto"
	"github.com/aidyn-m/qazexam/internal/service"
)

type ExamController struct {
	examService service.ExamService
}

func NewExamController(examService service.ExamService) *ExamController {
	return &ExamController{examService: examService}
}

// parseUintParam reads a numeric path parameter.
func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}

// currentUserID reads the acting user from the user_id query parameter.
func currentUserID(ctx *gin.Context) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Query("user_id"), 10, 32)
	if err != nil || val == 0 {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Missing or invalid user_id query parameter"})
		return 0, false
	}
	return uint(val), true
}

// GetCatalogue godoc
// @Summary List published exams
// @Description Lists published exams with section and question counts, and whether the user already has an attempt.
// @Tags Exams & Attempts
// @Produce json
// @Param user_id query int true "Acting user ID"
// @Success 200 {array} dto.ExamSummaryDTO
// @Failure 400 {object} dto.ErrorResponse "Missing or invalid user_id"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /exams [get]
func (c *ExamController) GetCatalogue(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	exams, err := c.examService.GetCatalogue(userID)
	if err != nil {
		log.Error().Err(err).Msg("GetCatalogue: Service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to retrieve exams", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusOK, exams)
}

// GetExamDetail godoc
// @Summary Get one exam's structure
// @Description Returns the exam's sections with counts. Questions and answer keys are never exposed here.
// @Tags Exams & Attempts
// @Produce json
// @Param exam_id path int true "Exam ID"
// @Success 200 {object} dto.ExamDetailDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid exam_id format"
// @Failure 404 {object} dto.ErrorResponse "Exam not found"
// @Router /exams/{exam_id} [get]
func (c *ExamController) GetExamDetail(ctx *gin.Context) {
	examID, ok := parseUintParam(ctx, "exam_id")
	if !ok {
		return
	}

	detail, err := c.examService.GetExamDetail(examID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, detail)
}

// StartAttempt godoc
// @Summary Start or resume an attempt
// @Description Gets or creates the user's attempt on the exam and populates its question set on first start. Resuming returns the same frozen question set.
// @Tags Exams & Attempts
// @Produce json
// @Param exam_id path int true "Exam ID"
// @Param user_id query int true "Acting user ID"
// @Success 200 {object} dto.AttemptDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid input or exam has no questions"
// @Failure 404 {object} dto.ErrorResponse "Exam not found"
// @Failure 409 {object} dto.ErrorResponse "Another attempt is in progress"
// @Router /exams/{exam_id}/attempts [post]
func (c *ExamController) StartAttempt(ctx *gin.Context) {
	examID, ok := parseUintParam(ctx, "exam_id")
	if !ok {
		return
	}
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	attempt, err := c.examService.StartAttempt(userID, examID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempt)
}
