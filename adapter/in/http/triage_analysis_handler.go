package http

import (
	"fmt"
	"strings"

	"triage_server/core/domain"
	"triage_server/core/port/in"
	"triage_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type AnalysisResponse struct {
	Analise *domain.Analysis      `json:"analise"`
	Meta    domain.GenerationMeta `json:"meta"`
}

type AnalysisHandler struct {
	extractor in.TextExtractor
	analyzer  in.AnalysisService
}

func NewAnalysisHandler(extractor in.TextExtractor, analyzer in.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{extractor: extractor, analyzer: analyzer}
}

func (h *AnalysisHandler) Register(app fiber.Router) {
	app.Post("/analise", h.Analyze)
}

// Analyze summarizes the input. The text is sent as extracted, without
// preprocessing.
func (h *AnalysisHandler) Analyze(c *fiber.Ctx) error {
	text, err := readInput(c, h.extractor)
	if err != nil {
		return domainError(c, fiber.StatusBadRequest, fmt.Sprintf(msgExtractFailed, err.Error()), "")
	}
	if strings.TrimSpace(text) == "" {
		return domainError(c, fiber.StatusBadRequest, msgNoContent, "")
	}

	ctx := requestContext(c)
	analysis, meta, err := h.analyzer.Analyze(ctx, text)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("analysis failed")
		return domainError(c, fiber.StatusInternalServerError, msgAnalysisFailed, err.Error())
	}

	return c.JSON(AnalysisResponse{Analise: analysis, Meta: meta})
}
