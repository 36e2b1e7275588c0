package http

import (
	"fmt"
	"strings"

	"triage_server/adapter/out/extract"
	"triage_server/core/domain"
	"triage_server/core/port/in"
	"triage_server/pkg/apperr"
	"triage_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// ClassifyResponse is returned by POST /classify. Classificacao is a single
// {label, score} object or an ordered list for multi-message input.
type ClassifyResponse struct {
	Classificacao any          `json:"classificacao"`
	Resposta      string       `json:"resposta"`
	Meta          ClassifyMeta `json:"meta"`
}

type ClassifyMeta struct {
	Origem           string                `json:"origem"`
	ClassificacaoRaw domain.AggregateMeta  `json:"classificacao_raw"`
	RespostaRaw      domain.GenerationMeta `json:"resposta_raw"`
}

type ClassifyHandler struct {
	extractor  in.TextExtractor
	classifier in.ClassificationService
	replier    in.ReplyService
}

func NewClassifyHandler(extractor in.TextExtractor, classifier in.ClassificationService, replier in.ReplyService) *ClassifyHandler {
	return &ClassifyHandler{
		extractor:  extractor,
		classifier: classifier,
		replier:    replier,
	}
}

func (h *ClassifyHandler) Register(app fiber.Router) {
	app.Post("/classify", h.Classify)
}

// Classify handles a pasted text or an uploaded .txt/.pdf/.mbox file.
func (h *ClassifyHandler) Classify(c *fiber.Ctx) error {
	text, err := readInput(c, h.extractor)
	if err != nil {
		return domainError(c, fiber.StatusBadRequest, fmt.Sprintf(msgExtractFailed, err.Error()), "")
	}
	if strings.TrimSpace(text) == "" {
		return domainError(c, fiber.StatusBadRequest, msgNoContent, "")
	}

	batchSize, err := batchSizeParam(c)
	if err != nil {
		return domainError(c, fiber.StatusBadRequest, msgInvalidBatch, err.Error())
	}

	ctx := requestContext(c)
	cleaned := extract.Preprocess(text)

	opts := h.classifier.Options()
	if batchSize > 0 {
		opts.MaxBatchSize = batchSize
	}

	result, err := h.classifier.Classify(ctx, cleaned, opts)
	if err != nil {
		status := fiber.StatusInternalServerError
		if apperr.IsCode(err, apperr.CodeBadRequest) {
			status = fiber.StatusBadRequest
		}
		logger.WithContext(ctx).WithError(err).Error("classification failed")
		return domainError(c, status, msgClassifyFailed, err.Error())
	}

	// 다건 입력은 라벨을 합쳐서 한 번에 답변 생성
	label := strings.Join(result.Labels(), ", ")
	reply, replyMeta := h.replier.GenerateReply(ctx, cleaned, label)

	return c.JSON(ClassifyResponse{
		Classificacao: result.Payload(),
		Resposta:      reply,
		Meta: ClassifyMeta{
			Origem:           result.Meta.Source,
			ClassificacaoRaw: result.Meta,
			RespostaRaw:      replyMeta,
		},
	})
}
