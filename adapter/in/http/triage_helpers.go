package http

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"triage_server/core/port/in"
	"triage_server/pkg/apperr"
	"triage_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

const (
	msgNoContent      = "Nenhum conteúdo enviado para análise."
	msgExtractFailed  = "Erro ao extrair texto: %s"
	msgInvalidBatch   = "max_batch_size inválido."
	msgClassifyFailed = "Falha na classificação."
	msgAnalysisFailed = "Falha ao gerar análise."
)

// DomainError is the body of a failed /classify or /analise call.
type DomainError struct {
	Erro    string `json:"erro"`
	Detalhe string `json:"detalhe,omitempty"`
}

func domainError(c *fiber.Ctx, status int, erro, detalhe string) error {
	return c.Status(status).JSON(DomainError{Erro: erro, Detalhe: detalhe})
}

// requestContext carries the request ID into service logs.
func requestContext(c *fiber.Ctx) context.Context {
	requestID, _ := c.Locals("request_id").(string)
	return logger.ContextWithRequestID(c.UserContext(), requestID)
}

// readInput returns the uploaded file's text when a file is sent, the "text"
// form field otherwise. Only extraction failures are errors.
func readInput(c *fiber.Ctx, extractor in.TextExtractor) (string, error) {
	fh, err := c.FormFile("file")
	if err != nil || fh == nil {
		return c.FormValue("text"), nil
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	return extractor.Extract(data, fh.Filename)
}

// batchSizeParam parses the optional max_batch_size field. Zero means unset.
func batchSizeParam(c *fiber.Ctx) (int, error) {
	raw := strings.TrimSpace(c.FormValue("max_batch_size"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperr.BadRequest("max_batch_size must be a positive integer").WithDetail("value", raw)
	}
	return n, nil
}
