package llm

import (
	"fmt"
	"strings"

	"triage_server/core/domain"
	"triage_server/core/port/out"
)

// Request budgets per task.
const (
	singleMaxTokens   = 800
	batchMaxTokens    = 600
	repairMaxTokens   = 600
	replyMaxTokens    = 2500
	analysisMaxTokens = 1000

	replyTemperature = 0.2
)

const (
	singleClassifySystem = `Você é um classificador. Responda SOMENTE com um JSON: {"label":"produtivo|improdutivo|neutro","score":0-1}`

	batchClassifySystem = "Você é um classificador que deve retornar EXATAMENTE um JSON ARRAY, sem texto extra. " +
		"Cada item do array corresponde a uma mensagem na ordem recebida e deve ter: " +
		`{"label":"produtivo|improdutivo|neutro","score":<0-1>}.`

	repairSystem = "A saída anterior não estava no formato correto. Refaça retornando APENAS um JSON ARRAY com os campos label, score."
	repairUser   = "Reformate a saída anterior como JSON array."

	replySystem = "Você é um assistente que escreve respostas curtas e profissionais a e-mails, " +
		"contextualizando pela classificação fornecida."

	analysisSystem = "Você é um assistente que analisa múltiplos e-mails e fornece um JSON com insights."

	analysisInstructions = "Receba um ou vários e-mails e devolva EXCLUSIVAMENTE um JSON com as chaves abaixo " +
		"(sem comentários, sem texto fora do JSON):\n\n" +
		" - resumo: string com 3 a 8 frases claras e objetivas\n" +
		" - temas: lista com EXATAMENTE os 10 principais temas identificados\n" +
		"          (cada item deve ser uma frase curta representando um tópico)\n" +
		" - acoes: lista com EXATAMENTE as 5 ações mais importantes e práticas\n" +
		"          (cada item deve ser curto, direto e acionável)\n\n" +
		"Regras obrigatórias:\n" +
		" • NÃO devolva mais que 10 temas.\n" +
		" • NÃO devolva mais que 5 ações.\n" +
		" • NÃO devolva listas vazias.\n" +
		" • NÃO adicione textos fora do JSON.\n" +
		" • NÃO inclua explicações, justificativas ou observações.\n" +
		" • Se identificar muitos temas semelhantes, agrupe-os e escolha apenas os mais relevantes.\n\n" +
		"Conteúdo para análise:\n"
)

// SingleClassifyRequest asks for one {label, score} object.
func SingleClassifyRequest(text string) out.CompletionRequest {
	return out.CompletionRequest{
		SystemPrompt: singleClassifySystem,
		UserPrompt:   fmt.Sprintf("Classifique este texto:\n\n%s\n\nResposta: JSON.", text),
		MaxTokens:    singleMaxTokens,
	}
}

// BatchClassifyRequest asks for a JSON array with one object per message, in
// the order given.
func BatchClassifyRequest(messages []string) out.CompletionRequest {
	var b strings.Builder
	b.WriteString("Classifique as mensagens abaixo (mantenha a ordem):\n\n")
	b.WriteString(domain.JoinMessages(messages))
	b.WriteString("\n\nResposta: JSON array.")

	return out.CompletionRequest{
		SystemPrompt: batchClassifySystem,
		UserPrompt:   b.String(),
		MaxTokens:    batchMaxTokens,
	}
}

// RepairRequest carries only the reformat instruction. The previous output is
// not resent.
func RepairRequest() out.CompletionRequest {
	return out.CompletionRequest{
		SystemPrompt: repairSystem,
		UserPrompt:   repairUser,
		MaxTokens:    repairMaxTokens,
	}
}

// ReplyRequest asks for a short professional reply, per message when the
// text holds several.
func ReplyRequest(text, label string) out.CompletionRequest {
	user := fmt.Sprintf("Classificação: %s\n\nTexto:\n%s\n\n", label, text) +
		"Escreva uma resposta curta (2-6 sentenças).\n" +
		"Você pode ultrapassar esse limite apenas se houver 2 ou mais e-mails; " +
		"nesse caso, gere 2-6 sentenças para cada e-mail e organize as respostas separadamente dividindo os por `---`."

	return out.CompletionRequest{
		SystemPrompt: replySystem,
		UserPrompt:   user,
		MaxTokens:    replyMaxTokens,
		Temperature:  replyTemperature,
	}
}

// AnalysisRequest asks for the {resumo, temas, acoes} object.
func AnalysisRequest(text string) out.CompletionRequest {
	return out.CompletionRequest{
		SystemPrompt: analysisSystem,
		UserPrompt:   analysisInstructions + text + "\n\nRetorne SOMENTE o JSON final, nada além disso.",
		MaxTokens:    analysisMaxTokens,
	}
}
