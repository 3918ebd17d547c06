package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/Vini334/ReclamaAI/internal/model"
)

const notInformed = "não informado"

const analystSystemPromptHeader = `Você é um analista especializado em reclamações de e-commerce brasileiro.
Sua função é classificar reclamações com precisão e objetividade.

CATEGORIAS VÁLIDAS (use EXATAMENTE uma dessas):
`

const analystSystemPromptBody = `
NÍVEIS DE SENTIMENTO:
- neutro: cliente objetivo, sem emoção aparente
- insatisfeito: cliente reclamando mas controlado
- muito_insatisfeito: cliente irritado, usa CAPS LOCK, múltiplas exclamações, ameaças

NÍVEIS DE URGÊNCIA:
- baixa: problema menor, sem prazo definido
- media: cliente quer solução mas sem urgência extrema
- alta: menção a prazos, eventos, necessidade imediata
- critica: ameaça PROCON/justiça, fraude, risco à saúde, valores altos (>R$5000)

REGRAS IMPORTANTES:
1. Sempre responda em JSON válido
2. O resumo deve ter no máximo 2 frases
3. Identifique de 2 a 4 pontos-chave
4. Seja objetivo e imparcial na análise`

const classificationPromptTemplate = `Analise a seguinte reclamação e classifique-a.

**Título:** %s

**Descrição:**
%s

**Fonte:** %s
**Data:** %s

Responda EXATAMENTE neste formato JSON:
{
    "category": "<categoria exata da lista>",
    "sentiment": "<neutro|insatisfeito|muito_insatisfeito>",
    "urgency": "<baixa|media|alta|critica>",
    "summary": "<resumo objetivo em 1-2 frases>",
    "key_issues": ["<ponto 1>", "<ponto 2>", "<ponto 3>"]
}`

// AnalystSystemPrompt returns the system prompt listing the taxonomy and the
// sentiment and urgency scales. It is identical for every record.
func AnalystSystemPrompt() string {
	var b strings.Builder
	b.WriteString(analystSystemPromptHeader)
	for i, c := range model.Categories {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	b.WriteString(analystSystemPromptBody)
	return b.String()
}

// ClassificationPrompt renders the per-record user prompt.
func ClassificationPrompt(rec model.ComplaintRecord) string {
	source := string(rec.Source)
	if source == "" {
		source = notInformed
	}
	created := notInformed
	if !rec.CreatedAt.IsZero() {
		created = rec.CreatedAt.Format(time.RFC3339)
	}
	return fmt.Sprintf(classificationPromptTemplate, rec.Title, rec.Description, source, created)
}
