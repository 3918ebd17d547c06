package registry

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/Vini334/ReclamaAI/internal/model"
)

// CategoryAlias lists the spellings that map to one category. Aliases are
// compared after model.Fold, so accents and case do not matter.
type CategoryAlias struct {
	Category model.ComplaintCategory `json:"category" yaml:"category"`
	Aliases  []string                `json:"aliases" yaml:"aliases"`
}

// Lexicon holds the product heuristics used by classification: keyword
// triggers for the urgency ratchet and category spelling variants.
type Lexicon struct {
	CriticalKeywords []string        `json:"critical_keywords" yaml:"critical_keywords"`
	HighKeywords     []string        `json:"high_keywords" yaml:"high_keywords"`
	CategoryAliases  []CategoryAlias `json:"category_aliases" yaml:"category_aliases"`
}

// LoadLexicon reads a lexicon from YAML (JSON is a subset and works too).
// Sections left empty in the file keep their defaults. An empty path returns
// DefaultLexicon.
func LoadLexicon(path string) (*Lexicon, error) {
	lex := DefaultLexicon()
	if path == "" {
		return lex, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read lexicon")
	}

	var file Lexicon
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal lexicon")
	}

	if len(file.CriticalKeywords) > 0 {
		lex.CriticalKeywords = file.CriticalKeywords
	}
	if len(file.HighKeywords) > 0 {
		lex.HighKeywords = file.HighKeywords
	}
	if len(file.CategoryAliases) > 0 {
		lex.CategoryAliases = file.CategoryAliases
	}
	return lex, nil
}

// DefaultLexicon returns the built-in keyword and alias lists.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		CriticalKeywords: []string{
			"procon", "processo", "justiça", "advogado", "juizado",
			"fraude", "golpe", "roubo", "clonado", "clonaram",
			"saúde", "doença", "alérgico", "vencido", "contaminado",
			"urgente", "urgência", "imediato", "hoje",
		},
		HighKeywords: []string{
			"prazo", "evento", "aniversário", "casamento", "viagem",
			"presente", "amanhã", "semana", "dias",
			"precisando", "necessito", "dependo",
		},
		CategoryAliases: []CategoryAlias{
			{model.CategoryDeliveryDelay, []string{"atraso na entrega", "atraso entrega"}},
			{model.CategoryNotDelivered, []string{"produto não entregue", "não entregue"}},
			{model.CategoryDefective, []string{"produto com defeito", "defeito"}},
			{model.CategoryNotAsDescribed, []string{"produto diferente do anunciado", "produto diferente"}},
			{model.CategoryWrongCharge, []string{"cobrança indevida"}},
			{model.CategoryRefundPending, []string{"reembolso não processado", "reembolso"}},
			{model.CategoryPoorService, []string{"atendimento ruim"}},
			{model.CategoryMarketplaceSeller, []string{"problema com vendedor (marketplace)", "problema com vendedor", "marketplace"}},
			{model.CategoryCancelDenied, []string{"cancelamento negado", "cancelamento"}},
			{model.CategoryHardToReach, []string{"dificuldade de contato", "dificuldade contato"}},
		},
	}
}
