package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/Vini334/ReclamaAI/internal/model"
)

// teamsFile is the on-disk layout of a teams fixture. Both a wrapped
// {"teams": [...]} document and a bare array are accepted.
type teamsFile struct {
	Teams []model.Team `json:"teams" yaml:"teams"`
}

// LoadTeams reads team definitions from a JSON or YAML file, chosen by
// extension. An empty path returns DefaultTeams.
func LoadTeams(path string) ([]model.Team, error) {
	if path == "" {
		return DefaultTeams(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read teams fixture")
	}

	teams, err := decodeTeams(path, data)
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return nil, eris.Errorf("registry: no teams defined in %s", path)
	}
	for i, t := range teams {
		if t.ID == "" || t.Name == "" {
			return nil, eris.Errorf("registry: team %d in %s is missing id or name", i, path)
		}
	}

	return teams, nil
}

func decodeTeams(path string, data []byte) ([]model.Team, error) {
	trimmed := strings.TrimSpace(string(data))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if strings.HasPrefix(trimmed, "-") {
			var teams []model.Team
			if err := yaml.Unmarshal(data, &teams); err != nil {
				return nil, eris.Wrap(err, "registry: unmarshal teams yaml")
			}
			return teams, nil
		}
		var f teamsFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrap(err, "registry: unmarshal teams yaml")
		}
		return f.Teams, nil
	default:
		if strings.HasPrefix(trimmed, "[") {
			var teams []model.Team
			if err := json.Unmarshal(data, &teams); err != nil {
				return nil, eris.Wrap(err, "registry: unmarshal teams json")
			}
			return teams, nil
		}
		var f teamsFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrap(err, "registry: unmarshal teams json")
		}
		return f.Teams, nil
	}
}

// DefaultTeams returns the built-in TechNova support teams. Every category
// of the taxonomy is owned by exactly one team.
func DefaultTeams() []model.Team {
	return []model.Team{
		{
			ID:          "logistica",
			Name:        "Logística e Entregas",
			Email:       "logistica@technova.com",
			Manager:     "Carla Mendes",
			Description: "Acompanha pedidos em trânsito, transportadoras e extravios.",
			Responsibilities: []string{
				"rastreamento de pedidos",
				"negociação com transportadoras",
				"reenvio de mercadorias extraviadas",
				"prazos de entrega",
			},
			Categories: []string{string(model.CategoryDeliveryDelay), string(model.CategoryNotDelivered)},
			SLAHours: map[model.Urgency]int{
				model.UrgencyCritical: 4, model.UrgencyHigh: 12, model.UrgencyMedium: 24, model.UrgencyLow: 48,
			},
			ExampleCases: []string{"Pedido parado há 10 dias na transportadora", "Entrega confirmada mas não recebida"},
		},
		{
			ID:          "qualidade",
			Name:        "Qualidade de Produto",
			Email:       "qualidade@technova.com",
			Manager:     "Rafael Souza",
			Description: "Trata defeitos, trocas e divergências entre anúncio e produto.",
			Responsibilities: []string{
				"análise de defeitos",
				"trocas e devoluções",
				"conferência de anúncios",
			},
			Categories: []string{string(model.CategoryDefective), string(model.CategoryNotAsDescribed)},
			SLAHours: map[model.Urgency]int{
				model.UrgencyCritical: 8, model.UrgencyHigh: 24, model.UrgencyMedium: 48, model.UrgencyLow: 72,
			},
			ExampleCases: []string{"Notebook chegou com tela quebrada", "Cor diferente da anunciada"},
		},
		{
			ID:          "financeiro",
			Name:        "Financeiro",
			Email:       "financeiro@technova.com",
			Manager:     "Juliana Costa",
			Description: "Resolve cobranças, estornos e reembolsos.",
			Responsibilities: []string{
				"estornos no cartão",
				"reembolsos via PIX e boleto",
				"contestação de cobranças",
			},
			Categories: []string{string(model.CategoryWrongCharge), string(model.CategoryRefundPending)},
			SLAHours: map[model.Urgency]int{
				model.UrgencyCritical: 4, model.UrgencyHigh: 12, model.UrgencyMedium: 24, model.UrgencyLow: 72,
			},
			ExampleCases: []string{"Cobrança em duplicidade na fatura", "Reembolso prometido há 30 dias"},
		},
		{
			ID:          "marketplace",
			Name:        "Gestão de Marketplace",
			Email:       "marketplace@technova.com",
			Manager:     "Bruno Lima",
			Description: "Media conflitos entre clientes e vendedores parceiros.",
			Responsibilities: []string{
				"mediação com vendedores",
				"suspensão de lojistas",
				"garantia de compra",
			},
			Categories: []string{string(model.CategoryMarketplaceSeller)},
			SLAHours: map[model.Urgency]int{
				model.UrgencyCritical: 8, model.UrgencyHigh: 24, model.UrgencyMedium: 48, model.UrgencyLow: 96,
			},
			ExampleCases: []string{"Vendedor não responde há uma semana"},
		},
		{
			ID:          "atendimento-n2",
			Name:        "Atendimento N2",
			Email:       "atendimento.n2@technova.com",
			Manager:     "Patrícia Alves",
			Description: "Segundo nível de atendimento, cancelamentos e casos sem dono.",
			Responsibilities: []string{
				"casos escalados do N1",
				"cancelamentos",
				"recuperação de clientes",
				"qualidade do atendimento",
			},
			Categories: []string{
				string(model.CategoryPoorService),
				string(model.CategoryCancelDenied),
				string(model.CategoryHardToReach),
			},
			SLAHours: map[model.Urgency]int{
				model.UrgencyCritical: 2, model.UrgencyHigh: 8, model.UrgencyMedium: 24, model.UrgencyLow: 48,
			},
			ExampleCases: []string{"Atendente encerrou o chat sem resolver", "Cancelamento recusado dentro do prazo"},
		},
	}
}
