package collector

import (
	"encoding/json"
	"time"

	"github.com/Vini334/ReclamaAI/internal/model"
)

type reclameAquiExport struct {
	Company struct {
		Name string `json:"name"`
	} `json:"company"`
	Complaints []struct {
		ExternalID      string `json:"external_id"`
		Title           string `json:"title"`
		Description     string `json:"description"`
		ConsumerName    string `json:"consumer_name"`
		CreatedAt       string `json:"created_at"`
		City            string `json:"city"`
		State           string `json:"state"`
		ProductCategory string `json:"product_category"`
		Status          string `json:"status"`
	} `json:"complaints"`
}

func decodeReclameAqui(data []byte, now time.Time) ([]model.ComplaintRecord, error) {
	var exp reclameAquiExport
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, err
	}
	out := make([]model.ComplaintRecord, 0, len(exp.Complaints))
	for _, it := range exp.Complaints {
		out = append(out, model.ComplaintRecord{
			ExternalID:      it.ExternalID,
			Source:          model.SourceReclameAqui,
			CompanyName:     exp.Company.Name,
			Title:           it.Title,
			Description:     it.Description,
			ConsumerName:    it.ConsumerName,
			CreatedAt:       parseTimestamp(it.CreatedAt, now),
			Channel:         "Reclame Aqui",
			City:            it.City,
			State:           it.State,
			ProductCategory: it.ProductCategory,
			Status:          it.Status,
		}.WithDefaults(now))
	}
	return out, nil
}

type jiraExport struct {
	Issues []struct {
		ExternalID  string `json:"external_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Reporter    string `json:"reporter"`
		CreatedAt   string `json:"created_at"`
		Status      string `json:"status"`
	} `json:"issues"`
}

func decodeJira(data []byte, now time.Time) ([]model.ComplaintRecord, error) {
	var exp jiraExport
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, err
	}
	out := make([]model.ComplaintRecord, 0, len(exp.Issues))
	for _, it := range exp.Issues {
		reporter := it.Reporter
		if reporter == "" {
			reporter = "Não informado"
		}
		status := it.Status
		if status == "" {
			status = "Open"
		}
		out = append(out, model.ComplaintRecord{
			ExternalID:   it.ExternalID,
			Source:       model.SourceJira,
			Title:        it.Title,
			Description:  it.Description,
			ConsumerName: reporter,
			CreatedAt:    parseTimestamp(it.CreatedAt, now),
			Channel:      "Jira",
			Status:       status,
		}.WithDefaults(now))
	}
	return out, nil
}

// transcript is shared by the chat and phone exports.
type transcript struct {
	ExternalID    string `json:"external_id"`
	Channel       string `json:"channel"`
	Title         string `json:"title"`
	Transcript    string `json:"transcript"`
	ConsumerName  string `json:"consumer_name"`
	ConsumerPhone string `json:"consumer_phone"`
	CreatedAt     string `json:"created_at"`
	City          string `json:"city"`
	State         string `json:"state"`
	Status        string `json:"status"`
}

type transcriptExport struct {
	Transcripts []transcript `json:"transcripts"`
}

func (t transcript) record(source model.ComplaintSource, channel string, now time.Time) model.ComplaintRecord {
	status := t.Status
	if status == "" {
		status = "Aberta"
	}
	return model.ComplaintRecord{
		ExternalID:      t.ExternalID,
		Source:          source,
		Title:           t.Title,
		Description:     t.Transcript,
		ConsumerName:    t.ConsumerName,
		ConsumerContact: t.ConsumerPhone,
		CreatedAt:       parseTimestamp(t.CreatedAt, now),
		Channel:         channel,
		City:            t.City,
		State:           t.State,
		Status:          status,
	}.WithDefaults(now)
}

// decodeChat splits the chat export: WhatsApp conversations get their own
// source, everything else is web chat.
func decodeChat(data []byte, now time.Time) ([]model.ComplaintRecord, error) {
	var exp transcriptExport
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, err
	}
	out := make([]model.ComplaintRecord, 0, len(exp.Transcripts))
	for _, it := range exp.Transcripts {
		source := model.SourceChat
		if it.Channel == "WhatsApp" {
			source = model.SourceWhatsApp
		}
		channel := it.Channel
		if channel == "" {
			channel = "Chat"
		}
		out = append(out, it.record(source, channel, now))
	}
	return out, nil
}

func decodePhone(data []byte, now time.Time) ([]model.ComplaintRecord, error) {
	var exp transcriptExport
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, err
	}
	out := make([]model.ComplaintRecord, 0, len(exp.Transcripts))
	for _, it := range exp.Transcripts {
		out = append(out, it.record(model.SourcePhone, "Telefone", now))
	}
	return out, nil
}

type emailExport struct {
	Emails []struct {
		ExternalID   string `json:"external_id"`
		From         string `json:"from"`
		Subject      string `json:"subject"`
		Body         string `json:"body"`
		ConsumerName string `json:"consumer_name"`
		CreatedAt    string `json:"created_at"`
		City         string `json:"city"`
		State        string `json:"state"`
		Status       string `json:"status"`
	} `json:"emails"`
}

func decodeEmail(data []byte, now time.Time) ([]model.ComplaintRecord, error) {
	var exp emailExport
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, err
	}
	out := make([]model.ComplaintRecord, 0, len(exp.Emails))
	for _, it := range exp.Emails {
		status := it.Status
		if status == "" {
			status = "Não Lida"
		}
		out = append(out, model.ComplaintRecord{
			ExternalID:      it.ExternalID,
			Source:          model.SourceEmail,
			Title:           it.Subject,
			Description:     it.Body,
			ConsumerName:    it.ConsumerName,
			ConsumerContact: it.From,
			CreatedAt:       parseTimestamp(it.CreatedAt, now),
			Channel:         "Email",
			City:            it.City,
			State:           it.State,
			Status:          status,
		}.WithDefaults(now))
	}
	return out, nil
}
