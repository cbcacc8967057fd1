// Package analysis produces AI-generated clinical summaries from a patient's
// accumulated profile, records and chat history.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"doctor-portal-server/internal/config"
	"doctor-portal-server/internal/models"
)

// HealthSummary is the structured result returned to the doctor.
type HealthSummary struct {
	OverallSummary    string   `json:"overallSummary"`
	KeySymptoms       []string `json:"keySymptoms"`
	PotentialRisks    []string `json:"potentialRisks"`
	FollowUpQuestions []string `json:"followUpQuestions"`
}

// Summarizer generates a HealthSummary from formatted patient data.
type Summarizer interface {
	Summarize(ctx context.Context, patientData string) (*HealthSummary, error)
}

// ReportReader extracts text from an uploaded report file. The portal only
// lists report names in the summary context by default; a PDF-extraction
// implementation can be plugged in here.
type ReportReader interface {
	ReadText(reportPath string) (string, error)
}

const systemPrompt = `You are a helpful medical assistant AI. You analyze a comprehensive set of patient data,
including their profile, past diagnoses, prescription history, uploaded reports, and recent chat conversations.
Based on a holistic view of all this information, respond with a JSON object containing:
"overallSummary": a concise professional paragraph summarizing the patient's current situation, key conditions, and recent concerns;
"keySymptoms": key symptoms mentioned in the recent chat history or noted in the uploaded reports;
"potentialRisks": potential risks or complications the doctor should be aware of;
"followUpQuestions": 3-4 pertinent questions the doctor could ask the patient.`

// OpenAISummarizer calls the OpenAI chat completion API in JSON mode.
type OpenAISummarizer struct {
	client *openai.Client
	model  string
}

// NewOpenAISummarizer constructs a Summarizer from the application config.
func NewOpenAISummarizer(cfg config.OpenAIConfig) *OpenAISummarizer {
	return &OpenAISummarizer{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.Model,
	}
}

// Summarize sends the formatted patient data to the model and decodes the
// structured summary from its JSON response.
func (s *OpenAISummarizer) Summarize(ctx context.Context, patientData string) (*HealthSummary, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: patientData},
		},
		Temperature:    0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty completion response")
	}

	var summary HealthSummary
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	return &summary, nil
}

// FormatPatientData flattens everything known about a patient into the prompt
// context: profile, diagnoses, prescriptions, uploaded report excerpts and
// the chat transcript with their doctor. reports may be nil, in which case
// only report file names are listed.
func FormatPatientData(patient *models.Patient, messages []models.Message, reports ReportReader) string {
	var b strings.Builder

	b.WriteString("PATIENT PROFILE:\n")
	fmt.Fprintf(&b, "Name: %s\n", patient.Name)
	if patient.DateOfBirth != nil {
		fmt.Fprintf(&b, "DOB: %s\n", patient.DateOfBirth.Format("2006-01-02"))
	}
	if patient.Gender != "" {
		fmt.Fprintf(&b, "Gender: %s\n", patient.Gender)
	}
	if patient.BloodType != "" {
		fmt.Fprintf(&b, "Blood Type: %s\n", patient.BloodType)
	}
	if len(patient.Allergies) > 0 {
		fmt.Fprintf(&b, "Known Allergies: %s\n", strings.Join(patient.Allergies, ", "))
	}
	if len(patient.ChronicConditions) > 0 {
		fmt.Fprintf(&b, "Chronic Conditions: %s\n", strings.Join(patient.ChronicConditions, ", "))
	}
	b.WriteString("---\n")

	if len(patient.Diagnoses) > 0 {
		b.WriteString("PAST DIAGNOSES:\n")
		for _, d := range patient.Diagnoses {
			fmt.Fprintf(&b, "%s: findings [%s], diagnosis [%s], plan [%s]\n",
				d.Date.Format("2006-01-02"),
				strings.Join(d.ClinicalFindings, "; "),
				strings.Join(d.Diagnosis, "; "),
				strings.Join(d.Plan, "; "))
		}
		b.WriteString("---\n")
	}

	if len(patient.Prescriptions) > 0 {
		b.WriteString("PRESCRIPTION HISTORY:\n")
		for _, p := range patient.Prescriptions {
			var items []string
			for _, m := range p.Medicines {
				items = append(items, fmt.Sprintf("%s (%s)", m.Name, m.Dosage))
			}
			fmt.Fprintf(&b, "%s: %s\n", p.Date.Format("2006-01-02"), strings.Join(items, ", "))
		}
		b.WriteString("---\n")
	}

	if len(patient.Reports) > 0 {
		b.WriteString("UPLOADED REPORTS SUMMARY:\n")
		for _, reportPath := range patient.Reports {
			name := path.Base(reportPath)
			if reports == nil {
				fmt.Fprintf(&b, "--- Report: %s (contents not extracted) ---\n", name)
				continue
			}
			text, err := reports.ReadText(reportPath)
			if err != nil {
				fmt.Fprintf(&b, "--- Report: %s (error reading file) ---\n", name)
				continue
			}
			if len(text) > 2000 {
				text = text[:2000] + "..."
			}
			fmt.Fprintf(&b, "--- Report: %s ---\n%s\n--- End of Report ---\n", name, text)
		}
		b.WriteString("---\n")
	}

	if len(messages) > 0 {
		b.WriteString("RECENT CHAT HISTORY (Patient vs Doctor):\n")
		for _, msg := range messages {
			speaker := "Doctor"
			if msg.SenderID == patient.UserID {
				speaker = "Patient"
			}
			fmt.Fprintf(&b, "%s [%s]: %s\n", speaker, msg.CreatedAt.Format(time.RFC3339), msg.Content)
		}
	}

	return b.String()
}
