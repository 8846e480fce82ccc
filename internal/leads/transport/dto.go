package transport

// SubmitLeadRequest is the public form payload.
type SubmitLeadRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Email        string `json:"email" validate:"required,email,max=254"`
	WhatsApp     string `json:"whatsapp" validate:"required,min=8,max=20,phone"`
	Company      string `json:"company,omitempty" validate:"max=100"`
	BusinessType string `json:"business_type" validate:"required,oneof=salon restaurant clinic dentist spa gym retail other"`
	City         string `json:"city" validate:"required,min=2,max=100"`
	Message      string `json:"message,omitempty" validate:"max=1000"`
	UTMSource    string `json:"utm_source,omitempty" validate:"max=100"`
	UTMMedium    string `json:"utm_medium,omitempty" validate:"max=100"`
	UTMCampaign  string `json:"utm_campaign,omitempty" validate:"max=100"`
}

// SubmitLeadResponse is the data member of a successful submission.
type SubmitLeadResponse struct {
	ID        string `json:"id"`
	LeadScore int    `json:"lead_score"`
	NextSteps string `json:"next_steps"`
}

// DuplicateLeadData is attached to DUPLICATE_LEAD errors.
type DuplicateLeadData struct {
	ExistingLeadCreated string `json:"existing_lead_created"`
	Suggestion          string `json:"suggestion"`
}
