package user

// VerificationInput represents the identity evidence a student submits.
type VerificationInput struct {
	Institution string `json:"institution" validate:"required,max=200"`
	IDCardURL   string `json:"id_card_url" validate:"omitempty,url"`
}

// DecisionInput represents an administrator verdict.
type DecisionInput struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected APPROVED REJECTED"`
}
