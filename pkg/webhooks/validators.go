package webhooks

// OnUpdatePayload is the body the integration platform sends when a single
// external record's fields change. The key casing is the platform's wire
// contract, not ours.
type OnUpdatePayload struct {
	ExternalRecordID string     `json:"externalRecordId" validate:"required"`
	Data             UpdateData `json:"data" validate:"required"`
	InstanceKey      string     `json:"instanceKey" validate:"required"`
}

type UpdateData struct {
	Fields map[string]interface{} `json:"fields" validate:"required"`
}
