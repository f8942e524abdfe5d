package ai

// Narrative is the structured response requested from the model.
type Narrative struct {
	Reason string `json:"reason" jsonschema_description:"One or two sentences explaining why this slot suits the task"`
}
