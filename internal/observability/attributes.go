package observability

import "go.opentelemetry.io/otel/attribute"

// Attribute keys, kept low-cardinality on purpose.
const (
	attrStatus   = "status"
	attrProvider = "provider"
	attrOutcome  = "outcome"
)

// Outcome values for image-task metrics.
const (
	OutcomeSuccess = "success"
	OutcomeMiss    = "miss"
	OutcomeError   = "error"
)

func statusAttr(status string) attribute.KeyValue {
	return attribute.String(attrStatus, status)
}

func providerAttr(provider string) attribute.KeyValue {
	return attribute.String(attrProvider, provider)
}

func outcomeAttr(outcome string) attribute.KeyValue {
	return attribute.String(attrOutcome, outcome)
}
