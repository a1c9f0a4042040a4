package monitor

type HttpRequestLabels struct {
	Status string
	Route  string
	Method string
}

type DBQueryLabels struct {
	QueryType string
}

type ProviderQueryLabels struct {
	Status     string
	StatusCode string
	Phase      string
}

func (p ProviderQueryLabels) ToMap() map[string]string {
	return map[string]string{
		"status":      p.Status,
		"status_code": p.StatusCode,
		"phase":       p.Phase,
	}
}

var ProviderQueryLabelNames = []string{"status", "status_code", "phase"}

type NotificationLabels struct {
	Channel string
	Kind    string
	Outcome string
}

func (n NotificationLabels) ToMap() map[string]string {
	return map[string]string{
		"channel": n.Channel,
		"kind":    n.Kind,
		"outcome": n.Outcome,
	}
}

var NotificationLabelNames = []string{"channel", "kind", "outcome"}
