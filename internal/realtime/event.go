package realtime

// Status of a payment as pushed to the browser.
type Status string

const (
	StatusSuccess  Status = "SUCCESS"
	StatusRejected Status = "REJECTED"
	StatusPending  Status = "PENDING"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusRejected, StatusPending:
		return true
	}
	return false
}

// Event is the JSON frame sent over the notification socket and the payload
// format of the Redis channel.
type Event struct {
	Email          string `json:"email"`
	Status         Status `json:"status"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	Message        string `json:"message,omitempty"`
}
