package model

// PublishTopic names a downstream broadcast channel. Consumers filter
// on the first element of each published record.
type PublishTopic string

const (
	PublishTopicLapInfo     PublishTopic = "lap_info"
	PublishTopicSessionInfo PublishTopic = "session_info"
	PublishTopicDriverInfo  PublishTopic = "driver_info"
)
