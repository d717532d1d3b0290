package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB              string // connection string for the database
	NegotiateURL    string // HTTP endpoint for the provider's negotiate handshake
	ConnectionURL   string // websocket endpoint of the live timing feed
	WaitForServices string // duration to wait for other services to be ready
	LogLevel        string // sets the log level (zap log level values)
	SQLLogLevel     string // sets the log level for sql subsystem
	LogFormat       string // text vs json
	LogFilter       string // zapfilter rules for the text logger
	NatsURL         string // if set, records are relayed to this NATS server
	PublishAddr     string // listen addr for the downstream websocket publisher
	MaxReconnect    int    // max reconnect attempts before giving up (0 = unlimited)
)
