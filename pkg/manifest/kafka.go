// pkg/manifest/kafka.go
package manifest

// Kafka is the broker connection shared by the consumer and both producers.
type Kafka struct {
	Brokers []string `toml:"brokers"` // e.g., ["127.0.0.1:19092"]
	GroupID string   `toml:"group_id"`
	Topics  []string `toml:"topics"` // source topics

	// Client identity
	ClientID string `toml:"client_id"` // default: "httpsink"

	// Security
	Security *KafkaSecurity `toml:"security"`
}

type KafkaSecurity struct {
	TLS  *KafkaTLS  `toml:"tls"`
	SASL *KafkaSASL `toml:"sasl"`
}

type KafkaTLS struct {
	Enable             bool     `toml:"enable"`
	CAFiles            []string `toml:"ca_files"`
	ServerName         string   `toml:"server_name"`
	InsecureSkipVerify bool     `toml:"insecure_skip_tls_verify"`
	ClientCert         string   `toml:"client_cert"`
	ClientKey          string   `toml:"client_key"`
}

type KafkaSASL struct {
	Mechanism string `toml:"mechanism"` // "SCRAM-SHA-256" | "SCRAM-SHA-512" | "PLAIN"
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}
