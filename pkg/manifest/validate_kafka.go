// pkg/manifest/validate_kafka.go
package manifest

import "strings"

func (c *Config) validateKafka() error {
	k := &c.Kafka

	if len(k.Brokers) == 0 {
		return badOption("kafka.brokers", "required")
	}
	for _, b := range k.Brokers {
		if strings.TrimSpace(b) == "" {
			return badOption("kafka.brokers", "blank broker address")
		}
	}
	if strings.TrimSpace(k.GroupID) == "" {
		return badOption("kafka.group_id", "required")
	}
	if len(k.Topics) == 0 {
		return badOption("kafka.topics", "at least one source topic required")
	}
	for _, t := range k.Topics {
		if strings.TrimSpace(t) == "" {
			return badOption("kafka.topics", "blank topic name")
		}
	}
	if strings.TrimSpace(k.ClientID) == "" {
		k.ClientID = "httpsink"
	}

	if k.Security != nil && k.Security.TLS != nil && k.Security.TLS.Enable {
		t := k.Security.TLS
		if len(t.CAFiles) == 0 {
			return badOption("kafka.security.tls.ca_files", "required when enable=true")
		}
		if strings.TrimSpace(t.ServerName) == "" && !t.InsecureSkipVerify {
			return badOption("kafka.security.tls.server_name", "required unless insecure_skip_tls_verify=true")
		}
		if (strings.TrimSpace(t.ClientCert) != "" && strings.TrimSpace(t.ClientKey) == "") ||
			(strings.TrimSpace(t.ClientKey) != "" && strings.TrimSpace(t.ClientCert) == "") {
			return badOption("kafka.security.tls", "client_cert and client_key must be provided together")
		}
	}
	if k.Security != nil && k.Security.SASL != nil {
		m := strings.ToUpper(strings.TrimSpace(k.Security.SASL.Mechanism))
		switch m {
		case "SCRAM-SHA-256", "SCRAM-SHA-512", "PLAIN":
			if k.Security.SASL.Username == "" || k.Security.SASL.Password == "" {
				return badOption("kafka.security.sasl", "username/password required")
			}
			k.Security.SASL.Mechanism = m
		case "":
		default:
			return badOption("kafka.security.sasl.mechanism", "%q invalid", k.Security.SASL.Mechanism)
		}
	}
	return nil
}
