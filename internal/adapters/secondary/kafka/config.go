package kafka

import (
	"strings"

	"github.com/IBM/sarama"
)

// Config конфигурация для Kafka producer/consumer
type Config struct {
	Brokers          string `envconfig:"BROKERS"`                              // "broker1:9092,broker2:9092"
	Topic            string `envconfig:"TOPIC" default:"tarot.inbound-events"` // топик входящих событий
	ConsumerGroup    string `envconfig:"CONSUMER_GROUP" default:"tarot-bot"`   // consumer group (только для consumer)
	SecurityProtocol string `envconfig:"SECURITY_PROTOCOL"`                    // "SASL_SSL", "PLAINTEXT"
	SASLMechanism    string `envconfig:"SASL_MECHANISM"`                       // "PLAIN", "SCRAM-SHA-256"
	SASLUsername     string `envconfig:"SASL_USERNAME"`
	SASLPassword     string `envconfig:"SASL_PASSWORD"`
}

// GetBrokers возвращает список брокеров из строки
func (c *Config) GetBrokers() []string {
	if c.Brokers == "" {
		return []string{"localhost:9092"}
	}
	return strings.Split(c.Brokers, ",")
}

// NewSaramaConfig базовая конфигурация sarama с настройками безопасности
func (c *Config) NewSaramaConfig() *sarama.Config {
	config := sarama.NewConfig()

	if c.SecurityProtocol == "SASL_SSL" || c.SecurityProtocol == "SASL_PLAINTEXT" {
		config.Net.SASL.Enable = true
		config.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		if c.SASLMechanism == "SCRAM-SHA-256" {
			config.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		}
		config.Net.SASL.User = c.SASLUsername
		config.Net.SASL.Password = c.SASLPassword
		// TLS только для SASL_SSL
		if c.SecurityProtocol == "SASL_SSL" {
			config.Net.TLS.Enable = true
		}
	}
	return config
}
