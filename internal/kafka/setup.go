package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/subflo/subflo/pkg/logger"
)

// EnsureKafkaTopics creates the topics the service needs if they do not
// already exist on the cluster.
func EnsureKafkaTopics(brokers []string, log *logger.Logger) error {
	requiredTopics := map[string]kafkaGo.TopicConfig{
		TopicEmailReceived: {
			Topic:             TopicEmailReceived,
			NumPartitions:     3,
			ReplicationFactor: 1,
		},
		TopicEmailParsed: {
			Topic:             TopicEmailParsed,
			NumPartitions:     3,
			ReplicationFactor: 1,
		},
		TopicSubscriptionCreated: {
			Topic:             TopicSubscriptionCreated,
			NumPartitions:     3,
			ReplicationFactor: 1,
		},
		TopicSubscriptionCancelled: {
			Topic:             TopicSubscriptionCancelled,
			NumPartitions:     2,
			ReplicationFactor: 1,
		},
	}

	log.Info("Ensuring Kafka topics exist: %v", topicNames(requiredTopics))

	if len(brokers) == 0 || brokers[0] == "" {
		return errors.New("kafka broker address is empty")
	}
	_, portStr, err := net.SplitHostPort(strings.TrimSpace(brokers[0]))
	if err != nil {
		return fmt.Errorf("invalid broker address %s: %w", brokers[0], err)
	}
	if _, err = strconv.Atoi(portStr); err != nil {
		return fmt.Errorf("invalid broker port %s: %w", brokers[0], err)
	}

	connCtx, cancelConn := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelConn()

	conn, err := kafkaGo.DialLeader(connCtx, "tcp", brokers[0], "", 0)
	if err != nil {
		log.Error("Failed to connect to Kafka broker %s: %v", brokers[0], err)
		return fmt.Errorf("kafka connection failed: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("kafka read partitions failed: %w", err)
	}

	existingTopics := make(map[string]bool)
	for _, p := range partitions {
		existingTopics[p.Topic] = true
	}

	var topicsToCreate []kafkaGo.TopicConfig
	for topicName, config := range requiredTopics {
		if !existingTopics[topicName] {
			topicsToCreate = append(topicsToCreate, config)
		}
	}

	if len(topicsToCreate) == 0 {
		log.Info("All required topics already exist")
		return nil
	}

	if err := conn.CreateTopics(topicsToCreate...); err != nil {
		if errors.Is(err, kafkaGo.TopicAlreadyExists) {
			log.Warn("One or more topics already existed during creation")
			return nil
		}
		log.Error("Failed to create topics: %v", err)
		return fmt.Errorf("kafka create topics failed: %w", err)
	}

	log.Info("Created %d Kafka topics", len(topicsToCreate))
	return nil
}

func topicNames(topicMap map[string]kafkaGo.TopicConfig) []string {
	names := make([]string, 0, len(topicMap))
	for name := range topicMap {
		names = append(names, name)
	}
	return names
}
