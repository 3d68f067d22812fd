package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/cybernerd/agriconnect/internal/messaging/kafka"
)

// initKafkaProducer поднимает Kafka producer по списку брокеров через запятую.
// Пустой список означает работу без Kafka: возвращается nil, nil, и события
// остаются в outbox до появления брокеров.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	var brokerList []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokerList = append(brokerList, b)
		}
	}
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("не удалось создать kafka producer, продолжаем без kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer инициализирован")
	return producer, nil
}

func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("ошибка при закрытии kafka producer")
		return
	}
	logger.Info("kafka producer закрыт")
}
