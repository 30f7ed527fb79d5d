package service

import (
	"context"
	"encoding/json"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/totegamma/mediadb/internal/domain"
)

// SignalService fans record events out over redis pub/sub.
type SignalService struct {
	rdb     *redis.Client
	channel string
	logger  hclog.Logger
}

func NewSignalService(redisClient *redis.Client, channel string, logger hclog.Logger) *SignalService {
	return &SignalService{
		rdb:     redisClient,
		channel: channel,
		logger:  logger.Named("signal"),
	}
}

func (s *SignalService) Publish(ctx context.Context, event domain.RecordEvent) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, s.channel, jsonstr).Err()
	if err != nil {
		return errors.Wrap(err, "publish record event")
	}

	return nil
}

// Realtime forwards events matching the latest prefixes received on request to response
// until ctx is done. It never closes response.
func (s *SignalService) Realtime(ctx context.Context, request <-chan []string, response chan<- domain.RecordEvent) {
	pubsub := s.rdb.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	messages := pubsub.Channel()
	var prefixes []string

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-request:
			if !ok {
				return
			}
			prefixes = p
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var event domain.RecordEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.logger.Warn("dropping malformed event", "error", err)
				continue
			}
			if !event.Matches(prefixes) {
				continue
			}

			select {
			case response <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
