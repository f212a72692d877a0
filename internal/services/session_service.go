package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"newsgenie/internal/config"
	"newsgenie/internal/models"
	"newsgenie/internal/pkg/logger"
)

// SessionService owns conversation history on behalf of the UI layer. The
// workflow core never touches this store: the handler loads history before
// an invocation and appends the two new turns afterwards.
type SessionService struct {
	client *redis.Client
	config config.RedisConfig
	logger *logger.Logger
}

func NewSessionService(cfg config.RedisConfig, log *logger.Logger) (*SessionService, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	opt.PoolSize = cfg.PoolSize
	opt.DialTimeout = cfg.DialTimeout
	opt.ReadTimeout = cfg.ReadTimeout
	opt.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opt)

	service := &SessionService{
		client: client,
		config: cfg,
		logger: log,
	}

	if err := service.connectWithRetry(); err != nil {
		return nil, fmt.Errorf("connection to Redis failed: %w", err)
	}

	log.Info("Session service initialized",
		"url", cfg.URL,
		"pool_size", cfg.PoolSize,
		"session_ttl", cfg.SessionTTL,
		"max_turns", cfg.MaxTurns)

	return service, nil
}

// connectWithRetry verifies connectivity at startup with bounded backoff.
// This is the only retry in the repository; workflow-time calls fail fast.
func (service *SessionService) connectWithRetry() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, service.client.Ping(ctx).Err()
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(5))

	return err
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s:history", sessionID)
}

// GetHistory returns the stored turns for a session, oldest first. A missing
// session reads back as an empty history.
func (service *SessionService) GetHistory(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	startTime := time.Now()
	key := sessionKey(sessionID)

	entries, err := service.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		service.logger.LogService("session", "get_history", time.Since(startTime), map[string]any{
			"session_id": sessionID,
		}, err)
		return nil, models.NewExternalError("SESSION_GET_FAILED", "failed to load session history").WithCause(err)
	}

	history := make([]models.ConversationTurn, 0, len(entries))
	for _, entry := range entries {
		var turn models.ConversationTurn
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			service.logger.WithError(err).Warn("skipping malformed session turn")
			continue
		}
		history = append(history, turn)
	}

	service.logger.LogService("session", "get_history", time.Since(startTime), map[string]any{
		"session_id": sessionID,
		"turns":      len(history),
	}, nil)

	return history, nil
}

// AppendExchange appends one user/assistant pair, trims the history to the
// configured cap and refreshes the session TTL.
func (service *SessionService) AppendExchange(ctx context.Context, sessionID string, turns []models.ConversationTurn) error {
	startTime := time.Now()
	key := sessionKey(sessionID)

	encoded := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return models.NewInternalError("SESSION_ENCODE_FAILED", "failed to encode turn").WithCause(err)
		}
		encoded = append(encoded, data)
	}

	pipe := service.client.Pipeline()
	pipe.RPush(ctx, key, encoded...)
	pipe.LTrim(ctx, key, int64(-service.config.MaxTurns), -1)
	pipe.Expire(ctx, key, service.config.SessionTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		service.logger.LogService("session", "append_exchange", time.Since(startTime), map[string]any{
			"session_id": sessionID,
		}, err)
		return models.NewExternalError("SESSION_APPEND_FAILED", "failed to append session turns").WithCause(err)
	}

	service.logger.LogService("session", "append_exchange", time.Since(startTime), map[string]any{
		"session_id":  sessionID,
		"turns_added": len(turns),
		"history_cap": service.config.MaxTurns,
		"session_ttl": service.config.SessionTTL.String(),
	}, nil)

	return nil
}

func (service *SessionService) ClearSession(ctx context.Context, sessionID string) error {
	if err := service.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return models.NewExternalError("SESSION_CLEAR_FAILED", "failed to clear session").WithCause(err)
	}
	return nil
}

func (service *SessionService) HealthCheck(ctx context.Context) error {
	if err := service.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("session store unhealthy: %w", err)
	}
	return nil
}

func (service *SessionService) Close() error {
	service.logger.Info("Session service closing")
	return service.client.Close()
}
