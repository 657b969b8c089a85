package consumerWorker

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"chessreg/internal/dto"
	"chessreg/internal/mailer"
	"chessreg/internal/rabbit"
	"chessreg/internal/repo"
)

// Reader drains registration-created messages and mails the organizers.
// Notification delivery is kept off the request path on purpose: a slow or
// failing mailbox must not slow down or fail a registration.
type Reader struct {
	RMQ     *rabbit.Client
	repo    repo.Repository
	mailCfg mailer.Config
	done    chan struct{}
	cancel  context.CancelFunc
}

func NewReader(rmq *rabbit.Client, repo repo.Repository, mailCfg mailer.Config) *Reader {
	return &Reader{
		RMQ:     rmq,
		repo:    repo,
		mailCfg: mailCfg,
		done:    make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("registration notification reader started")

	go func() {
		defer close(r.done)

		handler := func(body []byte) error {
			var msg dto.RegistrationCreatedMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				zlog.Logger.Error().
					Err(err).
					Msgf("Failed to unmarshal message: %s", string(body))
				return err
			}

			zlog.Logger.Info().
				Str("registration_id", msg.RegistrationID).
				Str("reference_number", msg.ReferenceNumber).
				Msg("Received registration-created message")

			reg, err := r.repo.GetByID(cctx, msg.RegistrationID)
			if err != nil {
				zlog.Logger.Error().
					Err(err).
					Str("registration_id", msg.RegistrationID).
					Msg("Failed to get registration from DB in worker")
				return nil
			}

			if err := mailer.SendRegistrationNotification(&zlog.Logger, r.mailCfg, reg); err != nil {
				zlog.Logger.Warn().
					Err(err).
					Msg("Failed to send organizer notification")
			}

			return nil
		}

		if err := r.RMQ.Consume(handler); err != nil {
			zlog.Logger.Error().Err(err).Msg("Failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("registration notification reader stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
