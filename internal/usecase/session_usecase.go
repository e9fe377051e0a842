package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"tableorder/internal/domain/model"
	repo "tableorder/internal/repository"
)

// SessionUsecase はQRコードからテーブルセッションを発行し、トークンを解決する。
type SessionUsecase struct {
	tables   repo.TableRepository
	sessions repo.SessionRepository
	ids      IDGenerator
	clock    Clock
	ttl      time.Duration
}

func NewSessionUsecase(tables repo.TableRepository, sessions repo.SessionRepository, ids IDGenerator, clock Clock, ttl time.Duration) *SessionUsecase {
	return &SessionUsecase{tables: tables, sessions: sessions, ids: ids, clock: clock, ttl: ttl}
}

type BindSessionInput struct {
	QRValue string `json:"qr_value"`
}

type SessionOutput struct {
	Token       string    `json:"token"`
	TableNumber int       `json:"table_number"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (u *SessionUsecase) Bind(ctx context.Context, in BindSessionInput) (SessionOutput, error) {
	qr := strings.TrimSpace(in.QRValue)
	if qr == "" || len(qr) > 128 {
		return SessionOutput{}, NewHTTPError(http.StatusBadRequest, "invalid qr_value")
	}

	t, err := u.tables.FindByQRCode(ctx, qr)
	if errors.Is(err, repo.ErrNotFound) {
		return SessionOutput{}, NewHTTPError(http.StatusNotFound, "table not found")
	}
	if err != nil {
		return SessionOutput{}, dbError()
	}

	sess := model.TableSession{
		Token:       u.ids.NewID(),
		TableNumber: t.Number,
		ExpiresAt:   u.clock.Now().Add(u.ttl),
	}
	if err := u.sessions.Save(ctx, sess); err != nil {
		return SessionOutput{}, NewHTTPError(http.StatusInternalServerError, "session store error")
	}

	return SessionOutput{Token: sess.Token, TableNumber: sess.TableNumber, ExpiresAt: sess.ExpiresAt}, nil
}

// 無効・期限切れはどちらも401
func (u *SessionUsecase) Resolve(ctx context.Context, token string) (model.TableSession, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.TableSession{}, NewHTTPError(http.StatusUnauthorized, "session token required")
	}

	sess, err := u.sessions.FindByToken(ctx, token)
	if errors.Is(err, repo.ErrNotFound) {
		return model.TableSession{}, NewHTTPError(http.StatusUnauthorized, "invalid or expired session")
	}
	if err != nil {
		return model.TableSession{}, NewHTTPError(http.StatusInternalServerError, "session store error")
	}
	if !sess.ExpiresAt.After(u.clock.Now()) {
		return model.TableSession{}, NewHTTPError(http.StatusUnauthorized, "invalid or expired session")
	}
	return sess, nil
}
