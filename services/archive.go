package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Dosada05/matchdesk/models"
	"github.com/Dosada05/matchdesk/storage"
)

// ResultArchiver keeps a copy of every finalized result outside the database.
// Archive and Withdraw failures are logged and never reach the caller.
type ResultArchiver interface {
	Archive(ctx context.Context, match *models.Match)
	// Withdraw removes the archived copy of a match that is no longer finalized.
	Withdraw(ctx context.Context, match *models.Match)
}

type resultArchiver struct {
	store  storage.ObjectStore
	logger *slog.Logger
}

// NewResultArchiver returns an archiver writing to store, or a no-op one when store is nil.
func NewResultArchiver(store storage.ObjectStore, logger *slog.Logger) ResultArchiver {
	if store == nil {
		return noopArchiver{}
	}
	return &resultArchiver{store: store, logger: logger}
}

func archiveKey(m *models.Match) string {
	return fmt.Sprintf("results/%s/%s/%s.json", m.TournamentID, m.RoundID, m.ID)
}

func (a *resultArchiver) Archive(ctx context.Context, match *models.Match) {
	body, err := json.Marshal(match)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to encode result for archive", matchLogAttrs(match), slog.Any("error", err))
		return
	}

	obj, err := a.store.Put(ctx, archiveKey(match), "application/json", bytes.NewReader(body))
	if err != nil {
		a.logger.WarnContext(ctx, "failed to archive finalized result", matchLogAttrs(match), slog.Any("error", err))
		return
	}
	a.logger.InfoContext(ctx, "finalized result archived", matchLogAttrs(match), slog.String("location", obj.Location))
}

func (a *resultArchiver) Withdraw(ctx context.Context, match *models.Match) {
	if err := a.store.Delete(ctx, archiveKey(match)); err != nil {
		a.logger.WarnContext(ctx, "failed to withdraw archived result", matchLogAttrs(match), slog.Any("error", err))
		return
	}
	a.logger.InfoContext(ctx, "archived result withdrawn", matchLogAttrs(match))
}

type noopArchiver struct{}

func (noopArchiver) Archive(context.Context, *models.Match) {}
func (noopArchiver) Withdraw(context.Context, *models.Match) {}
