package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
	"github.com/cain76/finderskeepers-v2-sub001/internal/sched"
)

// History — читающая сторона архива урегулированных batch'ей.
// Реализуется repo.HistoryRepo; nil, если БД не сконфигурирована.
type History interface {
	ListRecent(ctx context.Context, limit int) ([]domain.BatchRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchRecord, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	manager *sched.Manager
	history History
	logger  *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Manager *sched.Manager
	History History // опционально
	Logger  *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		manager: cfg.Manager,
		history: cfg.History,
		logger:  cfg.Logger,
	}
}
