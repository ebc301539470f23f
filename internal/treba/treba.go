// Package treba prices and tracks prayer-commemoration requests.
package treba

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zapponejosh/parish-api/internal/database"
)

// MaxNames is the largest number of names one order may carry.
const MaxNames = 10

var (
	// ErrValidation marks input the caller must fix.
	ErrValidation = errors.New("invalid treba")

	// ErrUnavailable is returned for a type and period the parish does not offer.
	ErrUnavailable = errors.New("treba is not offered for this period")
)

// prices per name, in roubles.
var prices = map[database.TrebaType]map[database.TrebaPeriod]int64{
	database.TrebaHealth: {
		database.PeriodOnce:      50,
		database.PeriodWeek:      300,
		database.PeriodFortyDays: 1000,
		database.PeriodHalfYear:  3000,
		database.PeriodYear:      5000,
	},
	database.TrebaRepose: {
		database.PeriodOnce:      50,
		database.PeriodWeek:      300,
		database.PeriodFortyDays: 1000,
		database.PeriodHalfYear:  3000,
		database.PeriodYear:      5000,
	},
	database.TrebaMagpie: {
		database.PeriodFortyDays: 500,
		database.PeriodHalfYear:  2500,
		database.PeriodYear:      4000,
	},
	database.TrebaMoleben: {
		database.PeriodOnce: 200,
	},
	database.TrebaPanikhida: {
		database.PeriodOnce: 200,
	},
}

// transitions lists the statuses reachable from each status.
var transitions = map[database.TrebaStatus][]database.TrebaStatus{
	database.TrebaPending:    {database.TrebaPaid, database.TrebaCancelled},
	database.TrebaPaid:       {database.TrebaInProgress, database.TrebaCancelled},
	database.TrebaInProgress: {database.TrebaCompleted},
}

// Price returns the cost of commemorating count names.
func Price(t database.TrebaType, p database.TrebaPeriod, count int) (int64, error) {
	if !t.IsValid() {
		return 0, fmt.Errorf("%w: unknown type %q", ErrValidation, t)
	}
	if !p.IsValid() {
		return 0, fmt.Errorf("%w: unknown period %q", ErrValidation, p)
	}
	if count < 1 || count > MaxNames {
		return 0, fmt.Errorf("%w: between 1 and %d names required", ErrValidation, MaxNames)
	}
	perName, ok := prices[t][p]
	if !ok {
		return 0, fmt.Errorf("%w: %s / %s", ErrUnavailable, t, p)
	}
	return perName * int64(count), nil
}

// NormalizeNames trims names and drops empty ones.
func NormalizeNames(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.Join(strings.Fields(n), " ")
		if n != "" {
			out = append(out, n)
		}
	}
	if len(out) == 0 || len(out) > MaxNames {
		return nil, fmt.Errorf("%w: between 1 and %d names required", ErrValidation, MaxNames)
	}
	return out, nil
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to database.TrebaStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Order is what a parishioner submits.
type Order struct {
	Type   database.TrebaType   `json:"type"`
	Period database.TrebaPeriod `json:"period"`
	Names  []string             `json:"names"`
	Notes  *string              `json:"notes"`
	Email  *string              `json:"email"`
	Phone  *string              `json:"phone"`
}

// Service stores orders and enforces the status machine.
type Service struct {
	db     *database.DB
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a treba service.
func NewService(db *database.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, now: time.Now, logger: logger}
}

// Create prices and stores a new pending order.
func (s *Service) Create(ctx context.Context, o Order) (*database.Treba, error) {
	names, err := NormalizeNames(o.Names)
	if err != nil {
		return nil, err
	}
	price, err := Price(o.Type, o.Period, len(names))
	if err != nil {
		return nil, err
	}

	t := &database.Treba{
		OrderNumber: s.orderNumber(),
		Type:        o.Type,
		Period:      o.Period,
		Names:       names,
		Notes:       o.Notes,
		Email:       o.Email,
		Phone:       o.Phone,
		Price:       price,
		Status:      database.TrebaPending,
	}
	if err := s.db.CreateTreba(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("treba created",
		slog.Int64("id", t.ID),
		slog.String("order_number", t.OrderNumber),
		slog.Int64("price", t.Price),
	)
	return t, nil
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, id int64) (*database.Treba, error) {
	return s.db.GetTreba(ctx, id)
}

// GetByOrderNumber returns the order with a public number.
func (s *Service) GetByOrderNumber(ctx context.Context, number string) (*database.Treba, error) {
	return s.db.GetTrebaByOrderNumber(ctx, number)
}

// List returns orders newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, status database.TrebaStatus) ([]database.Treba, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return s.db.ListTreby(ctx, status)
}

// ChangeStatus moves an order to status to. Disallowed moves return
// database.ErrInvalidTransition.
func (s *Service) ChangeStatus(ctx context.Context, id int64, to database.TrebaStatus) (*database.Treba, error) {
	if !to.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}
	if to == database.TrebaPaid {
		return nil, fmt.Errorf("%w: use the payment endpoint to mark an order paid", database.ErrInvalidTransition)
	}

	current, err := s.db.GetTreba(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", database.ErrInvalidTransition, current.Status, to)
	}
	if err := s.db.UpdateTrebaStatus(ctx, id, current.Status, to); err != nil {
		return nil, err
	}

	s.logger.Info("treba status changed",
		slog.Int64("id", id),
		slog.String("from", string(current.Status)),
		slog.String("to", string(to)),
	)
	return s.db.GetTreba(ctx, id)
}

// RecordPayment marks a pending order paid.
func (s *Service) RecordPayment(ctx context.Context, id int64, paymentID string) (*database.Treba, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: paymentId is required", ErrValidation)
	}
	if err := s.db.MarkTrebaPaid(ctx, id, paymentID, s.now().UTC()); err != nil {
		return nil, err
	}
	s.logger.Info("treba paid", slog.Int64("id", id), slog.String("payment_id", paymentID))
	return s.db.GetTreba(ctx, id)
}

// orderNumber builds a public order number such as TR-20240405-1A2B3C4D.
func (s *Service) orderNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("TR-%s-%s", s.now().UTC().Format("20060102"), strings.ToUpper(id[:8]))
}
