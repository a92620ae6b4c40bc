// Package store persists users, registrations and breakfast orders in the
// embedded SQLite database. A read-through cache (see cache.go) fronts the
// SQL store; every write invalidates it synchronously.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gruppenrun/clubbot/internal/domain"
)

const dateLayout = "2006-01-02"

// Store is the persistence contract the rest of the bot programs against.
// Writes are full replacements, last-write-wins; each call is atomic on
// its own, multi-call operations are not.
type Store interface {
	GetUser(id string) (*domain.User, error)
	SaveUser(u *domain.User) error
	ListUsers() ([]*domain.User, error)
	UserBotVersion(id string) (string, error)
	SetUserBotVersion(id, version string) error

	GetRegistration(userID string, event domain.EventKind, loc domain.Location) (*domain.Registration, error)
	PutRegistration(reg *domain.Registration) error
	DeleteRegistration(userID string, event domain.EventKind, loc domain.Location) error
	ListRegistrations(event domain.EventKind, loc domain.Location) ([]*domain.Registration, error)

	// AppendStageSelection merges new relay stage ids into the stored set
	// without touching pace or other fields.
	AppendStageSelection(userID string, stages []int) error
	UpdateStageSelection(userID string, stages []int) error
	UpdatePace(userID string, pace string) error

	GetBreakfastOrder(userID string) (*domain.BreakfastOrder, error)
	PutBreakfastOrder(o *domain.BreakfastOrder) error
	DeleteBreakfastOrder(userID string) error

	CountUsers() (int, error)
	CountRegistrations() (int, error)
}

type sqlStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// New wraps the database handle in the SQL store implementation.
func New(db *sqlx.DB) Store {
	return &sqlStore{db: db, now: time.Now}
}

type userRow struct {
	UserID       string    `db:"user_id"`
	Name         string    `db:"name"`
	Phone        string    `db:"phone"`
	Username     string    `db:"username"`
	BotVersion   string    `db:"bot_version"`
	RegisteredBy string    `db:"registered_by"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.UserID,
		Name:         r.Name,
		Phone:        r.Phone,
		Username:     r.Username,
		BotVersion:   r.BotVersion,
		RegisteredBy: r.RegisteredBy,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (s *sqlStore) GetUser(id string) (*domain.User, error) {
	var row userRow
	err := s.db.Get(&row, `SELECT * FROM users WHERE user_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.toDomain(), nil
}

func (s *sqlStore) SaveUser(u *domain.User) error {
	now := s.now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO users (user_id, name, phone, username, bot_version, registered_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			username = excluded.username,
			bot_version = excluded.bot_version,
			registered_by = excluded.registered_by,
			updated_at = excluded.updated_at`,
		u.ID, u.Name, u.Phone, u.Username, u.BotVersion, u.RegisteredBy, now, now,
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *sqlStore) ListUsers() ([]*domain.User, error) {
	var rows []userRow
	if err := s.db.Select(&rows, `SELECT * FROM users ORDER BY created_at`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]*domain.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toDomain())
	}
	return users, nil
}

func (s *sqlStore) UserBotVersion(id string) (string, error) {
	var v string
	err := s.db.Get(&v, `SELECT bot_version FROM users WHERE user_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("user bot version: %w", err)
	}
	return v, nil
}

func (s *sqlStore) SetUserBotVersion(id, version string) error {
	now := s.now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO users (user_id, bot_version, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			bot_version = excluded.bot_version,
			updated_at = excluded.updated_at`,
		id, version, now, now,
	)
	if err != nil {
		return fmt.Errorf("set user bot version: %w", err)
	}
	return nil
}

type registrationRow struct {
	UserID       string         `db:"user_id"`
	Event        string         `db:"event"`
	Location     string         `db:"location"`
	Kind         string         `db:"kind"`
	TargetDate   sql.NullString `db:"target_date"`
	TargetNumber sql.NullInt64  `db:"target_number"`
	ValidUntil   sql.NullString `db:"valid_until"`
	RegisteredAt time.Time      `db:"registered_at"`
}

func (r registrationRow) toDomain() (*domain.Registration, error) {
	reg := &domain.Registration{
		UserID:       r.UserID,
		Event:        domain.EventKind(r.Event),
		Location:     domain.Location(r.Location),
		Kind:         domain.RegistrationKind(r.Kind),
		RegisteredAt: r.RegisteredAt,
	}
	if r.TargetDate.Valid {
		d, err := time.ParseInLocation(dateLayout, r.TargetDate.String, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse target_date: %w", err)
		}
		reg.TargetDate = &d
	}
	if r.TargetNumber.Valid {
		n := int(r.TargetNumber.Int64)
		reg.TargetNumber = &n
	}
	if r.ValidUntil.Valid {
		d, err := time.ParseInLocation(dateLayout, r.ValidUntil.String, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse valid_until: %w", err)
		}
		reg.ValidUntil = &d
	}
	return reg, nil
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func (s *sqlStore) GetRegistration(userID string, event domain.EventKind, loc domain.Location) (*domain.Registration, error) {
	var row registrationRow
	err := s.db.Get(&row, `
		SELECT user_id, event, location, kind, target_date, target_number, valid_until, registered_at
		FROM registrations WHERE user_id = ? AND event = ? AND location = ?`,
		userID, string(event), string(loc),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	reg, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	if err := s.attachAttrs(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *sqlStore) attachAttrs(reg *domain.Registration) error {
	switch reg.Event {
	case domain.EventRelay:
		var row struct {
			Stages string `db:"stages"`
			Pace   string `db:"pace"`
		}
		err := s.db.Get(&row, `SELECT stages, pace FROM relay_details WHERE user_id = ?`, reg.UserID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get relay details: %w", err)
		}
		var stages []int
		if err := json.Unmarshal([]byte(row.Stages), &stages); err != nil {
			return fmt.Errorf("decode stages: %w", err)
		}
		reg.Attrs = &domain.EventAttrs{Stages: stages, Pace: row.Pace}
	case domain.EventCamp:
		var row struct {
			PaymentTier string `db:"payment_tier"`
			Diet        string `db:"diet"`
			Preferences string `db:"preferences"`
		}
		err := s.db.Get(&row, `SELECT payment_tier, diet, preferences FROM camp_details WHERE user_id = ?`, reg.UserID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get camp details: %w", err)
		}
		reg.Attrs = &domain.EventAttrs{
			PaymentTier: row.PaymentTier,
			Diet:        row.Diet,
			Preferences: row.Preferences,
		}
	}
	return nil
}

func (s *sqlStore) PutRegistration(reg *domain.Registration) error {
	registeredAt := reg.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = s.now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO registrations (user_id, event, location, kind, target_date, target_number, valid_until, registered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, event, location) DO UPDATE SET
			kind = excluded.kind,
			target_date = excluded.target_date,
			target_number = excluded.target_number,
			valid_until = excluded.valid_until,
			registered_at = excluded.registered_at`,
		reg.UserID, string(reg.Event), string(reg.Location), string(reg.Kind),
		nullDate(reg.TargetDate), nullInt(reg.TargetNumber), nullDate(reg.ValidUntil), registeredAt,
	)
	if err != nil {
		return fmt.Errorf("put registration: %w", err)
	}
	return s.putAttrs(reg)
}

func (s *sqlStore) putAttrs(reg *domain.Registration) error {
	if reg.Attrs == nil {
		return nil
	}
	switch reg.Event {
	case domain.EventRelay:
		stages := reg.Attrs.Stages
		if stages == nil {
			stages = []int{}
		}
		encoded, err := json.Marshal(stages)
		if err != nil {
			return fmt.Errorf("encode stages: %w", err)
		}
		_, err = s.db.Exec(`
			INSERT INTO relay_details (user_id, stages, pace) VALUES (?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET stages = excluded.stages, pace = excluded.pace`,
			reg.UserID, string(encoded), reg.Attrs.Pace,
		)
		if err != nil {
			return fmt.Errorf("put relay details: %w", err)
		}
	case domain.EventCamp:
		_, err := s.db.Exec(`
			INSERT INTO camp_details (user_id, payment_tier, diet, preferences) VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				payment_tier = excluded.payment_tier,
				diet = excluded.diet,
				preferences = excluded.preferences`,
			reg.UserID, reg.Attrs.PaymentTier, reg.Attrs.Diet, reg.Attrs.Preferences,
		)
		if err != nil {
			return fmt.Errorf("put camp details: %w", err)
		}
	}
	return nil
}

func (s *sqlStore) DeleteRegistration(userID string, event domain.EventKind, loc domain.Location) error {
	res, err := s.db.Exec(`DELETE FROM registrations WHERE user_id = ? AND event = ? AND location = ?`,
		userID, string(event), string(loc))
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRegistrationNotFound
	}
	switch event {
	case domain.EventRelay:
		if _, err := s.db.Exec(`DELETE FROM relay_details WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("delete relay details: %w", err)
		}
	case domain.EventCamp:
		if _, err := s.db.Exec(`DELETE FROM camp_details WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("delete camp details: %w", err)
		}
	}
	return nil
}

func (s *sqlStore) ListRegistrations(event domain.EventKind, loc domain.Location) ([]*domain.Registration, error) {
	var rows []registrationRow
	err := s.db.Select(&rows, `
		SELECT user_id, event, location, kind, target_date, target_number, valid_until, registered_at
		FROM registrations WHERE event = ? AND location = ? ORDER BY registered_at`,
		string(event), string(loc),
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	regs := make([]*domain.Registration, 0, len(rows))
	for _, row := range rows {
		reg, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		if err := s.attachAttrs(reg); err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

func (s *sqlStore) AppendStageSelection(userID string, stages []int) error {
	reg, err := s.GetRegistration(userID, domain.EventRelay, domain.LocationNone)
	if err != nil {
		return err
	}
	merged := reg.Attrs
	if merged == nil {
		merged = &domain.EventAttrs{}
	}
	for _, id := range stages {
		if !merged.HasStage(id) {
			merged.Stages = append(merged.Stages, id)
		}
	}
	return s.UpdateStageSelection(userID, merged.Stages)
}

func (s *sqlStore) UpdateStageSelection(userID string, stages []int) error {
	if stages == nil {
		stages = []int{}
	}
	encoded, err := json.Marshal(stages)
	if err != nil {
		return fmt.Errorf("encode stages: %w", err)
	}
	res, err := s.db.Exec(`UPDATE relay_details SET stages = ? WHERE user_id = ?`, string(encoded), userID)
	if err != nil {
		return fmt.Errorf("update stages: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err = s.db.Exec(`INSERT INTO relay_details (user_id, stages) VALUES (?, ?)`, userID, string(encoded))
		if err != nil {
			return fmt.Errorf("insert stages: %w", err)
		}
	}
	return nil
}

func (s *sqlStore) UpdatePace(userID string, pace string) error {
	res, err := s.db.Exec(`UPDATE relay_details SET pace = ? WHERE user_id = ?`, pace, userID)
	if err != nil {
		return fmt.Errorf("update pace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err = s.db.Exec(`INSERT INTO relay_details (user_id, pace) VALUES (?, ?)`, userID, pace)
		if err != nil {
			return fmt.Errorf("insert pace: %w", err)
		}
	}
	return nil
}

func (s *sqlStore) GetBreakfastOrder(userID string) (*domain.BreakfastOrder, error) {
	var row struct {
		UserID     string    `db:"user_id"`
		Items      string    `db:"items"`
		TotalPrice int       `db:"total_price"`
		CreatedAt  time.Time `db:"created_at"`
	}
	err := s.db.Get(&row, `SELECT user_id, items, total_price, created_at FROM breakfast_orders WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBreakfastNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get breakfast order: %w", err)
	}
	items := map[string]int{}
	if err := json.Unmarshal([]byte(row.Items), &items); err != nil {
		return nil, fmt.Errorf("decode breakfast items: %w", err)
	}
	return &domain.BreakfastOrder{
		UserID:     row.UserID,
		Items:      items,
		TotalPrice: row.TotalPrice,
		OrderedAt:  row.CreatedAt,
	}, nil
}

func (s *sqlStore) PutBreakfastOrder(o *domain.BreakfastOrder) error {
	encoded, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode breakfast items: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO breakfast_orders (user_id, items, total_price, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			items = excluded.items,
			total_price = excluded.total_price,
			created_at = excluded.created_at`,
		o.UserID, string(encoded), o.TotalPrice, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put breakfast order: %w", err)
	}
	return nil
}

func (s *sqlStore) DeleteBreakfastOrder(userID string) error {
	_, err := s.db.Exec(`DELETE FROM breakfast_orders WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete breakfast order: %w", err)
	}
	return nil
}

func (s *sqlStore) CountUsers() (int, error) {
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *sqlStore) CountRegistrations() (int, error) {
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM registrations`); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}
