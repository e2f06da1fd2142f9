// README: Agent store backed by PostgreSQL; live positions in Redis GEO.
package delivery

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const agentGeoKey = "delivery:agents"

type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewStore(db *pgxpool.Pool, redis *redis.Client) *Store {
	return &Store{db: db, redis: redis}
}

func (s *Store) CreateAgent(ctx context.Context, a *Agent) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO delivery_agents (name, phone, vehicle_type, vehicle_number, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		a.Name, a.Phone, a.VehicleType, a.VehicleNumber, a.IsAvailable,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (s *Store) GetAgent(ctx context.Context, id int64) (*Agent, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, phone, vehicle_type, vehicle_number, is_available, created_at, updated_at
		FROM delivery_agents WHERE id = $1`, id)
	return scanAgent(row)
}

// FirstAvailable returns the earliest-registered available agent. This is the
// auto-assignment fairness heuristic; it is not load-based.
func (s *Store) FirstAvailable(ctx context.Context) (*Agent, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, phone, vehicle_type, vehicle_number, is_available, created_at, updated_at
		FROM delivery_agents WHERE is_available ORDER BY created_at, id LIMIT 1`)
	a, err := scanAgent(row)
	if errors.Is(err, ErrAgentNotFound) {
		return nil, ErrNoAgentAvailable
	}
	return a, err
}

func (s *Store) ListAvailable(ctx context.Context) ([]Agent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, phone, vehicle_type, vehicle_number, is_available, created_at, updated_at
		FROM delivery_agents WHERE is_available ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) SetAvailability(ctx context.Context, id int64, available bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE delivery_agents SET is_available = $1, updated_at = NOW() WHERE id = $2`, available, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrAgentNotFound
	}
	return nil
}

func (s *Store) SetLocation(ctx context.Context, id int64, p Point) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.GeoAdd(ctx, agentGeoKey, &redis.GeoLocation{
		Name:      agentMember(id),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
}

func (s *Store) Location(ctx context.Context, id int64) (Point, bool, error) {
	if s.redis == nil {
		return Point{}, false, nil
	}
	pos, err := s.redis.GeoPos(ctx, agentGeoKey, agentMember(id)).Result()
	if err != nil {
		return Point{}, false, err
	}
	if len(pos) == 0 || pos[0] == nil {
		return Point{}, false, nil
	}
	return Point{Lat: pos[0].Latitude, Lng: pos[0].Longitude}, true, nil
}

func agentMember(id int64) string {
	return "agent:" + strconv.FormatInt(id, 10)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAgent(row scannable) (*Agent, error) {
	var a Agent
	err := row.Scan(&a.ID, &a.Name, &a.Phone, &a.VehicleType, &a.VehicleNumber, &a.IsAvailable, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
