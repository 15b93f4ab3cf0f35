package postgresrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/u3m2a1/nibog-sub001/internal/domain"
)

type CertificateRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CertificateRepo) With(db DB) *CertificateRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CertificateRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Template retrieves a certificate template by id.
//
// Returns:
//   - error: repository.ErrNotFound if the template does not exist.
func (r *CertificateRepo) Template(ctx context.Context, id int64) (*domain.CertificateTemplate, error) {
	const op = "postgresrepo.CertificateRepo.Template"

	var t domain.CertificateTemplate
	if err := r.handle().QueryRow(ctx,
		`SELECT id, name, html FROM certificate_templates WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.HTML); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &t, nil
}

// Create stores a generated certificate.
//
// Returns:
//   - error: repository.ErrConflict when the certificate number is taken.
func (r *CertificateRepo) Create(ctx context.Context, c *domain.GeneratedCertificate) (*domain.GeneratedCertificate, error) {
	const op = "postgresrepo.CertificateRepo.Create"

	data, err := json.Marshal(c.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := *c
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO certificates(template_id, event_id, game_id, user_id, child_id,
			certificate_number, data, html)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		c.TemplateID, c.EventID, c.GameID, c.UserID, c.ChildID,
		c.CertificateNumber, data, c.HTML,
	).Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &out, nil
}

// Get retrieves a generated certificate.
//
// Returns:
//   - error: repository.ErrNotFound if the certificate does not exist.
func (r *CertificateRepo) Get(ctx context.Context, id int64) (*domain.GeneratedCertificate, error) {
	const op = "postgresrepo.CertificateRepo.Get"

	var (
		c    domain.GeneratedCertificate
		data []byte
	)
	if err := r.handle().QueryRow(ctx,
		`SELECT id, template_id, event_id, game_id, user_id, child_id,
			certificate_number, data, html, created_at
		 FROM certificates WHERE id = $1`, id,
	).Scan(
		&c.ID,
		&c.TemplateID,
		&c.EventID,
		&c.GameID,
		&c.UserID,
		&c.ChildID,
		&c.CertificateNumber,
		&data,
		&c.HTML,
		&c.CreatedAt,
	); err != nil {
		return nil, wrapDBErr(op, err)
	}

	if err := json.Unmarshal(data, &c.Data); err != nil {
		return nil, fmt.Errorf("%s: decode data: %w", op, err)
	}

	return &c, nil
}
