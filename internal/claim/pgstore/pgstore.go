// Package pgstore provides a PostgreSQL implementation of claim.Store.
// BeginDecision and ApplyTransition are single guarded updates, so the
// evidence-gate race and the transition conflict check both resolve in one
// round trip inside the database.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/claimflow/internal/claim"
	"github.com/linnemanlabs/claimflow/internal/fulfillment"
	"github.com/linnemanlabs/claimflow/internal/sla"
)

var tracer = otel.Tracer("github.com/linnemanlabs/claimflow/internal/claim/pgstore")

//go:embed schema.sql
var schema string

// Store persists the claims engine state in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func recordErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

const claimColumns = `id, number, claim_type, status, decision, decision_reason, description,
	policy_id, program_id, submitted_at, status_changed_at, decision_started`

// CreateClaim inserts a new claim together with its initial history entry
// in one transaction, so no claim exists without a durable audit trail.
func (s *Store) CreateClaim(ctx context.Context, c *claim.Claim) error {
	ctx, span := startSpan(ctx, "pgstore.CreateClaim", "INSERT")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	_, err = tx.Exec(ctx,
		`INSERT INTO claims (`+claimColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		c.ID, c.Number, string(c.Type), string(c.Status), string(c.Decision), c.DecisionReason,
		c.Description, c.PolicyID, c.ProgramID, c.SubmittedAt, c.StatusChangedAt, c.DecisionStarted,
	)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("insert claim: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO claim_status_history (claim_id, status, note, actor, ts)
		 VALUES ($1, $2, '', $3, $4)`,
		c.ID, string(c.Status), string(claim.ActorSystem), c.SubmittedAt,
	)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("insert initial history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		recordErr(span, err)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetClaim retrieves a claim by ID.
func (s *Store) GetClaim(ctx context.Context, id string) (*claim.Claim, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetClaim", "SELECT")
	defer span.End()

	row := s.pool.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, id)
	c, err := scanClaim(row)
	if err != nil {
		recordErr(span, err)
		return nil, false, err
	}
	if c == nil {
		return nil, false, nil
	}
	return c, true, nil
}

// ListOpenClaims returns all claims not in a terminal status.
func (s *Store) ListOpenClaims(ctx context.Context) ([]*claim.Claim, error) {
	ctx, span := startSpan(ctx, "pgstore.ListOpenClaims", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE status NOT IN ('closed', 'rejected')`)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("query open claims: %w", err)
	}
	defer rows.Close()

	var out []*claim.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			recordErr(span, err)
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return out, nil
}

// ApplyTransition updates the claim's status fields and appends the history
// entry in one transaction, guarded on the expected current status.
func (s *Store) ApplyTransition(ctx context.Context, c *claim.Claim, from claim.Status, entry *claim.HistoryEntry) error {
	ctx, span := startSpan(ctx, "pgstore.ApplyTransition", "UPDATE")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	tag, err := tx.Exec(ctx,
		`UPDATE claims SET
			status = $2,
			decision = $3,
			decision_reason = $4,
			status_changed_at = $5
		 WHERE id = $1 AND status = $6`,
		c.ID, string(c.Status), string(c.Decision), c.DecisionReason, c.StatusChangedAt, string(from),
	)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("update claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return claim.ErrTransitionConflict
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO claim_status_history (claim_id, status, note, actor, ts)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ClaimID, string(entry.Status), entry.Note, string(entry.Actor), entry.Timestamp,
	)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("insert history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		recordErr(span, err)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// History returns the ordered status audit trail for a claim.
func (s *Store) History(ctx context.Context, claimID string) ([]claim.HistoryEntry, error) {
	ctx, span := startSpan(ctx, "pgstore.History", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT claim_id, status, note, actor, ts
		 FROM claim_status_history WHERE claim_id = $1 ORDER BY id`,
		claimID,
	)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []claim.HistoryEntry
	for rows.Next() {
		var (
			e      claim.HistoryEntry
			status string
			actor  string
		)
		if err := rows.Scan(&e.ClaimID, &status, &e.Note, &actor, &e.Timestamp); err != nil {
			recordErr(span, err)
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Status = claim.Status(status)
		e.Actor = claim.Actor(actor)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

// AddEvidence appends an evidence document record.
func (s *Store) AddEvidence(ctx context.Context, doc *claim.EvidenceDocument) error {
	ctx, span := startSpan(ctx, "pgstore.AddEvidence", "INSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO evidence_documents (id, claim_id, doc_type, blob_key, quality, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID, doc.ClaimID, string(doc.Type), doc.BlobKey, doc.Quality, doc.UploadedAt,
	)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

// EvidenceTypes returns the set of distinct document types present.
func (s *Store) EvidenceTypes(ctx context.Context, claimID string) (map[claim.EvidenceType]bool, error) {
	ctx, span := startSpan(ctx, "pgstore.EvidenceTypes", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT doc_type FROM evidence_documents WHERE claim_id = $1`, claimID)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("query evidence types: %w", err)
	}
	defer rows.Close()

	out := make(map[claim.EvidenceType]bool)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			recordErr(span, err)
			return nil, fmt.Errorf("scan evidence type: %w", err)
		}
		out[claim.EvidenceType(t)] = true
	}
	if err := rows.Err(); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("iterate evidence types: %w", err)
	}
	return out, nil
}

// BeginDecision is the evidence gate's atomic guard: a single conditional
// update that only one of two racing uploads can win.
func (s *Store) BeginDecision(ctx context.Context, claimID string) (bool, error) {
	ctx, span := startSpan(ctx, "pgstore.BeginDecision", "UPDATE")
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`UPDATE claims SET decision_started = TRUE
		 WHERE id = $1 AND status = 'notified' AND decision_started = FALSE`,
		claimID,
	)
	if err != nil {
		recordErr(span, err)
		return false, fmt.Errorf("begin decision: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ClearDecision releases the decision guard after a classifier failure.
func (s *Store) ClearDecision(ctx context.Context, claimID string) error {
	ctx, span := startSpan(ctx, "pgstore.ClearDecision", "UPDATE")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`UPDATE claims SET decision_started = FALSE WHERE id = $1`, claimID)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("clear decision: %w", err)
	}
	return nil
}

const fulfillmentColumns = `id, claim_id, status, fulfillment_type, excess_amount, excess_paid,
	quote_amount, quote_status, device_value, settlement_amount, ber_reason, created_at, updated_at`

// CreateFulfillment inserts the fulfillment record for a claim. The unique
// constraint on claim_id enforces exactly-once creation.
func (s *Store) CreateFulfillment(ctx context.Context, f *fulfillment.Fulfillment) error {
	ctx, span := startSpan(ctx, "pgstore.CreateFulfillment", "INSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO fulfillments (`+fulfillmentColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		f.ID, f.ClaimID, string(f.Status), string(f.Type), f.ExcessAmount, f.ExcessPaid,
		f.QuoteAmount, string(f.QuoteStatus), f.DeviceValue, f.SettlementAmount, f.BERReason,
		f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("insert fulfillment: %w", err)
	}
	return nil
}

// GetFulfillment retrieves a claim's fulfillment record.
func (s *Store) GetFulfillment(ctx context.Context, claimID string) (*fulfillment.Fulfillment, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetFulfillment", "SELECT")
	defer span.End()

	row := s.pool.QueryRow(ctx,
		`SELECT `+fulfillmentColumns+` FROM fulfillments WHERE claim_id = $1`, claimID)

	var (
		f           fulfillment.Fulfillment
		status      string
		ftype       string
		quoteStatus string
	)
	err := row.Scan(
		&f.ID, &f.ClaimID, &status, &ftype, &f.ExcessAmount, &f.ExcessPaid,
		&f.QuoteAmount, &quoteStatus, &f.DeviceValue, &f.SettlementAmount, &f.BERReason,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		recordErr(span, err)
		return nil, false, fmt.Errorf("scan fulfillment: %w", err)
	}
	f.Status = fulfillment.Status(status)
	f.Type = fulfillment.Type(ftype)
	f.QuoteStatus = fulfillment.QuoteStatus(quoteStatus)
	return &f, true, nil
}

// UpdateFulfillment persists the full fulfillment row.
func (s *Store) UpdateFulfillment(ctx context.Context, f *fulfillment.Fulfillment) error {
	ctx, span := startSpan(ctx, "pgstore.UpdateFulfillment", "UPDATE")
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`UPDATE fulfillments SET
			status = $2, fulfillment_type = $3, excess_amount = $4, excess_paid = $5,
			quote_amount = $6, quote_status = $7, device_value = $8,
			settlement_amount = $9, ber_reason = $10, updated_at = $11
		 WHERE id = $1`,
		f.ID, string(f.Status), string(f.Type), f.ExcessAmount, f.ExcessPaid,
		f.QuoteAmount, string(f.QuoteStatus), f.DeviceValue,
		f.SettlementAmount, f.BERReason, f.UpdatedAt,
	)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("update fulfillment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return claim.ErrFulfillmentNotFound
	}
	return nil
}

// AddRepairCost appends a repair cost line item.
func (s *Store) AddRepairCost(ctx context.Context, rc *fulfillment.RepairCost) error {
	ctx, span := startSpan(ctx, "pgstore.AddRepairCost", "INSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO repair_costs (id, fulfillment_id, cost_type, description, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rc.ID, rc.FulfillmentID, rc.CostType, rc.Description, rc.Amount, rc.CreatedAt,
	)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("insert repair cost: %w", err)
	}
	return nil
}

// RepairCosts returns the line items for a fulfillment in insertion order.
func (s *Store) RepairCosts(ctx context.Context, fulfillmentID string) ([]fulfillment.RepairCost, error) {
	ctx, span := startSpan(ctx, "pgstore.RepairCosts", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, fulfillment_id, cost_type, description, amount, created_at
		 FROM repair_costs WHERE fulfillment_id = $1 ORDER BY created_at, id`,
		fulfillmentID,
	)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("query repair costs: %w", err)
	}
	defer rows.Close()

	var out []fulfillment.RepairCost
	for rows.Next() {
		var rc fulfillment.RepairCost
		if err := rows.Scan(&rc.ID, &rc.FulfillmentID, &rc.CostType, &rc.Description, &rc.Amount, &rc.CreatedAt); err != nil {
			recordErr(span, err)
			return nil, fmt.Errorf("scan repair cost: %w", err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("iterate repair costs: %w", err)
	}
	return out, nil
}

// GetPolicy retrieves a policy by ID.
func (s *Store) GetPolicy(ctx context.Context, id string) (*claim.Policy, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetPolicy", "SELECT")
	defer span.End()

	var p claim.Policy
	err := s.pool.QueryRow(ctx,
		`SELECT id, number, program_id, product_id FROM policies WHERE id = $1`, id,
	).Scan(&p.ID, &p.Number, &p.ProgramID, &p.ProductID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		recordErr(span, err)
		return nil, false, fmt.Errorf("scan policy: %w", err)
	}
	return &p, true, nil
}

// GetProduct retrieves a product by ID.
func (s *Store) GetProduct(ctx context.Context, id string) (*claim.Product, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetProduct", "SELECT")
	defer span.End()

	var (
		p            claim.Product
		coverageJSON []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, coverage, excess_1, device_value FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &coverageJSON, &p.Excess1, &p.DeviceValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		recordErr(span, err)
		return nil, false, fmt.Errorf("scan product: %w", err)
	}
	if err := json.Unmarshal(coverageJSON, &p.Coverage); err != nil {
		recordErr(span, err)
		return nil, false, fmt.Errorf("unmarshal coverage: %w", err)
	}
	return &p, true, nil
}

// SLAEntries returns all SLA configuration rows.
func (s *Store) SLAEntries(ctx context.Context) ([]sla.Entry, error) {
	ctx, span := startSpan(ctx, "pgstore.SLAEntries", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT program_id, claim_status, sla_hours, description, is_active FROM sla_config`)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("query sla config: %w", err)
	}
	defer rows.Close()

	var out []sla.Entry
	for rows.Next() {
		var e sla.Entry
		if err := rows.Scan(&e.ProgramID, &e.Status, &e.Hours, &e.Description, &e.Active); err != nil {
			recordErr(span, err)
			return nil, fmt.Errorf("scan sla entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("iterate sla entries: %w", err)
	}
	return out, nil
}

// scanClaim scans a claims row. Returns (nil, nil) when no row is found.
func scanClaim(row pgx.Row) (*claim.Claim, error) {
	var (
		c        claim.Claim
		ctype    string
		status   string
		decision string
	)
	err := row.Scan(
		&c.ID, &c.Number, &ctype, &status, &decision, &c.DecisionReason, &c.Description,
		&c.PolicyID, &c.ProgramID, &c.SubmittedAt, &c.StatusChangedAt, &c.DecisionStarted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}
	c.Type = claim.Type(ctype)
	c.Status = claim.Status(status)
	c.Decision = claim.Decision(decision)
	return &c, nil
}
