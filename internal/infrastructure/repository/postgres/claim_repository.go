package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
)

type ClaimRepository struct {
	db *sql.DB
}

func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ClaimRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS claims (
	claim_id TEXT PRIMARY KEY,
	policy_id TEXT,
	employee_id TEXT NOT NULL,
	category TEXT NOT NULL,
	patient_name TEXT,
	claim_amount DOUBLE PRECISION NOT NULL,
	treatment_date TIMESTAMPTZ NOT NULL,
	diagnosis TEXT,
	doctor_name TEXT,
	doctor_reg_number TEXT,
	hospital_name TEXT,
	pre_auth_obtained BOOLEAN NOT NULL DEFAULT FALSE,
	documents JSONB NOT NULL DEFAULT '[]'::jsonb,
	extracted_text TEXT,
	extracted_data JSONB,
	status TEXT NOT NULL,
	approved_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	decision_reasons JSONB NOT NULL DEFAULT '[]'::jsonb,
	confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	notes TEXT,
	next_steps TEXT,
	breakdown JSONB,
	submitted_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ,
	ytd_claimed DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_claims_employee_id ON claims(employee_id);
CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);
CREATE INDEX IF NOT EXISTS idx_claims_submitted_at ON claims(submitted_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const claimColumns = `claim_id, policy_id, employee_id, category, patient_name, claim_amount, treatment_date,
	diagnosis, doctor_name, doctor_reg_number, hospital_name, pre_auth_obtained,
	documents, extracted_text, extracted_data, status, approved_amount, decision_reasons,
	confidence_score, notes, next_steps, breakdown, submitted_at, processed_at, ytd_claimed`

func (r *ClaimRepository) Create(ctx context.Context, claim *domain.Claim) error {
	documentsJSON, err := json.Marshal(claim.Documents)
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO claims (
	claim_id, policy_id, employee_id, category, patient_name, claim_amount, treatment_date,
	hospital_name, pre_auth_obtained, documents, status, submitted_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		claim.ClaimID, claim.PolicyID, claim.EmployeeID, string(claim.Category), claim.PatientName,
		claim.ClaimAmount, claim.TreatmentDate, claim.HospitalName, claim.PreAuthObtained,
		documentsJSON, string(claim.Status), claim.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (r *ClaimRepository) GetByClaimID(ctx context.Context, claimID string) (*domain.Claim, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+claimColumns+`
FROM claims
WHERE claim_id = $1
`, claimID)

	claim, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrClaimNotFound, "get claim", fmt.Errorf("claim_id %s", claimID))
		}
		return nil, err
	}
	return claim, nil
}

func (r *ClaimRepository) UpdateStatus(ctx context.Context, claimID string, status domain.ClaimStatus, note string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE claims
SET status = $2, notes = CASE WHEN $3 = '' THEN notes ELSE $3 END
WHERE claim_id = $1
`, claimID, string(status), note)
	if err != nil {
		return fmt.Errorf("update claim status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update claim status rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrClaimNotFound, "update claim status", fmt.Errorf("claim_id %s", claimID))
	}
	return nil
}

func (r *ClaimRepository) SaveDecision(ctx context.Context, claim *domain.Claim) error {
	extractedJSON, err := marshalNullable(claim.Extracted)
	if err != nil {
		return fmt.Errorf("marshal extracted data: %w", err)
	}
	reasonsJSON, err := json.Marshal(reasonsOrEmpty(claim.Reasons))
	if err != nil {
		return fmt.Errorf("marshal decision reasons: %w", err)
	}
	breakdownJSON, err := marshalNullable(claim.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE claims
SET patient_name = $2, treatment_date = $3, diagnosis = $4, doctor_name = $5, doctor_reg_number = $6,
	hospital_name = $7, extracted_text = $8, extracted_data = $9, status = $10, approved_amount = $11,
	decision_reasons = $12, confidence_score = $13, notes = $14, next_steps = $15, breakdown = $16,
	processed_at = $17, ytd_claimed = $18
WHERE claim_id = $1
`,
		claim.ClaimID, claim.PatientName, claim.TreatmentDate, claim.Diagnosis, claim.DoctorName,
		claim.DoctorRegCode, claim.HospitalName, claim.ExtractedText, extractedJSON, string(claim.Status),
		claim.ApprovedAmount, reasonsJSON, claim.Confidence, claim.Notes, claim.NextSteps, breakdownJSON,
		claim.ProcessedAt, claim.YTDClaimed,
	)
	if err != nil {
		return fmt.Errorf("save claim decision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save claim decision rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrClaimNotFound, "save claim decision", fmt.Errorf("claim_id %s", claim.ClaimID))
	}
	return nil
}

func (r *ClaimRepository) List(ctx context.Context, filter domain.ClaimFilter) ([]domain.Claim, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + claimColumns + ` FROM claims`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY submitted_at DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return claims, nil
}

func (r *ClaimRepository) YTDApproved(ctx context.Context, employeeID, claimID string, ref time.Time) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx, `
SELECT COALESCE(SUM(approved_amount), 0)
FROM claims
WHERE employee_id = $1
  AND claim_id <> $2
  AND status IN ('APPROVED', 'PARTIAL')
  AND submitted_at >= date_trunc('year', $3::timestamptz)
  AND submitted_at < date_trunc('year', $3::timestamptz) + interval '1 year'
`, employeeID, claimID, ref).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum ytd approved: %w", err)
	}
	return total, nil
}

func (r *ClaimRepository) CountOtherClaimsOnDay(ctx context.Context, employeeID, claimID string, ref time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM claims
WHERE employee_id = $1
  AND claim_id <> $2
  AND submitted_at::date = $3::date
`, employeeID, claimID, ref).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count same-day claims: %w", err)
	}
	return count, nil
}

func (r *ClaimRepository) Stats(ctx context.Context) (domain.ClaimStats, error) {
	var stats domain.ClaimStats
	err := r.db.QueryRowContext(ctx, `
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE status = 'APPROVED'),
	COUNT(*) FILTER (WHERE status = 'REJECTED'),
	COUNT(*) FILTER (WHERE status = 'PARTIAL'),
	COUNT(*) FILTER (WHERE status IN ('PENDING', 'PROCESSING')),
	COUNT(*) FILTER (WHERE status = 'MANUAL_REVIEW')
FROM claims
`).Scan(&stats.Total, &stats.Approved, &stats.Rejected, &stats.Partial, &stats.Pending, &stats.ManualReview)
	if err != nil {
		return domain.ClaimStats{}, fmt.Errorf("aggregate claim stats: %w", err)
	}

	decided := stats.Approved + stats.Rejected + stats.Partial + stats.ManualReview
	if decided > 0 {
		stats.ApprovalRate = float64(stats.Approved+stats.Partial) / float64(decided)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*domain.Claim, error) {
	var (
		claim         domain.Claim
		category      string
		status        string
		documentsRaw  []byte
		extractedRaw  []byte
		reasonsRaw    []byte
		breakdownRaw  []byte
		diagnosis     sql.NullString
		doctorName    sql.NullString
		doctorReg     sql.NullString
		hospitalName  sql.NullString
		patientName   sql.NullString
		extractedText sql.NullString
		notes         sql.NullString
		nextSteps     sql.NullString
		processedAt   sql.NullTime
	)

	err := row.Scan(
		&claim.ClaimID, &claim.PolicyID, &claim.EmployeeID, &category, &patientName, &claim.ClaimAmount,
		&claim.TreatmentDate, &diagnosis, &doctorName, &doctorReg, &hospitalName, &claim.PreAuthObtained,
		&documentsRaw, &extractedText, &extractedRaw, &status, &claim.ApprovedAmount, &reasonsRaw,
		&claim.Confidence, &notes, &nextSteps, &breakdownRaw, &claim.SubmittedAt, &processedAt,
		&claim.YTDClaimed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}

	claim.Category = domain.Category(category)
	claim.Status = domain.ClaimStatus(status)
	claim.PatientName = patientName.String
	claim.Diagnosis = diagnosis.String
	claim.DoctorName = doctorName.String
	claim.DoctorRegCode = doctorReg.String
	claim.HospitalName = hospitalName.String
	claim.ExtractedText = extractedText.String
	claim.Notes = notes.String
	claim.NextSteps = nextSteps.String
	if processedAt.Valid {
		t := processedAt.Time
		claim.ProcessedAt = &t
	}

	if err := json.Unmarshal(documentsRaw, &claim.Documents); err != nil {
		return nil, fmt.Errorf("unmarshal documents: %w", err)
	}
	if len(reasonsRaw) > 0 {
		if err := json.Unmarshal(reasonsRaw, &claim.Reasons); err != nil {
			return nil, fmt.Errorf("unmarshal decision reasons: %w", err)
		}
	}
	if len(extractedRaw) > 0 {
		if err := json.Unmarshal(extractedRaw, &claim.Extracted); err != nil {
			return nil, fmt.Errorf("unmarshal extracted data: %w", err)
		}
	}
	if len(breakdownRaw) > 0 {
		if err := json.Unmarshal(breakdownRaw, &claim.Breakdown); err != nil {
			return nil, fmt.Errorf("unmarshal breakdown: %w", err)
		}
	}
	return &claim, nil
}

func marshalNullable(v any) (any, error) {
	switch val := v.(type) {
	case *domain.ExtractedClaimData:
		if val == nil {
			return nil, nil
		}
	case *domain.Breakdown:
		if val == nil {
			return nil, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func reasonsOrEmpty(reasons []domain.ReasonCode) []domain.ReasonCode {
	if reasons == nil {
		return []domain.ReasonCode{}
	}
	return reasons
}
