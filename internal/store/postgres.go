package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ginjaninja78/rps-batch-decoder/internal/batch"
	"github.com/ginjaninja78/rps-batch-decoder/internal/codec"
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS companies (
	id         text PRIMARY KEY,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS batch_files (
	id             uuid PRIMARY KEY,
	company_id     text NOT NULL REFERENCES companies(id),
	filename       text NOT NULL,
	content_hash   text NOT NULL UNIQUE,
	family         text NOT NULL,
	layout_version integer NOT NULL,
	state          text NOT NULL,
	cnpj           text,
	data_inicio    date,
	data_fim       date,
	total_servicos numeric(15,2) NOT NULL,
	total_iss      numeric(15,2) NOT NULL,
	total_deducoes numeric(15,2) NOT NULL,
	receipt_count  integer NOT NULL,
	warning_count  integer NOT NULL,
	imported_at    timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS receipts (
	id              bigserial PRIMARY KEY,
	batch_file_id   uuid NOT NULL REFERENCES batch_files(id) ON DELETE CASCADE,
	line_number     integer NOT NULL,
	type_code       text NOT NULL,
	numero_rps      bigint NOT NULL,
	serie           text,
	data_emissao    date,
	situacao        text,
	valor_servicos  numeric(15,2) NOT NULL,
	valor_deducoes  numeric(15,2) NOT NULL,
	valor_iss       numeric(15,2) NOT NULL,
	aliquota        numeric(7,2) NOT NULL,
	iss_retido      boolean NOT NULL,
	codigo_servico  bigint,
	numero_cupom    bigint,
	valor_retencoes numeric(15,2) NOT NULL,
	tomador_doc     text,
	tomador_nome    text,
	descricao       text
);

CREATE TABLE IF NOT EXISTS batch_warnings (
	id            bigserial PRIMARY KEY,
	batch_file_id uuid NOT NULL REFERENCES batch_files(id) ON DELETE CASCADE,
	line_number   integer,
	level         text NOT NULL,
	code          text NOT NULL,
	field         text,
	message       text NOT NULL
);
`

// =============================================================================
// POSTGRES STORE
// =============================================================================

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to url and returns a Postgres store.
//
// PARAMETERS:
//   - ctx: Bounds the connection attempt.
//   - url: A postgres:// connection string.
//   - maxConns: Pool size; zero keeps the pgx default.
func NewPostgres(ctx context.Context, url string, maxConns int32) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Migrate creates the tables when they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close implements Store.
func (p *Postgres) Close() {
	p.pool.Close()
}

// SaveBatch implements Store. The duplicate check and every insert share one
// transaction; any failure rolls everything back.
func (p *Postgres) SaveBatch(ctx context.Context, imp Import) (uuid.UUID, error) {
	if err := imp.Validate(); err != nil {
		return uuid.Nil, err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO companies (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, imp.CompanyID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert company: %w", err)
	}

	res := imp.Result
	bf := summarize(uuid.New(), imp, time.Now().UTC())
	hdr := res.HeaderInfo()
	var cnpj *string
	var inicio, fim any
	if hdr != nil {
		cnpj = &hdr.Cnpj
		inicio, fim = dateArg(hdr.DataInicio), dateArg(hdr.DataFim)
	}

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO batch_files (
			id, company_id, filename, content_hash, family, layout_version, state,
			cnpj, data_inicio, data_fim, total_servicos, total_iss, total_deducoes,
			receipt_count, warning_count, imported_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::numeric, $12::numeric, $13::numeric, $14, $15, $16)
		ON CONFLICT (content_hash) DO NOTHING
		RETURNING id`,
		bf.ID, bf.CompanyID, bf.Filename, bf.ContentHash, bf.Family, bf.LayoutVersion, bf.State,
		cnpj, inicio, fim,
		res.Statistics.TotalServiceValue().StringFixed(2),
		res.Statistics.TotalTaxValue().StringFixed(2),
		res.Statistics.TotalDeductionValue().StringFixed(2),
		bf.ReceiptCount, bf.WarningCount, bf.ImportedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrDuplicateFile
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert batch file: %w", err)
	}

	b := &pgx.Batch{}
	for i := range res.Receipts {
		queueReceipt(b, id, &res.Receipts[i])
	}
	for _, w := range warningRows(res) {
		var line *int
		if w.LineNumber > 0 {
			line = &w.LineNumber
		}
		b.Queue(`INSERT INTO batch_warnings (batch_file_id, line_number, level, code, field, message) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
			id, line, w.Level, w.Code, w.Field, w.Message)
	}
	if b.Len() > 0 {
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert receipts: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit import: %w", err)
	}
	return id, nil
}

func queueReceipt(b *pgx.Batch, batchID uuid.UUID, r *batch.Receipt) {
	var tomadorDoc, tomadorNome *string
	if r.Tomador != nil {
		tomadorDoc, tomadorNome = &r.Tomador.Documento, &r.Tomador.Nome
	}
	b.Queue(`
		INSERT INTO receipts (
			batch_file_id, line_number, type_code, numero_rps, serie, data_emissao, situacao,
			valor_servicos, valor_deducoes, valor_iss, aliquota, iss_retido,
			codigo_servico, numero_cupom, valor_retencoes, tomador_doc, tomador_nome, descricao
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''),
			$8::numeric, $9::numeric, $10::numeric, $11::numeric, $12,
			$13, $14, $15::numeric, $16, $17, NULLIF($18, ''))`,
		batchID, r.LineNumber, r.TypeCode, r.NumeroRps, r.Serie, dateArg(r.DataEmissao), r.Situacao,
		r.ValorServicos.StringFixed(2), r.ValorDeducoes.StringFixed(2), r.ValorIss.StringFixed(2),
		r.Aliquota.StringFixed(2), r.IssRetido,
		r.CodigoServico, r.NumeroCupom, r.Retencoes.Total().StringFixed(2),
		tomadorDoc, tomadorNome, r.Descricao,
	)
}

// dateArg maps the zero date to SQL NULL.
func dateArg(d codec.Date) any {
	if d.IsZero() || !d.Valid() {
		return nil
	}
	return d.Time()
}

// BatchFile implements Store.
func (p *Postgres) BatchFile(ctx context.Context, id uuid.UUID) (*BatchFile, error) {
	bf := BatchFile{ID: id}
	err := p.pool.QueryRow(ctx, `
		SELECT company_id, filename, content_hash, family, layout_version, state,
		       receipt_count, warning_count, imported_at
		FROM batch_files WHERE id = $1`, id,
	).Scan(&bf.CompanyID, &bf.Filename, &bf.ContentHash, &bf.Family, &bf.LayoutVersion, &bf.State,
		&bf.ReceiptCount, &bf.WarningCount, &bf.ImportedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch file: %w", err)
	}
	return &bf, nil
}
