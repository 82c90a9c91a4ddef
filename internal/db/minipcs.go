package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gonfdez/minipc-agent/internal/types"
)

// ErrModelConflict matches ModelConflictError via errors.Is.
var ErrModelConflict = errors.New("model conflict")

// ModelConflictError is returned when a record's normalized model key matches
// an existing row whose raw model string differs. Two genuinely different
// models that normalize identically are not merged; the conflict is surfaced
// for manual resolution.
type ModelConflictError struct {
	Brand         string
	IncomingModel string
	ExistingModel string
}

func (e *ModelConflictError) Error() string {
	return fmt.Sprintf("model conflict for brand %s: %q normalizes to the same key as existing %q",
		e.Brand, e.IncomingModel, e.ExistingModel)
}

func (e *ModelConflictError) Is(target error) bool {
	return target == ErrModelConflict
}

// SaveMiniPC upserts one extracted record into the catalog, keyed by
// (brand, normalized model). The record's CPU is shared across models via
// get-or-create; graphics, variants, and offers are owned by the record and
// replaced wholesale on update. Returns the catalog row ID.
func (db *DB) SaveMiniPC(ctx context.Context, rec *types.MiniPC) (uuid.UUID, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	brand, err := findOrCreateBrandTx(ctx, tx, rec.Brand)
	if err != nil {
		return uuid.Nil, err
	}

	cpuID, err := findOrCreateCPUTx(ctx, tx, &rec.CPU)
	if err != nil {
		return uuid.Nil, err
	}

	modelKey := types.NormalizeModelKey(rec.Model)

	var existingID uuid.UUID
	var existingModel string
	var existingGraphicsID *uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id, model, graphics_id FROM minipcs WHERE brand_id = $1 AND model_key = $2`,
		brand.ID, modelKey,
	).Scan(&existingID, &existingModel, &existingGraphicsID)
	exists := err == nil
	if err != nil && err != pgx.ErrNoRows {
		return uuid.Nil, fmt.Errorf("failed to look up existing record: %w", err)
	}

	if exists && existingModel != rec.Model {
		return uuid.Nil, &ModelConflictError{
			Brand:         rec.Brand,
			IncomingModel: rec.Model,
			ExistingModel: existingModel,
		}
	}

	var recordID uuid.UUID
	if exists {
		recordID = existingID
		graphicsID, err := upsertGraphicsTx(ctx, tx, existingGraphicsID, &rec.Graphics)
		if err != nil {
			return uuid.Nil, err
		}
		if err := updateMiniPCTx(ctx, tx, recordID, cpuID, graphicsID, rec); err != nil {
			return uuid.Nil, err
		}
		// Variants and offers are replaced, not merged.
		if _, err := tx.Exec(ctx, `DELETE FROM variants WHERE minipc_id = $1`, recordID); err != nil {
			return uuid.Nil, fmt.Errorf("failed to clear variants: %w", err)
		}
	} else {
		graphicsID, err := upsertGraphicsTx(ctx, tx, nil, &rec.Graphics)
		if err != nil {
			return uuid.Nil, err
		}
		recordID, err = insertMiniPCTx(ctx, tx, brand.ID, cpuID, graphicsID, modelKey, rec)
		if err != nil {
			return uuid.Nil, err
		}
	}

	for i := range rec.Variants {
		if err := insertVariantTx(ctx, tx, recordID, &rec.Variants[i]); err != nil {
			return uuid.Nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit: %w", err)
	}
	return recordID, nil
}

func findOrCreateCPUTx(ctx context.Context, tx pgx.Tx, cpu *types.CPU) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(ctx,
		`INSERT INTO cpus (brand, model, cores, threads, base_clock_ghz, boost_clock_ghz, cache)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (brand, model) DO UPDATE SET
		   cores = EXCLUDED.cores, threads = EXCLUDED.threads,
		   base_clock_ghz = EXCLUDED.base_clock_ghz, boost_clock_ghz = EXCLUDED.boost_clock_ghz,
		   cache = EXCLUDED.cache
		 RETURNING id`,
		cpu.Brand, cpu.Model, cpu.Cores, cpu.Threads, cpu.BaseClockGHz, cpu.BoostClockGHz, cpu.Cache,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert cpu: %w", err)
	}
	return id, nil
}

func upsertGraphicsTx(ctx context.Context, tx pgx.Tx, existingID *uuid.UUID, g *types.Graphics) (uuid.UUID, error) {
	displayPorts, err := marshalJSONB(g.DisplayPorts)
	if err != nil {
		return uuid.Nil, err
	}

	if existingID != nil {
		_, err := tx.Exec(ctx,
			`UPDATE graphics SET integrated = $1, brand = $2, model = $3, frequency_mhz = $4,
			   max_tops = $5, graphic_cores_cu = $6, display_ports = $7
			 WHERE id = $8`,
			g.Integrated, g.Brand, g.Model, g.FrequencyMHz, g.MaxTOPS, g.GraphicCoresCU, displayPorts, *existingID,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to update graphics: %w", err)
		}
		return *existingID, nil
	}

	var id uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO graphics (integrated, brand, model, frequency_mhz, max_tops, graphic_cores_cu, display_ports)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		g.Integrated, g.Brand, g.Model, g.FrequencyMHz, g.MaxTOPS, g.GraphicCoresCU, displayPorts,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert graphics: %w", err)
	}
	return id, nil
}

func insertMiniPCTx(ctx context.Context, tx pgx.Tx, brandID, cpuID, graphicsID uuid.UUID, modelKey string, rec *types.MiniPC) (uuid.UUID, error) {
	description, err := marshalJSONB(rec.Description)
	if err != nil {
		return uuid.Nil, err
	}
	ports, err := marshalJSONB(rec.Ports)
	if err != nil {
		return uuid.Nil, err
	}
	connectivity, err := marshalJSONB(rec.Connectivity)
	if err != nil {
		return uuid.Nil, err
	}
	dimensions, err := marshalJSONB(rec.Dimensions)
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO minipcs (
		   brand_id, cpu_id, graphics_id, model, model_key, description, from_url,
		   manual_collect, main_img_urls, ports_img_urls, max_ram_gb, max_storage_gb,
		   ports, connectivity, dimensions, builtin_microphone, builtin_speakers,
		   support_egpu, weight_kg, power_consumption_w, release_year)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		 RETURNING id`,
		brandID, cpuID, graphicsID, rec.Model, modelKey, description, rec.FromURL,
		rec.ManualCollect, rec.MainImgURLs, rec.PortsImgURLs, rec.MaxRAMCapacityGB, rec.MaxStorageCapacityGB,
		ports, connectivity, dimensions, rec.BuiltinMicrophone, rec.BuiltinSpeakers,
		rec.SupportExternalDiscreteGraphicsCard, rec.WeightKg, rec.PowerConsumptionW, rec.ReleaseYear,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert record: %w", err)
	}
	return id, nil
}

func updateMiniPCTx(ctx context.Context, tx pgx.Tx, id, cpuID, graphicsID uuid.UUID, rec *types.MiniPC) error {
	description, err := marshalJSONB(rec.Description)
	if err != nil {
		return err
	}
	ports, err := marshalJSONB(rec.Ports)
	if err != nil {
		return err
	}
	connectivity, err := marshalJSONB(rec.Connectivity)
	if err != nil {
		return err
	}
	dimensions, err := marshalJSONB(rec.Dimensions)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE minipcs SET
		   cpu_id = $1, graphics_id = $2, description = $3, from_url = $4,
		   manual_collect = $5, main_img_urls = $6, ports_img_urls = $7,
		   max_ram_gb = $8, max_storage_gb = $9, ports = $10, connectivity = $11,
		   dimensions = $12, builtin_microphone = $13, builtin_speakers = $14,
		   support_egpu = $15, weight_kg = $16, power_consumption_w = $17,
		   release_year = $18, updated_at = NOW()
		 WHERE id = $19`,
		cpuID, graphicsID, description, rec.FromURL,
		rec.ManualCollect, rec.MainImgURLs, rec.PortsImgURLs,
		rec.MaxRAMCapacityGB, rec.MaxStorageCapacityGB, ports, connectivity,
		dimensions, rec.BuiltinMicrophone, rec.BuiltinSpeakers,
		rec.SupportExternalDiscreteGraphicsCard, rec.WeightKg, rec.PowerConsumptionW,
		rec.ReleaseYear, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return nil
}

func insertVariantTx(ctx context.Context, tx pgx.Tx, recordID uuid.UUID, v *types.Variant) error {
	var variantID uuid.UUID
	err := tx.QueryRow(ctx,
		`INSERT INTO variants (minipc_id, ram_capacity_gb, ram_type, storage_capacity_gb, storage_type)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		recordID, v.RAM.CapacityGB, v.RAM.Type, v.Storage.CapacityGB, v.Storage.Type,
	).Scan(&variantID)
	if err != nil {
		return fmt.Errorf("failed to insert variant: %w", err)
	}

	for _, offer := range v.Offers {
		_, err := tx.Exec(ctx,
			`INSERT INTO offers (variant_id, url, price_usd, warranty_years)
			 VALUES ($1, $2, $3, $4)`,
			variantID, offer.URL, offer.PriceUSD, offer.WarrantyYears,
		)
		if err != nil {
			return fmt.Errorf("failed to insert offer: %w", err)
		}
	}
	return nil
}

// ListMiniPCs retrieves catalog records with optional brand filter and
// limit/offset pagination.
func (db *DB) ListMiniPCs(ctx context.Context, filters MiniPCFilters) ([]MiniPCSummary, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT m.id, b.name, m.model, COALESCE(m.from_url, ''), m.created_at, m.updated_at
		FROM minipcs m JOIN brands b ON b.id = m.brand_id WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Brand != "" {
		query += fmt.Sprintf(" AND b.name_normalized = $%d", argNum)
		args = append(args, NormalizeName(filters.Brand))
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY b.name, m.model LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var summaries []MiniPCSummary
	for rows.Next() {
		var s MiniPCSummary
		if err := rows.Scan(&s.ID, &s.Brand, &s.Model, &s.FromURL, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// GetMiniPC retrieves a full catalog record, including variants and offers.
// A missing record returns (nil, nil).
func (db *DB) GetMiniPC(ctx context.Context, id uuid.UUID) (*types.MiniPC, error) {
	var rec types.MiniPC
	var description, ports, connectivity, dimensions, displayPorts []byte
	err := db.pool.QueryRow(ctx,
		`SELECT b.name, m.model, m.description, COALESCE(m.from_url, ''), m.manual_collect,
		        m.main_img_urls, m.ports_img_urls, m.max_ram_gb, m.max_storage_gb,
		        m.ports, m.connectivity, m.dimensions, m.builtin_microphone,
		        m.builtin_speakers, m.support_egpu, COALESCE(m.weight_kg, 0),
		        m.power_consumption_w, m.release_year,
		        c.brand, c.model, COALESCE(c.cores, 0), COALESCE(c.threads, 0),
		        c.base_clock_ghz, c.boost_clock_ghz, c.cache,
		        COALESCE(g.integrated, TRUE), COALESCE(g.brand, ''), COALESCE(g.model, ''),
		        g.frequency_mhz, g.max_tops, g.graphic_cores_cu, g.display_ports
		 FROM minipcs m
		 JOIN brands b ON b.id = m.brand_id
		 JOIN cpus c ON c.id = m.cpu_id
		 LEFT JOIN graphics g ON g.id = m.graphics_id
		 WHERE m.id = $1`,
		id,
	).Scan(&rec.Brand, &rec.Model, &description, &rec.FromURL, &rec.ManualCollect,
		&rec.MainImgURLs, &rec.PortsImgURLs, &rec.MaxRAMCapacityGB, &rec.MaxStorageCapacityGB,
		&ports, &connectivity, &dimensions, &rec.BuiltinMicrophone,
		&rec.BuiltinSpeakers, &rec.SupportExternalDiscreteGraphicsCard, &rec.WeightKg,
		&rec.PowerConsumptionW, &rec.ReleaseYear,
		&rec.CPU.Brand, &rec.CPU.Model, &rec.CPU.Cores, &rec.CPU.Threads,
		&rec.CPU.BaseClockGHz, &rec.CPU.BoostClockGHz, &rec.CPU.Cache,
		&rec.Graphics.Integrated, &rec.Graphics.Brand, &rec.Graphics.Model,
		&rec.Graphics.FrequencyMHz, &rec.Graphics.MaxTOPS, &rec.Graphics.GraphicCoresCU, &displayPorts)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	if err := unmarshalJSONB(description, &rec.Description); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(ports, &rec.Ports); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(connectivity, &rec.Connectivity); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(dimensions, &rec.Dimensions); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(displayPorts, &rec.Graphics.DisplayPorts); err != nil {
		return nil, err
	}

	variants, err := db.getVariants(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Variants = variants

	return &rec, nil
}

func (db *DB) getVariants(ctx context.Context, recordID uuid.UUID) ([]types.Variant, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, ram_capacity_gb, COALESCE(ram_type, ''), storage_capacity_gb, COALESCE(storage_type, '')
		 FROM variants WHERE minipc_id = $1`,
		recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	var variants []types.Variant
	var variantIDs []uuid.UUID
	for rows.Next() {
		var v types.Variant
		var variantID uuid.UUID
		if err := rows.Scan(&variantID, &v.RAM.CapacityGB, &v.RAM.Type, &v.Storage.CapacityGB, &v.Storage.Type); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
		variantIDs = append(variantIDs, variantID)
	}
	rows.Close()

	for i, variantID := range variantIDs {
		offerRows, err := db.pool.Query(ctx,
			`SELECT url, price_usd, warranty_years FROM offers WHERE variant_id = $1`,
			variantID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to list offers: %w", err)
		}
		for offerRows.Next() {
			var o types.Offer
			if err := offerRows.Scan(&o.URL, &o.PriceUSD, &o.WarrantyYears); err != nil {
				offerRows.Close()
				return nil, fmt.Errorf("failed to scan offer: %w", err)
			}
			variants[i].Offers = append(variants[i].Offers, o)
		}
		offerRows.Close()
	}
	return variants, nil
}

// DeleteMiniPC deletes a catalog record and its variants and offers.
func (db *DB) DeleteMiniPC(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM minipcs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("record not found: %s", id)
	}
	return nil
}

// marshalJSONB encodes a value for a jsonb column; nil pointers become SQL NULL.
func marshalJSONB(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonb value: %w", err)
	}
	if string(data) == "null" {
		return nil, nil
	}
	s := string(data)
	return &s, nil
}

func unmarshalJSONB(data []byte, target any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal jsonb value: %w", err)
	}
	return nil
}
