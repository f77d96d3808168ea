package storage

// journal.go: diario de decisiones en SQLite.
//
// Estrategia:
//   - `cycles`: una fila ligera por ciclo (conteos, apalancamiento total).
//   - `decisions`: una fila por decisión del consejo, con los votos en JSON.
//   - `signals`: UNA fila por mercado (UPSERT). Solo se reescribe si cambió
//     el tier de la señal, la tradeabilidad o el edge en más de un 5%.
//   - `arbitrage`: una fila por oportunidad encontrada.
//   - Prune automático al arrancar: todo lo anterior a 30 días.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/polyfusion/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cycles (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at     INTEGER NOT NULL,
    duration_ms    INTEGER NOT NULL DEFAULT 0,
    signals        INTEGER NOT NULL DEFAULT 0,
    decisions      INTEGER NOT NULL DEFAULT 0,
    approved       INTEGER NOT NULL DEFAULT 0,
    vetoes         INTEGER NOT NULL DEFAULT 0,
    intents        INTEGER NOT NULL DEFAULT 0,
    exits          INTEGER NOT NULL DEFAULT 0,
    arbitrage      INTEGER NOT NULL DEFAULT 0,
    total_leverage REAL    NOT NULL DEFAULT 0,
    kelly_fallback INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS decisions (
    id          TEXT PRIMARY KEY,
    market_id   TEXT    NOT NULL,
    action      TEXT    NOT NULL,
    size        REAL    NOT NULL DEFAULT 0,
    confidence  REAL    NOT NULL DEFAULT 0,
    edge        REAL    NOT NULL DEFAULT 0,
    consensus   REAL    NOT NULL DEFAULT 0,
    vetoed      INTEGER NOT NULL DEFAULT 0,
    timed_out   INTEGER NOT NULL DEFAULT 0,
    reasoning   TEXT,
    votes_json  TEXT,
    decided_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
    market_id    TEXT PRIMARY KEY,
    signal       TEXT    NOT NULL,
    probability  REAL    NOT NULL DEFAULT 0,
    market_price REAL    NOT NULL DEFAULT 0,
    edge         REAL    NOT NULL DEFAULT 0,
    confidence   REAL    NOT NULL DEFAULT 0,
    tradeable    INTEGER NOT NULL DEFAULT 0,
    first_seen   INTEGER NOT NULL,
    last_seen    INTEGER NOT NULL,
    peak_edge    REAL    NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS arbitrage (
    id          TEXT PRIMARY KEY,
    type        TEXT    NOT NULL,
    markets     TEXT    NOT NULL,
    profit      REAL    NOT NULL DEFAULT 0,
    confidence  REAL    NOT NULL DEFAULT 0,
    exec_risk   REAL    NOT NULL DEFAULT 0,
    warning     TEXT,
    detected_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_at     ON cycles(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_decisions_at  ON decisions(decided_at DESC);
CREATE INDEX IF NOT EXISTS idx_decisions_mkt ON decisions(market_id);
CREATE INDEX IF NOT EXISTS idx_arb_at        ON arbitrage(detected_at DESC);
`

const (
	retention     = 30 * 24 * time.Hour
	edgeChangePct = 0.05 // 5% de cambio en el edge → reescribir
)

// cachedSignal es el snapshot de la última señal guardada de un mercado.
type cachedSignal struct {
	signal    domain.SignalType
	edge      float64
	tradeable bool
}

// voteRow es la forma serializada de un voto dentro de votes_json.
type voteRow struct {
	Role         domain.Role       `json:"role"`
	Conviction   domain.Conviction `json:"conviction"`
	Action       domain.Action     `json:"action"`
	SizeFraction float64           `json:"size"`
	Confidence   float64           `json:"confidence"`
	Reasoning    string            `json:"reasoning"`
	LatencyMs    float64           `json:"latency_ms"`
	DissentFlags []string          `json:"dissent,omitempty"`
}

// SQLiteJournal implementa ports.DecisionStore usando SQLite (pure Go, sin CGo).
type SQLiteJournal struct {
	db    *sql.DB
	cache map[string]cachedSignal // marketID → última señal guardada
	mu    sync.Mutex
}

// NewSQLiteJournal abre (o crea) la base de datos en la ruta dada.
// Aplica el schema, limpia datos antiguos y precarga la cache de señales.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteJournal: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteJournal: apply schema: %w", err)
	}

	j := &SQLiteJournal{
		db:    db,
		cache: make(map[string]cachedSignal),
	}
	j.pruneOld(context.Background())
	j.warmCache(context.Background())
	return j, nil
}

// SaveCycle persiste el ciclo completo en una sola transacción.
func (j *SQLiteJournal) SaveCycle(ctx context.Context, report domain.CycleReport) error {
	now := time.Now().UTC()
	started := report.StartedAt
	if started.IsZero() {
		started = now
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: begin tx: %w", err)
	}
	defer tx.Rollback()

	// 1. Resumen del ciclo: siempre una fila
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cycles (started_at, duration_ms, signals, decisions, approved, vetoes,
		                    intents, exits, arbitrage, total_leverage, kelly_fallback)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		started.UnixMilli(), report.Duration.Milliseconds(),
		len(report.Signals), len(report.Decisions), report.ApprovedCount(), report.VetoCount(),
		len(report.Intents), len(report.Exits), len(report.Arbitrage),
		report.Kelly.TotalLeverage, boolInt(report.Kelly.Fallback),
	); err != nil {
		return fmt.Errorf("storage.SaveCycle: insert cycle: %w", err)
	}

	// 2. Decisiones del consejo
	for _, d := range report.Decisions {
		if err := insertDecision(ctx, tx, d); err != nil {
			return fmt.Errorf("storage.SaveCycle: %w", err)
		}
	}

	// 3. Señales que cambiaron
	changed := j.filterChanged(report.Signals)
	if err := upsertSignals(ctx, tx, changed, now); err != nil {
		return fmt.Errorf("storage.SaveCycle: %w", err)
	}

	// 4. Arbitrajes encontrados
	for _, a := range report.Arbitrage {
		if !a.Found() {
			continue
		}
		detected := a.DetectedAt
		if detected.IsZero() {
			detected = now
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO arbitrage (id, type, markets, profit, confidence, exec_risk, warning, detected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Type.String(), strings.Join(a.MarketIDs, ","), a.ProfitPerDollar,
			a.Confidence, a.ExecutionRisk, a.Warning, detected.UnixMilli(),
		); err != nil {
			return fmt.Errorf("storage.SaveCycle: insert arbitrage %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveCycle: commit: %w", err)
	}
	// la caché solo refleja lo que ya está en disco
	j.remember(changed)
	return nil
}

func insertDecision(ctx context.Context, tx *sql.Tx, d domain.CouncilDecision) error {
	votes := make([]voteRow, len(d.Votes))
	for i, v := range d.Votes {
		votes[i] = voteRow{
			Role:         v.Role,
			Conviction:   v.Conviction,
			Action:       v.Action,
			SizeFraction: v.SizeFraction,
			Confidence:   v.Confidence,
			Reasoning:    v.Reasoning,
			LatencyMs:    float64(v.Latency.Microseconds()) / 1000,
			DissentFlags: v.DissentFlags,
		}
	}
	raw, err := json.Marshal(votes)
	if err != nil {
		return fmt.Errorf("marshal votes %s: %w", d.ID, err)
	}

	decided := d.DecidedAt
	if decided.IsZero() {
		decided = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO decisions (id, market_id, action, size, confidence, edge, consensus,
		                       vetoed, timed_out, reasoning, votes_json, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		d.ID, d.MarketID, string(d.Action), d.SizeFraction, d.Confidence, d.EdgeEstimate,
		d.ConsensusScore, boolInt(d.DoomerOverride), boolInt(d.TimedOut), d.Reasoning,
		string(raw), decided.UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert decision %s: %w", d.ID, err)
	}
	return nil
}

func upsertSignals(ctx context.Context, tx *sql.Tx, signals []domain.SignalOutput, now time.Time) error {
	if len(signals) == 0 {
		return nil // nada nuevo: la mayoría de ciclos terminan aquí
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signals
			(market_id, signal, probability, market_price, edge, confidence, tradeable,
			 first_seen, last_seen, peak_edge)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(market_id) DO UPDATE SET
			signal       = excluded.signal,
			probability  = excluded.probability,
			market_price = excluded.market_price,
			edge         = excluded.edge,
			confidence   = excluded.confidence,
			tradeable    = excluded.tradeable,
			last_seen    = excluded.last_seen,
			peak_edge    = MAX(peak_edge, excluded.peak_edge)
	`)
	if err != nil {
		return fmt.Errorf("prepare signals: %w", err)
	}
	defer stmt.Close()

	for _, s := range signals {
		if _, err := stmt.ExecContext(ctx,
			s.MarketID, string(s.Signal), s.FinalProbability, s.MarketPrice, s.Edge,
			s.Confidence, boolInt(s.Tradeable),
			now.UnixMilli(), // first_seen: ignorado en ON CONFLICT
			now.UnixMilli(),
			math.Abs(s.Edge),
		); err != nil {
			return fmt.Errorf("upsert signal %s: %w", s.MarketID, err)
		}
	}
	return nil
}

// GetDecisions devuelve las decisiones cuyo decided_at está en el rango dado,
// las más recientes primero.
func (j *SQLiteJournal) GetDecisions(ctx context.Context, from, to time.Time) ([]domain.CouncilDecision, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, market_id, action, size, confidence, edge, consensus,
		       vetoed, timed_out, reasoning, votes_json, decided_at
		FROM decisions
		WHERE decided_at BETWEEN ? AND ?
		ORDER BY decided_at DESC, id
	`, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("storage.GetDecisions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.CouncilDecision
	for rows.Next() {
		var d domain.CouncilDecision
		var action string
		var vetoed, timedOut int
		var reasoning, votesJSON sql.NullString
		var decidedAt int64

		if err := rows.Scan(
			&d.ID, &d.MarketID, &action, &d.SizeFraction, &d.Confidence, &d.EdgeEstimate,
			&d.ConsensusScore, &vetoed, &timedOut, &reasoning, &votesJSON, &decidedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.GetDecisions: scan row: %w", err)
		}
		d.Action = domain.Action(action)
		d.DoomerOverride = vetoed == 1
		d.TimedOut = timedOut == 1
		d.Reasoning = reasoning.String
		d.DecidedAt = time.UnixMilli(decidedAt).UTC()

		if votesJSON.Valid && votesJSON.String != "" {
			var votes []voteRow
			if err := json.Unmarshal([]byte(votesJSON.String), &votes); err != nil {
				return nil, fmt.Errorf("storage.GetDecisions: decode votes %s: %w", d.ID, err)
			}
			for _, v := range votes {
				d.Votes = append(d.Votes, domain.AgentVote{
					Role:         v.Role,
					Conviction:   v.Conviction,
					Action:       v.Action,
					SizeFraction: v.SizeFraction,
					Confidence:   v.Confidence,
					Reasoning:    v.Reasoning,
					Latency:      time.Duration(v.LatencyMs * float64(time.Millisecond)),
					DissentFlags: v.DissentFlags,
				})
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LatestSignals devuelve la última señal guardada de cada mercado, ordenadas por |edge| desc.
func (j *SQLiteJournal) LatestSignals(ctx context.Context) ([]domain.SignalOutput, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT market_id, signal, probability, market_price, edge, confidence, tradeable, last_seen
		FROM signals
		ORDER BY ABS(edge) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.LatestSignals: query: %w", err)
	}
	defer rows.Close()

	var out []domain.SignalOutput
	for rows.Next() {
		var s domain.SignalOutput
		var signal string
		var tradeable int
		if err := rows.Scan(&s.MarketID, &signal, &s.FinalProbability, &s.MarketPrice,
			&s.Edge, &s.Confidence, &tradeable, &s.TimestampMs); err != nil {
			return nil, fmt.Errorf("storage.LatestSignals: scan row: %w", err)
		}
		s.Signal = domain.SignalType(signal)
		s.Tradeable = tradeable == 1
		out = append(out, s)
	}
	return out, rows.Err()
}

// CycleCount devuelve cuántos ciclos hay registrados.
func (j *SQLiteJournal) CycleCount(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cycles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage.CycleCount: %w", err)
	}
	return n, nil
}

// Close cierra la conexión a la base de datos.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// --- helpers internos ---

// filterChanged devuelve las señales válidas que cambiaron respecto al estado
// en caché. No toca la caché: eso lo hace remember tras el commit.
func (j *SQLiteJournal) filterChanged(signals []domain.SignalOutput) []domain.SignalOutput {
	j.mu.Lock()
	defer j.mu.Unlock()

	var toWrite []domain.SignalOutput
	for _, s := range signals {
		// Las señales nulas (features inválidas) no aportan histórico
		if s.FinalProbability == 0 {
			continue
		}
		if prev, ok := j.cache[s.MarketID]; ok {
			unchanged := prev.signal == s.Signal &&
				prev.tradeable == s.Tradeable &&
				relChange(prev.edge, s.Edge) < edgeChangePct
			if unchanged {
				continue
			}
		}
		toWrite = append(toWrite, s)
	}
	return toWrite
}

// remember actualiza la caché con las señales ya persistidas.
func (j *SQLiteJournal) remember(signals []domain.SignalOutput) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, s := range signals {
		j.cache[s.MarketID] = cachedSignal{signal: s.Signal, edge: s.Edge, tradeable: s.Tradeable}
	}
}

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (j *SQLiteJournal) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retention).UnixMilli()
	j.db.ExecContext(ctx, `DELETE FROM cycles WHERE started_at < ?`, cutoff)
	j.db.ExecContext(ctx, `DELETE FROM decisions WHERE decided_at < ?`, cutoff)
	j.db.ExecContext(ctx, `DELETE FROM signals WHERE last_seen < ?`, cutoff)
	j.db.ExecContext(ctx, `DELETE FROM arbitrage WHERE detected_at < ?`, cutoff)
}

// warmCache precarga la caché desde la DB al arrancar, evitando escrituras
// redundantes en el primer ciclo tras un reinicio.
func (j *SQLiteJournal) warmCache(ctx context.Context) {
	rows, err := j.db.QueryContext(ctx, `SELECT market_id, signal, edge, tradeable FROM signals`)
	if err != nil {
		return
	}
	defer rows.Close()

	j.mu.Lock()
	defer j.mu.Unlock()
	for rows.Next() {
		var id, signal string
		var edge float64
		var tradeable int
		if rows.Scan(&id, &signal, &edge, &tradeable) == nil {
			j.cache[id] = cachedSignal{
				signal:    domain.SignalType(signal),
				edge:      edge,
				tradeable: tradeable == 1,
			}
		}
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// relChange devuelve el cambio relativo entre dos valores (0.0 – ∞).
func relChange(old, new float64) float64 {
	if old == 0 {
		return 1.0 // forzar escritura si antes era 0
	}
	return math.Abs(new-old) / math.Abs(old)
}
