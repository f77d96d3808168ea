package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/polyfusion/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el ciclo en el modo configurado.
func (c *Console) Notify(_ context.Context, report domain.CycleReport) error {
	if len(report.Signals) == 0 && len(report.Decisions) == 0 && len(report.Arbitrage) == 0 {
		fmt.Fprintf(c.out, "[%s] no markets ready\n", clock(report.StartedAt))
		return nil
	}

	if c.table {
		c.printFull(report)
	} else {
		c.printCompact(report)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(r domain.CycleReport) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d mkts → approved:%d veto:%d lev:%.2f arb:%d exits:%d",
		clock(r.StartedAt), len(r.Signals), r.ApprovedCount(), r.VetoCount(),
		r.Kelly.TotalLeverage, countFound(r.Arbitrage), len(r.Exits))

	shown := 0
	for _, in := range r.Intents {
		if shown >= 4 {
			break
		}
		fmt.Fprintf(&sb, " | %s %s $%s", in.Action, compactName(in.MarketID, 20), in.Notional.StringFixed(2))
		shown++
	}
	for _, e := range r.Exits {
		fmt.Fprintf(&sb, " | EXIT %s %s", compactName(e.MarketID, 20), e.Reason)
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime las tablas del ciclo.
func (c *Console) printFull(r domain.CycleReport) {
	fmt.Fprintf(c.out, "\n[%s] cycle %s: %d signals, %d decisions (approved %d, veto %d)\n",
		clock(r.StartedAt), r.Duration.Round(time.Microsecond), len(r.Signals),
		len(r.Decisions), r.ApprovedCount(), r.VetoCount())

	c.printSignals(r.Signals)
	c.printDecisions(r.Decisions, r.Kelly, r.Intents)
	c.printArbitrage(r.Arbitrage, r.CrossVenue)
	c.printExits(r.Exits)
}

func (c *Console) printSignals(signals []domain.SignalOutput) {
	if len(signals) == 0 {
		return
	}
	sorted := append([]domain.SignalOutput(nil), signals...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return abs(sorted[i].Edge) > abs(sorted[j].Edge)
	})

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Signal", "Prob", "Mkt", "Edge", "Conf", "Spread", "Trade")
	for i, s := range sorted {
		trade := ""
		if s.Tradeable {
			trade = "✓"
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(s.MarketID, 30),
			string(s.Signal),
			fmt.Sprintf("%.3f", s.FinalProbability),
			fmt.Sprintf("%.3f", s.MarketPrice),
			fmt.Sprintf("%+.3f", s.Edge),
			fmt.Sprintf("%.2f", s.Confidence),
			fmt.Sprintf("%.0fbps", s.SpreadBps),
			trade,
		)
	}
	table.Render()
}

func (c *Console) printDecisions(decisions []domain.CouncilDecision, kelly domain.KellyWeights, intents []domain.OrderIntent) {
	if len(decisions) == 0 {
		return
	}
	notional := make(map[string]string, len(intents))
	for _, in := range intents {
		notional[in.MarketID] = "$" + in.Notional.StringFixed(2)
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Action", "Size", "Conf", "Consensus", "Kelly", "Notional", "Votes", "Reason")
	for _, d := range decisions {
		action := string(d.Action)
		switch {
		case d.DoomerOverride:
			action += " (veto)"
		case d.TimedOut:
			action += " (timeout)"
		}
		table.Append(
			truncate(d.MarketID, 24),
			action,
			fmt.Sprintf("%.3f", d.SizeFraction),
			fmt.Sprintf("%.2f", d.Confidence),
			fmt.Sprintf("%.2f", d.ConsensusScore),
			fmt.Sprintf("%.3f", kelly.Weight(d.MarketID)),
			notional[d.MarketID],
			voteSummary(d.Votes),
			truncate(d.Reasoning, 40),
		)
	}
	table.Render()

	if kelly.TotalLeverage > 0 {
		mode := "full"
		if kelly.HalfKelly {
			mode = "half"
		}
		if kelly.Fallback {
			mode += ", fallback"
		}
		fmt.Fprintf(c.out, "  Kelly (%s): leverage %.3f  E[log g] %.5f  maxDD≈%.3f\n",
			mode, kelly.TotalLeverage, kelly.ExpectedLogGrowth, kelly.MaxDrawdownEst)
	}
}

func (c *Console) printArbitrage(opps []domain.ArbitrageOpportunity, cross map[string]domain.CrossVenueArb) {
	found := 0
	for _, a := range opps {
		if a.Found() {
			found++
		}
	}
	if found > 0 {
		table := tablewriter.NewWriter(c.out)
		table.Header("Type", "Markets", "Profit/$", "Conf", "ExecRisk", "Positions", "Warning")
		for _, a := range opps {
			if !a.Found() {
				continue
			}
			table.Append(
				a.Type.String(),
				strings.Join(a.MarketIDs, "+"),
				fmt.Sprintf("%.4f", a.ProfitPerDollar),
				fmt.Sprintf("%.2f", a.Confidence),
				fmt.Sprintf("%.2f", a.ExecutionRisk),
				positionSummary(a.Positions),
				truncate(a.Warning, 30),
			)
		}
		table.Render()
	}

	ids := make([]string, 0, len(cross))
	for id, res := range cross {
		if res.IsArb {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		res := cross[id]
		fmt.Fprintf(c.out, "  CROSS-VENUE %s: %s cost %.4f (fees %.4f) profit %.2f%%\n",
			id, res.Direction, res.Cost, res.CostWithFees, res.ProfitPct*100)
	}
}

func (c *Console) printExits(exits []domain.ExitEvent) {
	for _, e := range exits {
		fmt.Fprintf(c.out, "  EXIT %s: %s at %.4f (hwm %.4f)\n", e.MarketID, e.Reason, e.Price, e.HighWaterMark)
	}
}

// --- helpers ---

func voteSummary(votes []domain.AgentVote) string {
	if len(votes) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(votes))
	for _, v := range votes {
		parts = append(parts, fmt.Sprintf("%s:%+d", roleInitial(v.Role), int(v.Conviction)))
	}
	return strings.Join(parts, " ")
}

func roleInitial(r domain.Role) string {
	switch r {
	case domain.RoleSniper:
		return "S"
	case domain.RoleNarrative:
		return "N"
	case domain.RoleWhaleHunter:
		return "W"
	case domain.RoleDoomer:
		return "D"
	default:
		return "?"
	}
}

func positionSummary(ps []domain.ArbPosition) string {
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		parts = append(parts, fmt.Sprintf("%s %s", p.Side, p.ConditionID))
	}
	return truncate(strings.Join(parts, ", "), 40)
}

func countFound(opps []domain.ArbitrageOpportunity) int {
	n := 0
	for _, a := range opps {
		if a.Found() {
			n++
		}
	}
	return n
}

func clock(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("15:04:05")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func compactName(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
